package mapper

import (
	"fmt"
	"strconv"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
)

// ToDocumentResponse 附加状态标签和可读的文件大小
func ToDocumentResponse(r *models.VersionRecord) models.DocumentResponse {
	size := r.FileSize
	if size < 0 {
		size = 0
	}
	return models.DocumentResponse{
		VersionRecord: *r,
		StatusLabel:   r.Status.Label(),
		FileSizeLabel: humanize.Bytes(uint64(size)),
	}
}

func ToDocumentResponses(records []models.VersionRecord) []models.DocumentResponse {
	out := make([]models.DocumentResponse, 0, len(records))
	for i := range records {
		out = append(out, ToDocumentResponse(&records[i]))
	}
	return out
}

// ProgressToMap 将上传进度转换成 Redis 哈希字段，key 与 json 标签一致
func ProgressToMap(p models.UploadProgressResponse) map[string]any {
	return map[string]any{
		"uploadId":         p.UploadID,
		"bytesTransferred": p.BytesTransferred,
		"totalBytes":       p.TotalBytes,
		"percent":          strconv.FormatFloat(p.Percent, 'f', 2, 64),
		"state":            p.State,
	}
}

// MapToProgress 将 HGetAll 的结果映射回上传进度，字符串到数值的转换交给 mapstructure
func MapToProgress(dataMap map[string]string) (models.UploadProgressResponse, error) {
	var p models.UploadProgressResponse
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return p, fmt.Errorf("failed to create map decoder: %w", err)
	}
	if err := decoder.Decode(dataMap); err != nil {
		return p, fmt.Errorf("failed to decode map to upload progress: %w", err)
	}
	return p, nil
}
