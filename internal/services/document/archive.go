package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/klauspost/compress/zip"
)

const manifestName = "history.json"

// ArchiveEntryName v<version>_<fileName>，同一链内版本号唯一
func ArchiveEntryName(r *models.VersionRecord) string {
	return fmt.Sprintf("v%s_%s", r.Version, path.Base(r.FileName))
}

// writeArchive 按上传顺序写入每个版本的文件，最后写入链头的版本日志
func writeArchive(ctx context.Context, blobs blobReader, members []models.VersionRecord, w io.Writer) error {
	zw := zip.NewWriter(w)

	for i := range members {
		m := &members[i]
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := copyBlob(ctx, blobs, zw, m); err != nil {
			zw.Close()
			return err
		}
	}

	if head := headOf(members); head != nil {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: manifestName, Method: zip.Deflate, Modified: head.UploadDate})
		if err != nil {
			zw.Close()
			return fmt.Errorf("create manifest: %w", err)
		}
		enc := json.NewEncoder(fw)
		enc.SetIndent("", "  ")
		if err := enc.Encode(head.VersionHistory); err != nil {
			zw.Close()
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	return zw.Close()
}

func copyBlob(ctx context.Context, blobs blobReader, zw *zip.Writer, m *models.VersionRecord) error {
	rc, err := blobs.Open(ctx, m.FilePath)
	if err != nil {
		return fmt.Errorf("open %s: %v: %w", m.FilePath, err, xerr.ErrStorageError)
	}
	defer rc.Close()

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     ArchiveEntryName(m),
		Method:   zip.Deflate,
		Modified: m.UploadDate,
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", m.FilePath, err)
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("copy %s: %v: %w", m.FilePath, err, xerr.ErrStorageError)
	}
	return nil
}

// blobReader 归档只需要读取能力
type blobReader interface {
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
}
