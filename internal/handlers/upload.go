package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/services/document"
	"github.com/gin-gonic/gin"
)

// GetUploadProgress 查询上传进度
// @Summary 上传进度
// @Description 返回已传输字节数、百分比和任务状态 (running, completed, failed, canceled)
// @Tags 上传
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "上传任务 id"
// @Success 200 {object} xerr.Response{data=models.UploadProgressResponse} "获取成功"
// @Failure 404 {object} xerr.Response "上传任务不存在"
// @Router /api/v1/uploads/{upload_id} [get]
func GetUploadProgress(uploads *document.UploadManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := uploads.Progress(c.Request.Context(), c.Param("upload_id"))
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Upload progress retrieved successfully", p)
	}
}

// CancelUpload 取消进行中的上传
// @Summary 取消上传
// @Description 取消后对应的新建或新版本请求返回失败，不会写入任何记录
// @Tags 上传
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "上传任务 id"
// @Success 200 {object} xerr.Response "取消成功"
// @Failure 404 {object} xerr.Response "上传任务不存在或已结束"
// @Router /api/v1/uploads/{upload_id} [delete]
func CancelUpload(uploads *document.UploadManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := uploads.Cancel(c.Param("upload_id")); err != nil {
			xerr.RespondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Upload canceled", nil)
	}
}
