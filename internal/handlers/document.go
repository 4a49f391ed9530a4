package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/mapper"
	"github.com/3Eeeecho/go-docflow/internal/pkg/utils"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/services/catalog"
	"github.com/3Eeeecho/go-docflow/internal/services/document"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListDocuments 获取最新版本文档列表
// @Summary 文档目录
// @Description 只返回每条版本链的最新版本，支持状态筛选、关键字搜索和分页
// @Tags 文档
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态筛选 (all, draft, in_review, approved, rejected)"
// @Param search query string false "按文件名、编码、区域、描述、上传人模糊搜索 (不区分大小写)"
// @Param page query int false "页码，从 1 开始"
// @Param page_size query int false "每页数量"
// @Success 200 {object} xerr.Response{data=models.DocumentListResponse} "获取成功"
// @Failure 400 {object} xerr.Response "参数错误"
// @Router /api/v1/documents [get]
func ListDocuments(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.ListDocumentsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Invalid query parameters")
			return
		}

		page, err := svc.List(c.Request.Context(), catalog.Filter{
			Status:   q.Status,
			Search:   q.Search,
			Page:     q.Page,
			PageSize: q.PageSize,
		})
		if err != nil {
			if errors.Is(err, xerr.ErrInvalidParams) {
				xerr.RespondError(c, err)
				return
			}
			// 目录加载失败时返回空列表，前端显示提示信息
			logger.Error("ListDocuments: Failed to load catalog", zap.Error(err))
			xerr.JSONResponse(c, http.StatusOK, xerr.DatabaseErrorCode, "Failed to load documents", models.DocumentListResponse{
				Items: []models.DocumentResponse{},
			})
			return
		}

		xerr.Success(c, http.StatusOK, "Documents retrieved successfully", models.DocumentListResponse{
			Items:    mapper.ToDocumentResponses(page.Items),
			Total:    page.Total,
			Page:     page.Page,
			PageSize: page.PageSize,
		})
	}
}

// CreateDocument 新建文档
// @Summary 新建文档
// @Description 上传文件并创建版本链的第一条记录
// @Tags 文档
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文档文件"
// @Param version formData string true "版本号"
// @Param code formData string true "文档编码"
// @Param area formData string true "所属区域"
// @Param description formData string true "描述"
// @Param initial_status formData string false "published 或 draft"
// @Param version_owner formData string true "版本负责人"
// @Param reviewer formData string true "审核人"
// @Param approver formData string true "批准人"
// @Param comments formData string false "备注"
// @Param upload_id formData string false "上传任务 id，用于查询进度或取消"
// @Success 201 {object} xerr.Response{data=models.DocumentResponse} "创建成功"
// @Failure 400 {object} xerr.Response "参数错误"
// @Failure 500 {object} xerr.Response "内部服务器错误"
// @Router /api/v1/documents [post]
func CreateDocument(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := utils.GetActorFromContext(c)
		if !ok {
			return
		}

		var req models.CreateDocumentRequest
		if err := c.ShouldBind(&req); err != nil {
			xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Invalid form data")
			return
		}

		file, closeFile, err := formFile(c)
		if err != nil {
			xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Failed to read uploaded file")
			return
		}
		defer closeFile()

		rec, err := svc.Create(c.Request.Context(), actor, document.CreateInput{
			Version:       req.Version,
			Code:          req.Code,
			Area:          req.Area,
			Description:   req.Description,
			InitialStatus: req.InitialStatus,
			VersionOwner:  req.VersionOwner,
			Reviewer:      req.Reviewer,
			Approver:      req.Approver,
			Comments:      req.Comments,
			UploadID:      req.UploadID,
		}, file)
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		xerr.Success(c, http.StatusCreated, "Document created successfully", mapper.ToDocumentResponse(rec))
	}
}

// SupersedeDocument 上传新版本
// @Summary 上传新版本
// @Description 基于当前最新版本创建小版本号 +0.1 的新记录，旧版本标记为 obsolete
// @Tags 文档
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "当前最新版本 id"
// @Param file formData file true "新版本文件"
// @Param code formData string false "留空沿用上一版本"
// @Param area formData string false "留空沿用上一版本"
// @Param description formData string false "留空沿用上一版本"
// @Param initial_status formData string false "published 或 draft"
// @Param version_owner formData string true "版本负责人"
// @Param reviewer formData string true "审核人"
// @Param approver formData string true "批准人"
// @Param comments formData string false "备注"
// @Param upload_id formData string false "上传任务 id"
// @Success 201 {object} xerr.Response{data=models.DocumentResponse} "上传成功"
// @Failure 400 {object} xerr.Response "参数错误"
// @Failure 404 {object} xerr.Response "文档不存在"
// @Failure 409 {object} xerr.Response "不是最新版本或版本链已更新"
// @Router /api/v1/documents/{id}/versions [post]
func SupersedeDocument(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := utils.GetActorFromContext(c)
		if !ok {
			return
		}

		var req models.SupersedeDocumentRequest
		if err := c.ShouldBind(&req); err != nil {
			xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Invalid form data")
			return
		}

		file, closeFile, err := formFile(c)
		if err != nil {
			xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Failed to read uploaded file")
			return
		}
		defer closeFile()

		rec, err := svc.Supersede(c.Request.Context(), actor, c.Param("id"), document.SupersedeInput{
			Code:          req.Code,
			Area:          req.Area,
			Description:   req.Description,
			InitialStatus: req.InitialStatus,
			VersionOwner:  req.VersionOwner,
			Reviewer:      req.Reviewer,
			Approver:      req.Approver,
			Comments:      req.Comments,
			UploadID:      req.UploadID,
		}, file)
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		xerr.Success(c, http.StatusCreated, "New version uploaded successfully", mapper.ToDocumentResponse(rec))
	}
}

// GetDocument 获取单条版本记录
// @Summary 文档详情
// @Description 已被取代的版本会带上 latestVersionId
// @Tags 文档
// @Produce json
// @Security BearerAuth
// @Param id path string true "版本记录 id"
// @Success 200 {object} xerr.Response{data=models.DocumentResponse} "获取成功"
// @Failure 404 {object} xerr.Response "文档不存在"
// @Router /api/v1/documents/{id} [get]
func GetDocument(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		resp := mapper.ToDocumentResponse(rec)
		if !rec.IsLatestVersion {
			if latest, ok := svc.LatestVersionID(rec); ok {
				resp.LatestVersionID = latest
			}
		}
		xerr.Success(c, http.StatusOK, "Document retrieved successfully", resp)
	}
}

// ReviewDocument 审核文档
// @Summary 审核文档
// @Description 将最新版本设置为 draft、in_review、approved 或 rejected，备注会覆盖原有内容
// @Tags 文档
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "版本记录 id"
// @Param request body models.ReviewRequest true "审核参数"
// @Success 200 {object} xerr.Response{data=models.DocumentResponse} "审核成功"
// @Failure 400 {object} xerr.Response "状态不合法"
// @Failure 404 {object} xerr.Response "文档不存在"
// @Failure 409 {object} xerr.Response "不是最新版本"
// @Router /api/v1/documents/{id}/review [put]
func ReviewDocument(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := utils.GetActorFromContext(c)
		if !ok {
			return
		}

		var req models.ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Invalid request body")
			return
		}

		rec, err := svc.Review(c.Request.Context(), actor, c.Param("id"), document.ReviewInput{
			Status:   req.Status,
			Comments: req.Comments,
		})
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Document reviewed successfully", mapper.ToDocumentResponse(rec))
	}
}

// GetDocumentHistory 获取版本历史
// @Summary 版本历史
// @Description 返回链头的版本日志以及链上所有记录
// @Tags 文档
// @Produce json
// @Security BearerAuth
// @Param id path string true "链上任意版本 id"
// @Success 200 {object} xerr.Response{data=models.DocumentHistoryResponse} "获取成功"
// @Failure 404 {object} xerr.Response "文档不存在"
// @Router /api/v1/documents/{id}/history [get]
func GetDocumentHistory(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := svc.History(c.Request.Context(), c.Param("id"))
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "History retrieved successfully", history)
	}
}

// DownloadDocument 下载文件
// @Summary 下载文件
// @Description 重定向到对象存储地址
// @Tags 文档
// @Security BearerAuth
// @Param id path string true "版本记录 id"
// @Success 302 "重定向到文件地址"
// @Failure 404 {object} xerr.Response "文档不存在"
// @Router /api/v1/documents/{id}/download [get]
func DownloadDocument(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := svc.DownloadURL(c.Request.Context(), c.Param("id"))
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		c.Redirect(http.StatusFound, url)
	}
}

// ArchiveDocument 打包下载整条版本链
// @Summary 打包下载历史版本
// @Description 返回包含每个版本文件和 history.json 的 zip
// @Tags 文档
// @Produce application/zip
// @Security BearerAuth
// @Param id path string true "链上任意版本 id"
// @Success 200 {file} file "zip 文件"
// @Failure 404 {object} xerr.Response "文档不存在"
// @Router /api/v1/documents/{id}/archive [get]
func ArchiveDocument(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		rec, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			xerr.RespondError(c, err)
			return
		}

		name := rec.Code
		if name == "" {
			name = rec.ID
		}
		c.Header("Content-Type", "application/zip")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_history.zip"`, name))
		c.Status(http.StatusOK)

		// 响应头已发送，之后的错误只能记录日志
		if _, err := svc.Archive(c.Request.Context(), id, c.Writer); err != nil {
			logger.Error("ArchiveDocument: Failed to stream archive", zap.String("documentID", id), zap.Error(err))
			c.Abort()
		}
	}
}

// DeleteDocument 删除整条版本链
// @Summary 删除文档
// @Description 删除 id 所在版本链的所有记录和文件
// @Tags 文档
// @Produce json
// @Security BearerAuth
// @Param id path string true "链上任意版本 id"
// @Success 200 {object} xerr.Response "删除成功"
// @Failure 404 {object} xerr.Response "文档不存在"
// @Failure 500 {object} xerr.Response "存储删除失败"
// @Router /api/v1/documents/{id} [delete]
func DeleteDocument(svc document.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := utils.GetActorFromContext(c)
		if !ok {
			return
		}

		n, err := svc.Remove(c.Request.Context(), actor, c.Param("id"))
		if err != nil {
			xerr.RespondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Document deleted successfully", gin.H{"deleted": n})
	}
}

// formFile 没有上传文件时返回 nil，由服务层报告 ErrFileRequired
func formFile(c *gin.Context) (*document.FileInput, func(), error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return fileInput(fh, f), func() { _ = f.Close() }, nil
}

func fileInput(fh *multipart.FileHeader, f multipart.File) *document.FileInput {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &document.FileInput{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: contentType,
		Reader:      f,
	}
}
