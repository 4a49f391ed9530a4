package models

// CreateDocumentRequest 新建文档的表单字段 (multipart)
type CreateDocumentRequest struct {
	Version       string `form:"version"`
	Code          string `form:"code"`
	Area          string `form:"area"`
	Description   string `form:"description"`
	InitialStatus string `form:"initial_status"` // published 或 draft
	VersionOwner  string `form:"version_owner"`
	Reviewer      string `form:"reviewer"`
	Approver      string `form:"approver"`
	Comments      string `form:"comments"`
	UploadID      string `form:"upload_id"` // 可选，客户端指定后可查询进度或取消
}

// SupersedeDocumentRequest 上传新版本的表单字段，code/area/description 留空则沿用上一版本
type SupersedeDocumentRequest struct {
	Code          string `form:"code"`
	Area          string `form:"area"`
	Description   string `form:"description"`
	InitialStatus string `form:"initial_status"`
	VersionOwner  string `form:"version_owner"`
	Reviewer      string `form:"reviewer"`
	Approver      string `form:"approver"`
	Comments      string `form:"comments"`
	UploadID      string `form:"upload_id"`
}

// ReviewRequest 审核操作
type ReviewRequest struct {
	Status   DocumentStatus `json:"status" binding:"required"`
	Comments string         `json:"comments"`
}

// ListDocumentsQuery 目录查询参数
type ListDocumentsQuery struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// DocumentListResponse 分页结果
type DocumentListResponse struct {
	Items    []DocumentResponse `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

// DocumentHistoryResponse 版本链历史
type DocumentHistoryResponse struct {
	ChainRootID string             `json:"chainRootId"`
	Head        *DocumentResponse  `json:"head"`
	Entries     []VersionLogEntry  `json:"entries"`
	Members     []DocumentResponse `json:"members"`
}

// UploadProgressResponse 上传进度
type UploadProgressResponse struct {
	UploadID         string  `json:"uploadId"`
	BytesTransferred int64   `json:"bytesTransferred"`
	TotalBytes       int64   `json:"totalBytes"`
	Percent          float64 `json:"percent"`
	State            string  `json:"state"`
}
