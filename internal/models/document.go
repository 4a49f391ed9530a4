package models

import (
	"time"
)

// DocumentStatus 文档审核状态
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusInReview DocumentStatus = "in_review"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
	StatusObsolete DocumentStatus = "obsolete"
)

// 创建时选择的初始状态
const (
	InitialStatusPublished = "published"
	InitialStatusDraft     = "draft"
)

var statusLabels = map[DocumentStatus]string{
	StatusDraft:    "Borrador",
	StatusInReview: "En Revisión",
	StatusApproved: "Aprobado",
	StatusRejected: "Rechazado",
	StatusObsolete: "Obsoleto",
}

// Label 返回界面展示用的状态名称
func (s DocumentStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsReviewTarget 审核操作只能写入这四种状态，obsolete 只能由新版本覆盖产生
func (s DocumentStatus) IsReviewTarget() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// VersionLogEntry 每次上传追加的一条快照，追加后不再修改
type VersionLogEntry struct {
	Version         string         `json:"version" firestore:"version"`
	UploadDate      time.Time      `json:"uploadDate" firestore:"uploadDate"`
	UploadedBy      string         `json:"uploadedBy" firestore:"uploadedBy"`
	UploadedByEmail string         `json:"uploadedByEmail" firestore:"uploadedByEmail"`
	VersionOwner    string         `json:"versionOwner" firestore:"versionOwner"`
	Reviewer        string         `json:"reviewer" firestore:"reviewer"`
	Approver        string         `json:"approver" firestore:"approver"`
	Status          DocumentStatus `json:"status" firestore:"status"`
	Comments        string         `json:"comments" firestore:"comments"`
	FileName        string         `json:"fileName" firestore:"fileName"`
	FileURL         string         `json:"fileUrl" firestore:"fileUrl"`
	FileSize        int64          `json:"fileSize" firestore:"fileSize"`
}

// VersionRecord 对应 version_records 表 / documents 集合，一次上传一条记录
type VersionRecord struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)" json:"id" firestore:"-"`
	BaseDocumentID *string `gorm:"type:varchar(36);index" json:"baseDocumentId,omitempty" firestore:"baseDocumentId,omitempty"` // 为空表示自身就是链根

	Version     string `gorm:"type:varchar(32);not null" json:"version" firestore:"version"`
	Code        string `gorm:"type:varchar(128);not null" json:"code" firestore:"code"`
	Area        string `gorm:"type:varchar(128);not null" json:"area" firestore:"area"`
	Description string `gorm:"type:text" json:"description" firestore:"description"`

	CreatedBy       string    `gorm:"type:varchar(128)" json:"createdBy" firestore:"createdBy"`
	CreatedByEmail  string    `gorm:"type:varchar(255)" json:"createdByEmail" firestore:"createdByEmail"`
	CreatedDate     time.Time `json:"createdDate" firestore:"createdDate"`
	UploadedBy      string    `gorm:"type:varchar(128)" json:"uploadedBy" firestore:"uploadedBy"`
	UploadedByEmail string    `gorm:"type:varchar(255)" json:"uploadedByEmail" firestore:"uploadedByEmail"`
	UploadDate      time.Time `gorm:"index" json:"uploadDate" firestore:"uploadDate"`

	FileName string `gorm:"type:varchar(255);not null" json:"fileName" firestore:"fileName"`
	FileSize int64  `json:"fileSize" firestore:"fileSize"`
	FileType string `gorm:"type:varchar(128)" json:"fileType" firestore:"fileType"`
	FilePath string `gorm:"type:varchar(512);not null" json:"filePath" firestore:"filePath"`
	FileURL  string `gorm:"type:varchar(1024)" json:"fileUrl" firestore:"fileUrl"`

	VersionOwner string `gorm:"type:varchar(128)" json:"versionOwner" firestore:"versionOwner"`
	Reviewer     string `gorm:"type:varchar(128)" json:"reviewer" firestore:"reviewer"`
	Approver     string `gorm:"type:varchar(128)" json:"approver" firestore:"approver"`

	Status        DocumentStatus `gorm:"type:varchar(16);not null;index" json:"status" firestore:"status"`
	InitialStatus string         `gorm:"type:varchar(16)" json:"initialStatus" firestore:"initialStatus"`
	ReviewDate    *time.Time     `json:"reviewDate,omitempty" firestore:"reviewDate,omitempty"`
	ApprovalDate  *time.Time     `json:"approvalDate,omitempty" firestore:"approvalDate,omitempty"`
	Comments      string         `gorm:"type:text" json:"comments" firestore:"comments"`

	IsLatestVersion bool              `gorm:"index;not null" json:"isLatestVersion" firestore:"isLatestVersion"`
	VersionHistory  []VersionLogEntry `gorm:"type:json;serializer:json" json:"versionHistory" firestore:"versionHistory"`
}

// TableName 指定 GORM 使用的表名
func (VersionRecord) TableName() string {
	return "version_records"
}

// IsRoot 没有 baseDocumentId 的记录是链根
func (r *VersionRecord) IsRoot() bool {
	return r.BaseDocumentID == nil || *r.BaseDocumentID == ""
}

// DocumentResponse 返回给前端的文档视图，附带展示用标签
type DocumentResponse struct {
	VersionRecord
	StatusLabel   string `json:"statusLabel"`
	FileSizeLabel string `json:"fileSizeLabel"`
	// LatestVersionID 记录已被取代时指向当前链头
	LatestVersionID string `json:"latestVersionId,omitempty"`
}
