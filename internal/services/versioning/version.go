package versioning

import (
	"strconv"
	"strings"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
)

const (
	defaultMajor = 1
	defaultMinor = 0
)

// IncrementVersion 将 "major.minor" 的次版本号加一
// 只取前两段，每段解析开头的整数部分 ("2.3-rc" -> 2, 3)，无法解析或为 0 时按 major=1, minor=0 处理
func IncrementVersion(label string) string {
	parts := strings.Split(label, ".")
	major := leadingInt(parts[0], defaultMajor)
	minor := defaultMinor
	if len(parts) > 1 {
		minor = leadingInt(parts[1], defaultMinor)
	}
	return strconv.Itoa(major) + "." + strconv.Itoa(minor+1)
}

// leadingInt 解析 s 开头的可带符号整数，没有数字、溢出或结果为 0 时返回 fallback
func leadingInt(s string, fallback int) int {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return fallback
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil || v == 0 {
		return fallback
	}
	return v
}

// ResolveChainRoot 返回链根 id：链根返回自身 id，否则返回 baseDocumentId
func ResolveChainRoot(r *models.VersionRecord) string {
	if r.IsRoot() {
		return r.ID
	}
	return *r.BaseDocumentID
}

// InitialStatus 新记录的初始状态，只有明确选择草稿才是 draft
func InitialStatus(initialStatus string) models.DocumentStatus {
	if initialStatus == models.InitialStatusDraft {
		return models.StatusDraft
	}
	return models.StatusInReview
}

// NormalizeInitialStatus 只保留 published / draft 两种取值
func NormalizeInitialStatus(initialStatus string) string {
	if initialStatus == models.InitialStatusDraft {
		return models.InitialStatusDraft
	}
	return models.InitialStatusPublished
}

// UploadFacts 上传完成后得到的文件信息
type UploadFacts struct {
	FileName string
	FileSize int64
	FileType string
	FilePath string
	FileURL  string
}

// Assignment 一次上传的责任人和描述信息
type Assignment struct {
	Version       string
	Code          string
	Area          string
	Description   string
	InitialStatus string
	VersionOwner  string
	Reviewer      string
	Approver      string
	Comments      string
}

// NewLogEntry 构建一条版本日志快照
func NewLogEntry(actor models.Actor, a Assignment, f UploadFacts, status models.DocumentStatus, now time.Time) models.VersionLogEntry {
	return models.VersionLogEntry{
		Version:         a.Version,
		UploadDate:      now,
		UploadedBy:      actor.DisplayName,
		UploadedByEmail: actor.Email,
		VersionOwner:    a.VersionOwner,
		Reviewer:        a.Reviewer,
		Approver:        a.Approver,
		Status:          status,
		Comments:        a.Comments,
		FileName:        f.FileName,
		FileURL:         f.FileURL,
		FileSize:        f.FileSize,
	}
}

// BuildRoot 构建链根记录，id 由仓储层分配
func BuildRoot(actor models.Actor, a Assignment, f UploadFacts, now time.Time) *models.VersionRecord {
	status := InitialStatus(a.InitialStatus)
	entry := NewLogEntry(actor, a, f, status, now)

	return &models.VersionRecord{
		Version:         a.Version,
		Code:            a.Code,
		Area:            a.Area,
		Description:     a.Description,
		CreatedBy:       actor.DisplayName,
		CreatedByEmail:  actor.Email,
		CreatedDate:     now,
		UploadedBy:      actor.DisplayName,
		UploadedByEmail: actor.Email,
		UploadDate:      now,
		FileName:        f.FileName,
		FileSize:        f.FileSize,
		FileType:        f.FileType,
		FilePath:        f.FilePath,
		FileURL:         f.FileURL,
		VersionOwner:    a.VersionOwner,
		Reviewer:        a.Reviewer,
		Approver:        a.Approver,
		Status:          status,
		InitialStatus:   NormalizeInitialStatus(a.InitialStatus),
		Comments:        a.Comments,
		IsLatestVersion: true,
		VersionHistory:  []models.VersionLogEntry{entry},
	}
}

// BuildSuccessor 基于当前链头构建新版本
// 版本号由 base.Version 递增，创建者信息沿用链根，baseDocumentId 始终指向链根
func BuildSuccessor(base *models.VersionRecord, actor models.Actor, a Assignment, f UploadFacts, now time.Time) *models.VersionRecord {
	a.Version = IncrementVersion(base.Version)
	status := InitialStatus(a.InitialStatus)
	entry := NewLogEntry(actor, a, f, status, now)

	history := make([]models.VersionLogEntry, 0, len(base.VersionHistory)+1)
	history = append(history, base.VersionHistory...)
	history = append(history, entry)

	rootID := ResolveChainRoot(base)

	return &models.VersionRecord{
		BaseDocumentID:  &rootID,
		Version:         a.Version,
		Code:            a.Code,
		Area:            a.Area,
		Description:     a.Description,
		CreatedBy:       base.CreatedBy,
		CreatedByEmail:  base.CreatedByEmail,
		CreatedDate:     base.CreatedDate,
		UploadedBy:      actor.DisplayName,
		UploadedByEmail: actor.Email,
		UploadDate:      now,
		FileName:        f.FileName,
		FileSize:        f.FileSize,
		FileType:        f.FileType,
		FilePath:        f.FilePath,
		FileURL:         f.FileURL,
		VersionOwner:    a.VersionOwner,
		Reviewer:        a.Reviewer,
		Approver:        a.Approver,
		Status:          status,
		InitialStatus:   NormalizeInitialStatus(a.InitialStatus),
		Comments:        a.Comments,
		IsLatestVersion: true,
		VersionHistory:  history,
	}
}

// MarkSuperseded 被覆盖的旧链头
func MarkSuperseded(base *models.VersionRecord) {
	base.IsLatestVersion = false
	base.Status = models.StatusObsolete
}
