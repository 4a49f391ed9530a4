package models

import "time"

// ReviewUpdate 审核操作需要写入的字段，日期为 nil 表示保持原值
type ReviewUpdate struct {
	Status       DocumentStatus
	Comments     string
	ReviewDate   *time.Time
	ApprovalDate *time.Time
}

// Apply 将审核结果写到记录上，各仓储实现共用
func (u ReviewUpdate) Apply(r *VersionRecord) {
	r.Status = u.Status
	r.Comments = u.Comments
	if u.ReviewDate != nil {
		t := *u.ReviewDate
		r.ReviewDate = &t
	}
	if u.ApprovalDate != nil {
		t := *u.ApprovalDate
		r.ApprovalDate = &t
	}
}
