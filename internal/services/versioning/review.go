package versioning

import (
	"fmt"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
)

// PlanReview 校验目标状态并计算副作用
// 状态之间可以任意切换（已批准或已驳回的记录也可以重新送审），obsolete 不是合法目标
func PlanReview(target models.DocumentStatus, comments string, now time.Time) (models.ReviewUpdate, error) {
	if !target.IsReviewTarget() {
		return models.ReviewUpdate{}, fmt.Errorf("review: status %q: %w", target, xerr.ErrInvalidReviewStatus)
	}

	u := models.ReviewUpdate{Status: target, Comments: comments}
	switch target {
	case models.StatusInReview:
		u.ReviewDate = &now
	case models.StatusApproved:
		u.ApprovalDate = &now
	}
	return u, nil
}
