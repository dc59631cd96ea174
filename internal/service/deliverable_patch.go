package service

import (
	"fyp_backend/internal/model"
	"fyp_backend/internal/util"
	"time"
)

// SimpleDeliverablePatch 简单交付物的增量更新。
// 指针字段：nil 表示不改动，兄弟字段原样保留。
type SimpleDeliverablePatch struct {
	FileURI            *string           `json:"fileUri"`
	UploadedAt         *time.Time        `json:"uploadedAt"`
	SupervisorGrade    *int              `json:"supervisorGrade"`
	SupervisorFeedback map[string]string `json:"supervisorFeedback"`
	IsPublished        *bool             `json:"isPublished"`
}

// FinalReportPatch 最终报告的增量更新（双轨初评 + 签署 + 正式成绩）
type FinalReportPatch struct {
	SupervisorInitialGrade     *int              `json:"supervisorInitialGrade"`
	SupervisorInitialFeedback  map[string]string `json:"supervisorInitialFeedback"`
	SupervisorInitialSubmitted *bool             `json:"supervisorInitialSubmitted"`

	SecondReaderInitialGrade     *int              `json:"secondReaderInitialGrade"`
	SecondReaderInitialFeedback  map[string]string `json:"secondReaderInitialFeedback"`
	SecondReaderInitialSubmitted *bool             `json:"secondReaderInitialSubmitted"`

	SupervisorSigned   *bool `json:"supervisorSigned"`
	SecondReaderSigned *bool `json:"secondReaderSigned"`

	SupervisorGrade    *int              `json:"supervisorGrade"`
	SupervisorFeedback map[string]string `json:"supervisorFeedback"`
	IsPublished        *bool             `json:"isPublished"`
}

// DeliverablePatch 一次 PUT 请求携带的全部增量。
// 成绩保存、提交标志、签署标志、发布标志共用同一形状，
// 区别只在于哪些字段出现。
type DeliverablePatch struct {
	OutlineDocument  *SimpleDeliverablePatch `json:"outlineDocument"`
	ExtendedAbstract *SimpleDeliverablePatch `json:"extendedAbstract"`
	FinalReport      *FinalReportPatch       `json:"finalReport"`
}

// IsEmpty 没有任何字段需要更新
func (p *DeliverablePatch) IsEmpty() bool {
	return p.OutlineDocument == nil && p.ExtendedAbstract == nil && p.FinalReport == nil
}

// mergeFeedback 按维度合并评语，未出现的维度保持原值
func mergeFeedback(dst model.FeedbackSet, patch map[string]string) (model.FeedbackSet, error) {
	out := dst.Normalize()
	for category, text := range patch {
		if _, ok := out[category]; !ok {
			return nil, util.ErrUnknownCategory
		}
		out[category] = text
	}
	return out, nil
}

// track 取该角色初评轨在 patch 中的增量
func (p *FinalReportPatch) track(role ReviewerRole) (grade *int, feedback map[string]string, submitted *bool, signed *bool) {
	if role == RoleSupervisor {
		return p.SupervisorInitialGrade, p.SupervisorInitialFeedback, p.SupervisorInitialSubmitted, p.SupervisorSigned
	}
	return p.SecondReaderInitialGrade, p.SecondReaderInitialFeedback, p.SecondReaderInitialSubmitted, p.SecondReaderSigned
}

// touchesCounterpartTrack patch 是否动到了对方角色的轨道
func (p *FinalReportPatch) touchesCounterpartTrack(role ReviewerRole) bool {
	grade, feedback, submitted, signed := p.track(role.Counterpart())
	return grade != nil || feedback != nil || submitted != nil || signed != nil
}

// touchesConverged patch 是否动到了正式成绩/评语或发布标志
func (p *FinalReportPatch) touchesConverged() bool {
	return p.SupervisorGrade != nil || p.SupervisorFeedback != nil || p.IsPublished != nil
}
