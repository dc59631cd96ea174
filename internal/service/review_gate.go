package service

import (
	"fyp_backend/internal/model"
	"fyp_backend/internal/util"
)

// CounterpartView 向请求方披露的对方初评内容
// swagger:model
type CounterpartView struct {
	Role     ReviewerRole      `json:"role"`
	Grade    *int              `json:"grade"`
	Feedback model.FeedbackSet `json:"feedback"`
}

// RevealCounterpart 盲审揭示门：只有在 (a) 对方已提交初评 且
// (b) 请求方自己也已提交 时才投影出对方的初评内容。
// 门控发生在读取时刻，存储层始终保留双方轨道。
func RevealCounterpart(rec *model.DeliverableRecord, requester ReviewerRole) (*CounterpartView, error) {
	own, ok := reviewTracks[requester]
	if !ok {
		return nil, util.ErrPermissionDenied
	}
	other := reviewTracks[requester.Counterpart()]

	if !own.get(&rec.FinalReport).Submitted {
		return nil, util.ErrNotRevealed
	}
	counterTrack := other.get(&rec.FinalReport)
	if !counterTrack.Submitted {
		return nil, util.ErrNotRevealed
	}

	return &CounterpartView{
		Role:     requester.Counterpart(),
		Grade:    counterTrack.Grade,
		Feedback: counterTrack.Feedback.Normalize(),
	}, nil
}
