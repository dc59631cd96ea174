package service

import (
	"fyp_backend/internal/model"
)

// ReviewerRole 最终报告的两个评审角色
type ReviewerRole string

const (
	RoleSupervisor   ReviewerRole = "supervisor"
	RoleSecondReader ReviewerRole = "second_reader"
)

// Counterpart 返回对方评审角色
func (r ReviewerRole) Counterpart() ReviewerRole {
	if r == RoleSupervisor {
		return RoleSecondReader
	}
	return RoleSupervisor
}

// reviewerRoleFor 按项目指派解析操作人的评审角色。
// 角色校验先于一切更改：身份与项目记录不符时动作直接失败。
func reviewerRoleFor(project *model.Project, userID uint) (ReviewerRole, bool) {
	if project.SupervisorID != nil && *project.SupervisorID == userID {
		return RoleSupervisor, true
	}
	if project.SecondReaderID != nil && *project.SecondReaderID == userID {
		return RoleSecondReader, true
	}
	return "", false
}

func reviewerID(project *model.Project, role ReviewerRole) (uint, bool) {
	switch role {
	case RoleSupervisor:
		if project.SupervisorID != nil {
			return *project.SupervisorID, true
		}
	case RoleSecondReader:
		if project.SecondReaderID != nil {
			return *project.SecondReaderID, true
		}
	}
	return 0, false
}

// ProvisionalTrack 一个评审角色的初评轨快照
type ProvisionalTrack struct {
	Grade     *int
	Feedback  model.FeedbackSet
	Submitted bool
	Signed    bool
}

// trackAccessor 角色到字段集的映射。两个角色做的是同一种迁移，
// 只是落在不同字段上，统一成查表后一个通用处理器即可。
type trackAccessor struct {
	get         func(r *model.FinalReportDeliverable) ProvisionalTrack
	set         func(r *model.FinalReportDeliverable, t ProvisionalTrack)
	submitEvent model.NotificationType
	signEvent   model.NotificationType
}

var reviewTracks = map[ReviewerRole]trackAccessor{
	RoleSupervisor: {
		get: func(r *model.FinalReportDeliverable) ProvisionalTrack {
			return ProvisionalTrack{
				Grade:     r.SupervisorInitialGrade,
				Feedback:  r.SupervisorInitialFeedback,
				Submitted: r.SupervisorInitialSubmitted,
				Signed:    r.SupervisorSigned,
			}
		},
		set: func(r *model.FinalReportDeliverable, t ProvisionalTrack) {
			r.SupervisorInitialGrade = t.Grade
			r.SupervisorInitialFeedback = t.Feedback
			r.SupervisorInitialSubmitted = t.Submitted
			r.SupervisorSigned = t.Signed
		},
		submitEvent: model.NotifSupervisorProvisionalSubmitted,
		signEvent:   model.NotifSupervisorSigned,
	},
	RoleSecondReader: {
		get: func(r *model.FinalReportDeliverable) ProvisionalTrack {
			return ProvisionalTrack{
				Grade:     r.SecondReaderInitialGrade,
				Feedback:  r.SecondReaderInitialFeedback,
				Submitted: r.SecondReaderInitialSubmitted,
				Signed:    r.SecondReaderSigned,
			}
		},
		set: func(r *model.FinalReportDeliverable, t ProvisionalTrack) {
			r.SecondReaderInitialGrade = t.Grade
			r.SecondReaderInitialFeedback = t.Feedback
			r.SecondReaderInitialSubmitted = t.Submitted
			r.SecondReaderSigned = t.Signed
		},
		submitEvent: model.NotifSecondReaderProvisionalSubmitted,
		signEvent:   model.NotifSecondReaderSigned,
	},
}

// validGrade 成绩取值约束 [0,100]
func validGrade(g *int) bool {
	return g == nil || (*g >= 0 && *g <= 100)
}
