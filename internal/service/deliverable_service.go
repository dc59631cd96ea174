package service

import (
	"errors"
	"fmt"
	"fyp_backend/internal/model"
	"fyp_backend/internal/util"
	"fyp_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DeliverableStore 交付物记录存储
type DeliverableStore interface {
	GetByProjectID(projectID uint) (*model.DeliverableRecord, error)
	UpdateLocked(projectID uint, fn func(rec *model.DeliverableRecord) error) (*model.DeliverableRecord, error)
	DeleteByProjectID(projectID uint) error
}

// WorkflowRelay 工作流事件出口。投递失败只记日志，不阻塞动作本身。
type WorkflowRelay interface {
	Send(event RelayEvent) error
}

type DeliverableService struct {
	store    DeliverableStore
	projects ProjectResolver
	relay    WorkflowRelay
	now      func() time.Time
}

func NewDeliverableService(store DeliverableStore, projects ProjectResolver, relay WorkflowRelay) *DeliverableService {
	return &DeliverableService{
		store:    store,
		projects: projects,
		relay:    relay,
		now:      time.Now,
	}
}

func (s *DeliverableService) findProject(projectID uint) (*model.Project, error) {
	project, err := s.projects.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// Get 按项目取完整交付物记录
func (s *DeliverableService) Get(projectID uint) (*model.DeliverableRecord, error) {
	if _, err := s.findProject(projectID); err != nil {
		return nil, err
	}
	return s.store.GetByProjectID(projectID)
}

// pendingEvent 事务内收集、提交后才分发的事件
type pendingEvent struct {
	receivers []uint
	eventType model.NotificationType
	message   string
}

// Update 统一的评审更新入口：成绩/评语保存、初评提交、签署、发布
// 全部走同一条路径。角色与状态校验在持锁重读后的记录上进行，
// 两次并发签署不会都看到“尚未双签”而漏掉发布。
func (s *DeliverableService) Update(projectID, actorID uint, patch DeliverablePatch) (*model.DeliverableRecord, error) {
	if patch.IsEmpty() {
		return s.Get(projectID)
	}

	project, err := s.findProject(projectID)
	if err != nil {
		return nil, err
	}

	role, ok := reviewerRoleFor(project, actorID)
	if !ok {
		return nil, util.ErrPermissionDenied
	}

	// 第二评阅人只能动最终报告里自己的轨道
	if role == RoleSecondReader && (patch.OutlineDocument != nil || patch.ExtendedAbstract != nil) {
		return nil, util.ErrPermissionDenied
	}
	if patch.FinalReport != nil {
		if patch.FinalReport.touchesCounterpartTrack(role) {
			return nil, util.ErrPermissionDenied
		}
		if role == RoleSecondReader && patch.FinalReport.touchesConverged() {
			return nil, util.ErrPermissionDenied
		}
	}

	// 确保记录存在（懒创建）
	if _, err := s.store.GetByProjectID(projectID); err != nil {
		return nil, err
	}

	var events []pendingEvent
	rec, err := s.store.UpdateLocked(projectID, func(rec *model.DeliverableRecord) error {
		events = events[:0]

		if patch.OutlineDocument != nil {
			published, err := applySimplePatch(&rec.OutlineDocument, patch.OutlineDocument)
			if err != nil {
				return err
			}
			if published {
				events = append(events, publicationEvent(project, model.NotifOutlinePublished,
					fmt.Sprintf("项目《%s》的大纲评审结果已发布", project.Title)))
			}
		}

		if patch.ExtendedAbstract != nil {
			published, err := applySimplePatch(&rec.ExtendedAbstract, patch.ExtendedAbstract)
			if err != nil {
				return err
			}
			if published {
				events = append(events, publicationEvent(project, model.NotifAbstractPublished,
					fmt.Sprintf("项目《%s》的扩展摘要评审结果已发布", project.Title)))
			}
		}

		if patch.FinalReport != nil {
			reportEvents, err := s.applyReportPatch(&rec.FinalReport, patch.FinalReport, project, role)
			if err != nil {
				return err
			}
			events = append(events, reportEvents...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(actorID, projectID, events)
	return rec, nil
}

// applySimplePatch 简单交付物：Uploaded → Graded → Published。
// 评分动作幂等覆盖；发布是终态，之后不再接受改动。
func applySimplePatch(sub *model.SimpleDeliverable, p *SimpleDeliverablePatch) (published bool, err error) {
	if !validGrade(p.SupervisorGrade) {
		return false, util.ErrGradeOutOfRange
	}

	if sub.IsPublished {
		// 重复发布是无副作用的 no-op，其余改动一律拒绝
		if p.SupervisorGrade != nil || p.SupervisorFeedback != nil || p.FileURI != nil {
			return false, util.ErrPermissionDenied
		}
		return false, nil
	}

	if p.FileURI != nil {
		sub.FileURI = *p.FileURI
	}
	if p.UploadedAt != nil {
		sub.UploadedAt = p.UploadedAt
	}
	if p.SupervisorGrade != nil {
		sub.SupervisorGrade = p.SupervisorGrade
	}
	if p.SupervisorFeedback != nil {
		merged, err := mergeFeedback(sub.SupervisorFeedback, p.SupervisorFeedback)
		if err != nil {
			return false, err
		}
		sub.SupervisorFeedback = merged
	}

	if p.IsPublished != nil && *p.IsPublished {
		if sub.SupervisorGrade == nil {
			return false, util.ErrGradeMissing
		}
		if !sub.SupervisorFeedback.Complete() {
			return false, util.ErrFeedbackIncomplete
		}
		sub.IsPublished = true
		return true, nil
	}

	return false, nil
}

// applyReportPatch 最终报告：双轨初评 → 双方签署 → 自动发布
func (s *DeliverableService) applyReportPatch(report *model.FinalReportDeliverable, p *FinalReportPatch, project *model.Project, role ReviewerRole) ([]pendingEvent, error) {
	var events []pendingEvent
	accessor := reviewTracks[role]
	track := accessor.get(report)

	grade, feedback, submitted, signed := p.track(role)

	if !validGrade(grade) || !validGrade(p.SupervisorGrade) {
		return nil, util.ErrGradeOutOfRange
	}

	if report.IsPublished {
		// 发布后只容忍幂等的重复签署/发布标志
		if grade != nil || feedback != nil || p.SupervisorGrade != nil || p.SupervisorFeedback != nil {
			return nil, util.ErrPermissionDenied
		}
	}

	if grade != nil {
		track.Grade = grade
	}
	if feedback != nil {
		merged, err := mergeFeedback(track.Feedback, feedback)
		if err != nil {
			return nil, err
		}
		track.Feedback = merged
	}

	if submitted != nil && *submitted && !track.Submitted {
		track.Submitted = true
		events = append(events, counterpartEvent(project, role, accessor.submitEvent,
			fmt.Sprintf("项目《%s》的最终报告初评已提交", project.Title)))
	}

	if signed != nil && *signed && !track.Signed {
		// 未提交初评前的签署请求是不一致状态，显式拒绝
		if !track.Submitted {
			return nil, util.ErrNotSubmitted
		}
		track.Signed = true
		events = append(events, counterpartEvent(project, role, accessor.signEvent,
			fmt.Sprintf("项目《%s》的最终报告已由对方签署", project.Title)))
	}

	accessor.set(report, track)

	// 正式成绩（仅导师，发布给学生看到的就是这份）
	if p.SupervisorGrade != nil {
		report.SupervisorGrade = p.SupervisorGrade
	}
	if p.SupervisorFeedback != nil {
		merged, err := mergeFeedback(report.SupervisorFeedback, p.SupervisorFeedback)
		if err != nil {
			return nil, err
		}
		report.SupervisorFeedback = merged
	}

	// 显式发布请求必须双签在先
	if p.IsPublished != nil && *p.IsPublished && !report.IsPublished {
		if !(report.SupervisorSigned && report.SecondReaderSigned) {
			return nil, util.ErrNotSigned
		}
	}

	// 双签达成即发布。判断基于本事务持锁重读后的字段，
	// 而不是进入处理器之前捕获的快照。
	if report.SupervisorSigned && report.SecondReaderSigned && !report.IsPublished {
		report.IsPublished = true
		events = append(events, publicationEvent(project, model.NotifFinalReportPublished,
			fmt.Sprintf("项目《%s》的最终成绩已发布", project.Title)))
	}

	return events, nil
}

// Upload 学生在截止时间前上传交付物文件
func (s *DeliverableService) Upload(projectID, actorID uint, kind model.DeliverableKind, fileURI string) (*model.DeliverableRecord, error) {
	project, err := s.findProject(projectID)
	if err != nil {
		return nil, err
	}

	isStudent := false
	for _, st := range project.Students {
		if st.ID == actorID {
			isStudent = true
			break
		}
	}
	if !isStudent {
		return nil, util.ErrPermissionDenied
	}

	now := s.now()
	if project.Deadline != nil {
		due, ok := project.Deadline.For(kind)
		if !ok {
			return nil, util.ErrUnknownDeliverable
		}
		if now.After(due) {
			return nil, util.ErrDeadlinePassed
		}
	}

	if _, err := s.store.GetByProjectID(projectID); err != nil {
		return nil, err
	}

	return s.store.UpdateLocked(projectID, func(rec *model.DeliverableRecord) error {
		switch kind {
		case model.KindOutlineDocument, model.KindExtendedAbstract:
			sub := rec.Simple(kind)
			if sub.IsPublished {
				return util.ErrPermissionDenied
			}
			sub.FileURI = fileURI
			sub.UploadedAt = &now
		case model.KindFinalReport:
			if rec.FinalReport.IsPublished {
				return util.ErrPermissionDenied
			}
			rec.FinalReport.FileURI = fileURI
			rec.FinalReport.UploadedAt = &now
		default:
			return util.ErrUnknownDeliverable
		}
		return nil
	})
}

// Reveal 盲审揭示：请求方只有在双方都提交初评后才能看到对方的
func (s *DeliverableService) Reveal(projectID, actorID uint) (*CounterpartView, error) {
	project, err := s.findProject(projectID)
	if err != nil {
		return nil, err
	}
	role, ok := reviewerRoleFor(project, actorID)
	if !ok {
		return nil, util.ErrPermissionDenied
	}
	rec, err := s.store.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	return RevealCounterpart(rec, role)
}

// DeleteByProject 项目删除时级联清理交付物记录
func (s *DeliverableService) DeleteByProject(projectID uint) error {
	return s.store.DeleteByProjectID(projectID)
}

func publicationEvent(project *model.Project, eventType model.NotificationType, message string) pendingEvent {
	return pendingEvent{
		receivers: project.StudentIDs(),
		eventType: eventType,
		message:   message,
	}
}

func counterpartEvent(project *model.Project, role ReviewerRole, eventType model.NotificationType, message string) pendingEvent {
	var receivers []uint
	if id, ok := reviewerID(project, role.Counterpart()); ok {
		receivers = append(receivers, id)
	}
	return pendingEvent{
		receivers: receivers,
		eventType: eventType,
		message:   message,
	}
}

// dispatch 提交成功后的事件分发。中继失败不回滚已完成的迁移。
func (s *DeliverableService) dispatch(actorID, projectID uint, events []pendingEvent) {
	for _, ev := range events {
		if len(ev.receivers) == 0 {
			continue
		}
		err := s.relay.Send(RelayEvent{
			ActorID:     actorID,
			ReceiverIDs: ev.receivers,
			ProjectID:   projectID,
			Type:        ev.eventType,
			Message:     ev.message,
		})
		if err != nil {
			logger.Log.Error("relay send failed",
				zap.Uint("projectId", projectID),
				zap.String("type", string(ev.eventType)),
				zap.Error(err))
		}
	}
}
