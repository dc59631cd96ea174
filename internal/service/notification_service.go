package service

import (
	"errors"
	"fyp_backend/internal/model"
	"fyp_backend/internal/util"
	"fyp_backend/pkg/logger"
	"fyp_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelayEvent 工作流迁移产生的待分发事件
type RelayEvent struct {
	ActorID     uint                   `json:"actorId"`
	ReceiverIDs []uint                 `json:"receiverIds"`
	ProjectID   uint                   `json:"projectId"`
	Type        model.NotificationType `json:"eventType"`
	Message     string                 `json:"message"`
}

// NotificationStore 通知的持久层（两级投递模型的可靠层）
type NotificationStore interface {
	CreateBatch(notifications []model.Notification) error
	ListByReceiver(receiverID uint, page, pageSize int) ([]model.Notification, int64, error)
	CountUnread(receiverID uint) (int64, error)
	MarkRead(id string, receiverID uint) error
	MarkAllRead(receiverID uint) error
	DeleteByProjectID(projectID uint) error
}

// ReceiverDirectory 校验接收人身份引用有效
type ReceiverDirectory interface {
	CountExisting(ids []uint) (int64, error)
}

// ProjectResolver 校验事件关联的项目引用有效
type ProjectResolver interface {
	FindByID(id uint) (*model.Project, error)
}

// EventPusher 实时推送层（两级投递模型的尽力层）
type EventPusher interface {
	Push(userIDs []uint, msg WSMessage)
	IsUserOnline(userID uint) bool
}

type NotificationService struct {
	repo     NotificationStore
	users    ReceiverDirectory
	projects ProjectResolver
	hub      EventPusher
}

func NewNotificationService(repo NotificationStore, users ReceiverDirectory, projects ProjectResolver, hub EventPusher) *NotificationService {
	return &NotificationService{repo: repo, users: users, projects: projects, hub: hub}
}

// Send 分发一个工作流事件：先落库，再对在线接收人尽力推送。
// 校验失败整批拒绝，不做部分投递；推送未命中只记日志，绝不回传给触发方。
func (s *NotificationService) Send(event RelayEvent) error {
	if len(event.ReceiverIDs) == 0 {
		return util.ErrNoReceivers
	}

	count, err := s.users.CountExisting(event.ReceiverIDs)
	if err != nil {
		return err
	}
	if count != int64(len(event.ReceiverIDs)) {
		return util.ErrInvalidReceiver
	}

	// 系统广播不关联项目，其余事件的项目引用必须有效
	if event.ProjectID != 0 {
		if _, err := s.projects.FindByID(event.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrProjectNotFound
			}
			return err
		}
	}

	notifications := make([]model.Notification, 0, len(event.ReceiverIDs))
	for _, receiverID := range event.ReceiverIDs {
		notifications = append(notifications, model.Notification{
			ActorID:    event.ActorID,
			ReceiverID: receiverID,
			ProjectID:  event.ProjectID,
			Type:       event.Type,
			Message:    event.Message,
		})
	}

	// 持久化先行：推送只是优化，这批记录才是事实来源
	if err := s.repo.CreateBatch(notifications); err != nil {
		return err
	}

	for i := range notifications {
		n := &notifications[i]
		if !s.hub.IsUserOnline(n.ReceiverID) {
			// DeliveryMiss：离线接收人靠下次轮询取回
			monitoring.RelayDeliveryMisses.Inc()
			logger.Log.Debug("relay delivery miss",
				zap.Uint("receiverId", n.ReceiverID),
				zap.String("type", string(n.Type)))
			continue
		}
		s.hub.Push([]uint{n.ReceiverID}, WSMessage{
			Type: string(n.Type),
			Data: n,
		})
	}

	return nil
}

func (s *NotificationService) ListForUser(userID uint, page, pageSize int) ([]model.Notification, int64, error) {
	return s.repo.ListByReceiver(userID, page, pageSize)
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.repo.CountUnread(userID)
}

func (s *NotificationService) MarkRead(id string, userID uint) error {
	return s.repo.MarkRead(id, userID)
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.repo.MarkAllRead(userID)
}

func (s *NotificationService) DeleteByProject(projectID uint) error {
	return s.repo.DeleteByProjectID(projectID)
}

// Broadcast 管理员系统公告，复用同一条中继通道
func (s *NotificationService) Broadcast(actorID uint, receiverIDs []uint, message string) error {
	return s.Send(RelayEvent{
		ActorID:     actorID,
		ReceiverIDs: receiverIDs,
		Type:        model.NotifSystemBroadcast,
		Message:     message,
	})
}
