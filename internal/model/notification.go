package model

type NotificationType string

// 工作流状态迁移对应的事件类型
const (
	NotifSupervisorProvisionalSubmitted   NotificationType = "SUPERVISOR_PROVISIONAL_SUBMITTED"
	NotifSecondReaderProvisionalSubmitted NotificationType = "SECOND_READER_PROVISIONAL_SUBMITTED"
	NotifSupervisorSigned                 NotificationType = "SUPERVISOR_SIGNED"
	NotifSecondReaderSigned               NotificationType = "SECOND_READER_SIGNED"
	NotifOutlinePublished                 NotificationType = "OUTLINE_PUBLISHED"
	NotifAbstractPublished                NotificationType = "ABSTRACT_PUBLISHED"
	NotifFinalReportPublished             NotificationType = "FINAL_REPORT_PUBLISHED"
	NotifSystemBroadcast                  NotificationType = "SYSTEM_BROADCAST"
)

// Notification 持久化通知，每个接收人一行。
// 推送只是优化：接收人离线时靠下次轮询取回这条记录。
// swagger:model
type Notification struct {
	UUIDBase
	ActorID    uint             `gorm:"index;comment:触发人ID" json:"actorId"`
	ReceiverID uint             `gorm:"index;not null;comment:接收人ID" json:"receiverId"`
	ProjectID  uint             `gorm:"index;comment:关联项目ID" json:"projectId"`
	Type       NotificationType `gorm:"size:64;not null" json:"type"`
	Message    string           `gorm:"type:text" json:"message"`
	Read       bool             `gorm:"default:false" json:"read"`
}

func (Notification) TableName() string {
	return "notifications"
}
