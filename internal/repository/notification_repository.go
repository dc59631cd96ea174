package repository

import (
	"fyp_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

// CreateBatch 一次性持久化整批接收人的通知行。
// 持久化先于推送完成：推送丢失时这批记录就是兜底。
func (r *NotificationRepository) CreateBatch(notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.DB.Create(&notifications).Error
}

func (r *NotificationRepository) ListByReceiver(receiverID uint, page, pageSize int) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	query := r.DB.Model(&model.Notification{}).Where("receiver_id = ?", receiverID)
	query.Count(&total)

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&notifications).Error
	return notifications, total, err
}

func (r *NotificationRepository) CountUnread(receiverID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Notification{}).
		Where("receiver_id = ?", receiverID).
		Where("`read` = ?", false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(id string, receiverID uint) error {
	return r.DB.Model(&model.Notification{}).
		Where("id = ?", id).
		Where("receiver_id = ?", receiverID).
		Update("read", true).Error
}

func (r *NotificationRepository) MarkAllRead(receiverID uint) error {
	return r.DB.Model(&model.Notification{}).
		Where("receiver_id = ?", receiverID).
		Update("read", true).Error
}

func (r *NotificationRepository) DeleteByProjectID(projectID uint) error {
	return r.DB.Where("project_id = ?", projectID).Delete(&model.Notification{}).Error
}
