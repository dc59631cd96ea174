package repository

import (
	"errors"
	"fyp_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliverableRepository struct {
	DB *gorm.DB
}

func NewDeliverableRepository(db *gorm.DB) *DeliverableRepository {
	return &DeliverableRepository{DB: db}
}

// GetByProjectID 按项目取交付物记录；项目存在但记录缺失时懒创建
func (r *DeliverableRepository) GetByProjectID(projectID uint) (*model.DeliverableRecord, error) {
	var rec model.DeliverableRecord
	err := r.DB.Where("project_id = ?", projectID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var project model.Project
		if err := r.DB.First(&project, projectID).Error; err != nil {
			return nil, err
		}
		rec = model.DeliverableRecord{
			ProjectID:  projectID,
			DeadlineID: project.DeadlineID,
		}
		rec.NormalizeFeedback()
		if err := r.DB.Create(&rec).Error; err != nil {
			return nil, err
		}
		return &rec, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateLocked 在事务内以行锁重读记录后执行 fn 并保存。
// 发布门控必须基于锁内读到的最新状态判断，避免两次并发签署互相丢失更新。
func (r *DeliverableRepository) UpdateLocked(projectID uint, fn func(rec *model.DeliverableRecord) error) (*model.DeliverableRecord, error) {
	var out *model.DeliverableRecord
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var rec model.DeliverableRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project_id = ?", projectID).
			First(&rec).Error; err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		out = &rec
		return nil
	})
	return out, err
}

func (r *DeliverableRepository) DeleteByProjectID(projectID uint) error {
	return r.DB.Where("project_id = ?", projectID).Delete(&model.DeliverableRecord{}).Error
}
