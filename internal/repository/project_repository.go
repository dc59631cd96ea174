package repository

import (
	"fyp_backend/internal/model"

	"gorm.io/gorm"
)

type ProjectRepository struct {
	DB *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{DB: db}
}

func (r *ProjectRepository) Create(project *model.Project) error {
	return r.DB.Create(project).Error
}

func (r *ProjectRepository) FindByID(id uint) (*model.Project, error) {
	var project model.Project
	err := r.DB.
		Preload("Supervisor").
		Preload("SecondReader").
		Preload("Deadline").
		Preload("Students").
		First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Update(project *model.Project) error {
	return r.DB.Save(project).Error
}

func (r *ProjectRepository) List(page, pageSize int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	query := r.DB.Model(&model.Project{})
	query.Count(&total)

	offset := (page - 1) * pageSize
	err := query.
		Preload("Supervisor").
		Preload("SecondReader").
		Offset(offset).Limit(pageSize).
		Find(&projects).Error
	return projects, total, err
}

func (r *ProjectRepository) AddStudent(projectID uint, student *model.User) error {
	return r.DB.Model(&model.Project{BaseModel: model.BaseModel{ID: projectID}}).
		Association("Students").Append(student)
}

func (r *ProjectRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Project{BaseModel: model.BaseModel{ID: id}}).
			Association("Students").Clear(); err != nil {
			return err
		}
		return tx.Delete(&model.Project{}, id).Error
	})
}
