package service

import (
	"errors"
	"fyp_backend/internal/model"
	"fyp_backend/internal/repository"
	"fyp_backend/internal/util"

	"gorm.io/gorm"
)

type ProjectService struct {
	projects      *repository.ProjectRepository
	users         *repository.UserRepository
	deliverables  *repository.DeliverableRepository
	notifications *repository.NotificationRepository
}

func NewProjectService(projects *repository.ProjectRepository, users *repository.UserRepository, deliverables *repository.DeliverableRepository, notifications *repository.NotificationRepository) *ProjectService {
	return &ProjectService{
		projects:      projects,
		users:         users,
		deliverables:  deliverables,
		notifications: notifications,
	}
}

func (s *ProjectService) Create(title, description string, deadlineID *uint) (*model.Project, error) {
	project := &model.Project{
		Title:       title,
		Description: description,
		DeadlineID:  deadlineID,
	}
	if err := s.projects.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Get(id uint) (*model.Project, error) {
	project, err := s.projects.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProjectNotFound
	}
	return project, err
}

func (s *ProjectService) List(page, pageSize int) ([]model.Project, int64, error) {
	return s.projects.List(page, pageSize)
}

// AssignSupervisor 指派导师。交付物记录随首次指派创建，
// 此后该项目的评审工作流才可用。
func (s *ProjectService) AssignSupervisor(projectID, userID uint) (*model.Project, error) {
	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}

	staff, err := s.users.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	if staff.Role != model.Staff && staff.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}

	project.SupervisorID = &staff.ID
	if err := s.projects.Update(project); err != nil {
		return nil, err
	}

	// 幂等：记录已存在时 GetByProjectID 直接返回
	if _, err := s.deliverables.GetByProjectID(projectID); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *ProjectService) AssignSecondReader(projectID, userID uint) (*model.Project, error) {
	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}

	staff, err := s.users.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	if staff.Role != model.Staff && staff.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}

	// 导师与第二评阅人必须是不同的人
	if project.SupervisorID != nil && *project.SupervisorID == staff.ID {
		return nil, util.ErrPermissionDenied
	}

	project.SecondReaderID = &staff.ID
	if err := s.projects.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) AddStudent(projectID, userID uint) (*model.Project, error) {
	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}

	student, err := s.users.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	if student.Role != model.Student {
		return nil, util.ErrPermissionDenied
	}

	if err := s.projects.AddStudent(project.ID, student); err != nil {
		return nil, err
	}
	return s.Get(projectID)
}

// Delete 删除项目并级联清理交付物记录与相关通知
func (s *ProjectService) Delete(projectID uint) error {
	if _, err := s.Get(projectID); err != nil {
		return err
	}
	if err := s.deliverables.DeleteByProjectID(projectID); err != nil {
		return err
	}
	if err := s.notifications.DeleteByProjectID(projectID); err != nil {
		return err
	}
	return s.projects.Delete(projectID)
}
