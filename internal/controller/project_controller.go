package controller

import (
	"fyp_backend/internal/service"
	"fyp_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProjectController struct {
	service *service.ProjectService
}

func NewProjectController(s *service.ProjectService) *ProjectController {
	return &ProjectController{service: s}
}

type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DeadlineID  *uint  `json:"deadlineId"`
}

// CreateProject godoc
// @Summary 创建项目
// @Tags 项目管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateProjectRequest true "项目信息"
// @Success 201 {object} util.Response{data=model.Project}
// @Router /api/projects [post]
func (c *ProjectController) CreateProject(ctx *gin.Context) {
	var req CreateProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	project, err := c.service.Create(req.Title, req.Description, req.DeadlineID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Created(ctx, project)
}

// GetProject godoc
// @Summary 项目详情
// @Tags 项目管理
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Success 200 {object} util.Response{data=model.Project}
// @Failure 404 {object} util.Response
// @Router /api/projects/{projectId} [get]
func (c *ProjectController) GetProject(ctx *gin.Context) {
	projectID := util.MustParseUint(ctx.Param("projectId"))

	project, err := c.service.Get(projectID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, project)
}

// ListProjects godoc
// @Summary 项目列表
// @Tags 项目管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param pageSize query int false "每页条数" default(10)
// @Success 200 {object} util.Response{data=map[string]interface{}}
// @Router /api/projects [get]
func (c *ProjectController) ListProjects(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("pageSize", "10"))

	projects, total, err := c.service.List(page, pageSize)
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	util.Success(ctx, gin.H{
		"items": projects,
		"total": total,
		"page":  page,
		"pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

type AssignRequest struct {
	UserID uint `json:"userId" binding:"required"`
}

// AssignSupervisor godoc
// @Summary 指派导师
// @Description 首次指派导师时创建该项目的交付物记录
// @Tags 项目管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Param body body AssignRequest true "导师用户ID"
// @Success 200 {object} util.Response{data=model.Project}
// @Router /api/projects/{projectId}/supervisor [put]
func (c *ProjectController) AssignSupervisor(ctx *gin.Context) {
	projectID := util.MustParseUint(ctx.Param("projectId"))

	var req AssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	project, err := c.service.AssignSupervisor(projectID, req.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, project)
}

// AssignSecondReader godoc
// @Summary 指派第二评阅人
// @Tags 项目管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Param body body AssignRequest true "第二评阅人用户ID"
// @Success 200 {object} util.Response{data=model.Project}
// @Router /api/projects/{projectId}/second-reader [put]
func (c *ProjectController) AssignSecondReader(ctx *gin.Context) {
	projectID := util.MustParseUint(ctx.Param("projectId"))

	var req AssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	project, err := c.service.AssignSecondReader(projectID, req.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, project)
}

// AddStudent godoc
// @Summary 添加项目学生
// @Tags 项目管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Param body body AssignRequest true "学生用户ID"
// @Success 200 {object} util.Response{data=model.Project}
// @Router /api/projects/{projectId}/students [post]
func (c *ProjectController) AddStudent(ctx *gin.Context) {
	projectID := util.MustParseUint(ctx.Param("projectId"))

	var req AssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	project, err := c.service.AddStudent(projectID, req.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, project)
}

// DeleteProject godoc
// @Summary 删除项目
// @Description 级联删除项目的交付物记录与相关通知
// @Tags 项目管理
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Success 200 {object} util.Response
// @Router /api/projects/{projectId} [delete]
func (c *ProjectController) DeleteProject(ctx *gin.Context) {
	projectID := util.MustParseUint(ctx.Param("projectId"))

	if err := c.service.Delete(projectID); err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
