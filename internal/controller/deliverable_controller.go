package controller

import (
	"errors"
	"fmt"
	"fyp_backend/internal/model"
	"fyp_backend/internal/service"
	"fyp_backend/internal/util"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DeliverableController struct {
	service *service.DeliverableService
	storage *service.StorageService
}

func NewDeliverableController(s *service.DeliverableService, storage *service.StorageService) *DeliverableController {
	return &DeliverableController{service: s, storage: storage}
}

// respondServiceError 服务层错误到 HTTP 状态码的统一映射
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrProjectNotFound),
		errors.Is(err, util.ErrDeliverableNotFound),
		errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrGradeOutOfRange),
		errors.Is(err, util.ErrGradeMissing),
		errors.Is(err, util.ErrFeedbackIncomplete),
		errors.Is(err, util.ErrNotSubmitted),
		errors.Is(err, util.ErrNotSigned),
		errors.Is(err, util.ErrDeadlinePassed),
		errors.Is(err, util.ErrUnknownCategory),
		errors.Is(err, util.ErrUnknownDeliverable),
		errors.Is(err, util.ErrNoReceivers),
		errors.Is(err, util.ErrInvalidReceiver):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// GetDeliverables godoc
// @Summary 获取项目的交付物记录
// @Description 返回项目大纲、扩展摘要、最终报告三个子记录的完整状态
// @Tags 交付物评审
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Success 200 {object} util.Response{data=model.DeliverableRecord}
// @Failure 404 {object} util.Response
// @Router /api/projects/{projectId}/deliverables [get]
func (c *DeliverableController) GetDeliverables(ctx *gin.Context) {
	projectID := util.MustParseUint(ctx.Param("projectId"))

	rec, err := c.service.Get(projectID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, rec)
}

// UpdateDeliverables godoc
// @Summary 增量更新交付物记录
// @Description 成绩/评语保存、初评提交、签署、发布共用本接口，按出现的字段区分动作
// @Tags 交付物评审
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Param body body service.DeliverablePatch true "增量字段"
// @Success 200 {object} util.Response{data=model.DeliverableRecord}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/projects/{projectId}/deliverables [put]
func (c *DeliverableController) UpdateDeliverables(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	projectID := util.MustParseUint(ctx.Param("projectId"))

	var patch service.DeliverablePatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rec, err := c.service.Update(projectID, user.UserID, patch)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, rec)
}

// UploadDeliverable godoc
// @Summary 学生上传交付物文件
// @Description 截止时间之后的上传会被拒绝
// @Tags 交付物评审
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Param kind path string true "交付物类型" Enums(outline_document, extended_abstract, final_report)
// @Param file formData file true "文件"
// @Success 200 {object} util.Response{data=model.DeliverableRecord}
// @Failure 400 {object} util.Response
// @Router /api/projects/{projectId}/deliverables/{kind}/upload [post]
func (c *DeliverableController) UploadDeliverable(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	projectID := util.MustParseUint(ctx.Param("projectId"))
	kind := model.DeliverableKind(ctx.Param("kind"))

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	allowed := false
	for _, e := range util.AllowedDeliverableExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		util.BadRequest(ctx, "unsupported file type")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	filename := fmt.Sprintf("deliverables/%d/%s/%d%s", projectID, kind, time.Now().UnixNano(), ext)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = util.MimeOctetStream
	}

	uri, err := c.storage.Upload(ctx.Request.Context(), filename, src, fileHeader.Size, contentType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	rec, err := c.service.Upload(projectID, user.UserID, kind, uri)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, rec)
}

// RevealCounterpart godoc
// @Summary 查看对方的最终报告初评
// @Description 盲审门控：双方都提交初评后才可见，否则返回 available=false
// @Tags 交付物评审
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path int true "项目ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/projects/{projectId}/deliverables/final-report/counterpart [get]
func (c *DeliverableController) RevealCounterpart(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	projectID := util.MustParseUint(ctx.Param("projectId"))

	view, err := c.service.Reveal(projectID, user.UserID)
	if err != nil {
		// 未满足揭示条件不是错误，是“尚不可见”
		if errors.Is(err, util.ErrNotRevealed) {
			util.Success(ctx, gin.H{"available": false})
			return
		}
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"available": true, "review": view})
}
