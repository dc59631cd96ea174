package controller

import (
	"fyp_backend/internal/model"
	"fyp_backend/internal/service"
	"fyp_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	service *service.NotificationService
	Hub     *service.NotifyHub
}

func NewNotificationController(s *service.NotificationService, hub *service.NotifyHub) *NotificationController {
	return &NotificationController{service: s, Hub: hub}
}

// HandleWS godoc
// @Summary WebSocket 连接
// @Description 建立 WebSocket 连接以接收实时工作流事件，连接即注册在线状态
// @Tags 通知中继
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/ws [get]
func (c *NotificationController) HandleWS(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}

// ListNotifications godoc
// @Summary 轮询我的通知
// @Description 持久化通知列表，离线期间错过的推送在这里取回
// @Tags 通知中继
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param pageSize query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=map[string]interface{}}
// @Router /api/notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("pageSize", "20"))

	notifications, total, err := c.service.ListForUser(user.UserID, page, pageSize)
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	util.Success(ctx, gin.H{
		"items": notifications,
		"total": total,
		"page":  page,
		"pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// UnreadCount godoc
// @Summary 未读通知数
// @Tags 通知中继
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=map[string]int64}
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	count, err := c.service.UnreadCount(user.UserID)
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	util.Success(ctx, gin.H{"count": count})
}

// MarkRead godoc
// @Summary 标记单条通知已读
// @Tags 通知中继
// @Produce json
// @Security BearerAuth
// @Param notificationId path string true "通知ID"
// @Success 200 {object} util.Response
// @Router /api/notifications/{notificationId}/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.service.MarkRead(ctx.Param("notificationId"), user.UserID); err != nil {
		util.InternalServerError(ctx)
		return
	}

	util.Success(ctx, nil)
}

// MarkAllRead godoc
// @Summary 标记全部通知已读
// @Tags 通知中继
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/notifications/read-all [put]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.service.MarkAllRead(user.UserID); err != nil {
		util.InternalServerError(ctx)
		return
	}

	util.Success(ctx, nil)
}

type BroadcastRequest struct {
	ReceiverIDs []uint `json:"receiverIds" binding:"required"`
	Message     string `json:"message" binding:"required"`
}

// Broadcast godoc
// @Summary 管理员系统公告
// @Description 复用通知中继向指定用户群发系统广播
// @Tags 通知中继
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BroadcastRequest true "广播内容"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/notifications/broadcast [post]
func (c *NotificationController) Broadcast(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	if user.Role != model.Admin {
		util.Forbidden(ctx)
		return
	}

	var req BroadcastRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.service.Broadcast(user.UserID, req.ReceiverIDs, req.Message); err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
