package handler

import (
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 站内通知处理器
type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// ListNotifications 本公司通知列表
// GET /api/v1/notifications?unread_only=true
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	page, pageSize := GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	items, total, err := h.svc.List(c.Request.Context(), GetCompanyID(c), page, pageSize, unreadOnly)
	if err != nil {
		InternalError(c, "获取通知列表失败: "+err.Error())
		return
	}
	Success(c, paginate(items, page, pageSize, total))
}

// GetUnreadCount 未读通知数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), GetCompanyID(c))
	if err != nil {
		InternalError(c, "获取未读数失败: "+err.Error())
		return
	}
	Success(c, gin.H{"count": count})
}

// MarkRead 标记通知已读
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("id"), GetCompanyID(c)); err != nil {
		InternalError(c, "标记已读失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// MarkAllRead 全部标记已读
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(c.Request.Context(), GetCompanyID(c)); err != nil {
		InternalError(c, "标记已读失败: "+err.Error())
		return
	}
	Success(c, nil)
}
