package handler

import (
	"strconv"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
)

// RFQHandler 询价单处理器
type RFQHandler struct {
	svc *service.RFQService
}

func NewRFQHandler(svc *service.RFQService) *RFQHandler {
	return &RFQHandler{svc: svc}
}

// ListRFQs 本公司询价单列表
// GET /api/v1/rfqs?status=xxx&search=xxx
func (h *RFQHandler) ListRFQs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), GetCompanyID(c),
		page, pageSize, c.Query("status"), c.Query("search"))
	if err != nil {
		InternalError(c, "获取询价单列表失败: "+err.Error())
		return
	}
	Success(c, paginate(items, page, pageSize, total))
}

// ListIncoming 面向本公司开放报价的询价单
// GET /api/v1/rfqs/incoming
func (h *RFQHandler) ListIncoming(c *gin.Context) {
	items, err := h.svc.Incoming(c.Request.Context(), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// GetRFQ 询价单详情
// GET /api/v1/rfqs/:id
func (h *RFQHandler) GetRFQ(c *gin.Context) {
	rfq, err := h.svc.Get(c.Request.Context(), c.Param("id"), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rfq)
}

// CreateRFQ 创建询价单
// POST /api/v1/rfqs
func (h *RFQHandler) CreateRFQ(c *gin.Context) {
	var req service.CreateRFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	rfq, err := h.svc.Create(c.Request.Context(), GetCompanyID(c), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, rfq)
}

// UpdateRFQ 更新询价单
// PUT /api/v1/rfqs/:id
func (h *RFQHandler) UpdateRFQ(c *gin.Context) {
	var req service.UpdateRFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	rfq, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetCompanyID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rfq)
}

// DeleteRFQ 删除询价单（软删）
// DELETE /api/v1/rfqs/:id
func (h *RFQHandler) DeleteRFQ(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// === 状态迁移 ===

// PublishRFQ 发布询价单
// POST /api/v1/rfqs/:id/publish
func (h *RFQHandler) PublishRFQ(c *gin.Context) {
	rfq, err := h.svc.Publish(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rfq)
}

// StartReview 进入评审态
// POST /api/v1/rfqs/:id/start-review
func (h *RFQHandler) StartReview(c *gin.Context) {
	rfq, err := h.svc.StartReview(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rfq)
}

// CloseRFQ 关闭询价单
// POST /api/v1/rfqs/:id/close
func (h *RFQHandler) CloseRFQ(c *gin.Context) {
	rfq, err := h.svc.Close(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rfq)
}

// CompleteRFQ 完成询价单
// POST /api/v1/rfqs/:id/complete
func (h *RFQHandler) CompleteRFQ(c *gin.Context) {
	rfq, err := h.svc.Complete(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rfq)
}

// CancelRFQ 作废询价单
// POST /api/v1/rfqs/:id/cancel
func (h *RFQHandler) CancelRFQ(c *gin.Context) {
	rfq, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rfq)
}

// === 行项 ===

// AddItem 追加询价行项
// POST /api/v1/rfqs/:id/items
func (h *RFQHandler) AddItem(c *gin.Context) {
	var req service.CreateRFQItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.AddItem(c.Request.Context(), c.Param("id"), GetCompanyID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, item)
}

// UpdateItem 更新询价行项
// PUT /api/v1/rfq-items/:itemId
func (h *RFQHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateRFQItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("itemId"), GetCompanyID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, item)
}

// RemoveItem 移除询价行项
// DELETE /api/v1/rfq-items/:itemId
func (h *RFQHandler) RemoveItem(c *gin.Context) {
	if err := h.svc.RemoveItem(c.Request.Context(), c.Param("itemId"), GetCompanyID(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// === 联系人 ===

// AddContact 追加联系人
// POST /api/v1/rfqs/:id/contacts
func (h *RFQHandler) AddContact(c *gin.Context) {
	var req service.RFQContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	contact, err := h.svc.AddContact(c.Request.Context(), c.Param("id"), GetCompanyID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, contact)
}

// RemoveContact 移除联系人
// DELETE /api/v1/rfq-contacts/:contactId
func (h *RFQHandler) RemoveContact(c *gin.Context) {
	if err := h.svc.RemoveContact(c.Request.Context(), c.Param("contactId"), GetCompanyID(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// GetActivity 询价单操作日志
// GET /api/v1/rfqs/:id/activity
func (h *RFQHandler) GetActivity(c *gin.Context) {
	logs, err := h.svc.Activity(c.Request.Context(), c.Param("id"), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, logs)
}

// parseDaysQuery 解析days查询参数，缺省或非法取默认值
func parseDaysQuery(c *gin.Context, fallback int) int {
	if d := c.Query("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
