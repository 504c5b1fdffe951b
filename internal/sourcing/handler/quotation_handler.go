package handler

import (
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
)

// QuotationHandler 报价单处理器（含比价）
type QuotationHandler struct {
	svc        *service.QuotationService
	comparison *service.ComparisonService
}

func NewQuotationHandler(svc *service.QuotationService, comparison *service.ComparisonService) *QuotationHandler {
	return &QuotationHandler{svc: svc, comparison: comparison}
}

// ListQuotations 本公司（供应商侧）报价单列表
// GET /api/v1/quotations?status=xxx
func (h *QuotationHandler) ListQuotations(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), GetCompanyID(c), page, pageSize, c.Query("status"))
	if err != nil {
		InternalError(c, "获取报价单列表失败: "+err.Error())
		return
	}
	Success(c, paginate(items, page, pageSize, total))
}

// GetQuotation 报价单详情
// GET /api/v1/quotations/:id
func (h *QuotationHandler) GetQuotation(c *gin.Context) {
	quotation, err := h.svc.Get(c.Request.Context(), c.Param("id"), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// CreateQuotation 创建报价单
// POST /api/v1/quotations
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	var req service.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	quotation, err := h.svc.Create(c.Request.Context(), GetCompanyID(c), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, quotation)
}

// UpdateQuotation 更新报价单
// PUT /api/v1/quotations/:id
func (h *QuotationHandler) UpdateQuotation(c *gin.Context) {
	var req service.UpdateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	quotation, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetCompanyID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// DeleteQuotation 删除报价单（软删，仅草稿态）
// DELETE /api/v1/quotations/:id
func (h *QuotationHandler) DeleteQuotation(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// === 状态迁移（供应商侧） ===

// SubmitQuotation 提交报价
// POST /api/v1/quotations/:id/submit
func (h *QuotationHandler) SubmitQuotation(c *gin.Context) {
	quotation, err := h.svc.Submit(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// WithdrawQuotation 撤回报价
// POST /api/v1/quotations/:id/withdraw
func (h *QuotationHandler) WithdrawQuotation(c *gin.Context) {
	quotation, err := h.svc.Withdraw(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// === 行项 ===

// AddItem 追加报价行项
// POST /api/v1/quotations/:id/items
func (h *QuotationHandler) AddItem(c *gin.Context) {
	var req service.CreateQuotationItemRequest
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

// UpdateItem 更新报价行项
// PUT /api/v1/quotation-items/:itemId
func (h *QuotationHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateQuotationItemRequest
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

// RemoveItem 移除报价行项
// DELETE /api/v1/quotation-items/:itemId
func (h *QuotationHandler) RemoveItem(c *gin.Context) {
	if err := h.svc.RemoveItem(c.Request.Context(), c.Param("itemId"), GetCompanyID(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// RecalculateQuotation 重算报价总额
// POST /api/v1/quotations/:id/recalculate
func (h *QuotationHandler) RecalculateQuotation(c *gin.Context) {
	quotation, err := h.svc.Recalculate(c.Request.Context(), c.Param("id"), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// === 审批（买方侧） ===

// ApproveItem 批准报价行项
// POST /api/v1/quotation-items/:itemId/approve
func (h *QuotationHandler) ApproveItem(c *gin.Context) {
	var req service.ApproveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	quotation, err := h.svc.ApproveItem(c.Request.Context(), c.Param("itemId"), GetCompanyID(c), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// RejectItem 拒绝报价行项
// POST /api/v1/quotation-items/:itemId/reject
func (h *QuotationHandler) RejectItem(c *gin.Context) {
	var req service.RejectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	quotation, err := h.svc.RejectItem(c.Request.Context(), c.Param("itemId"), GetCompanyID(c), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// ApproveAll 全量批准所有未决行项
// POST /api/v1/quotations/:id/approve-all
func (h *QuotationHandler) ApproveAll(c *gin.Context) {
	quotation, err := h.svc.ApproveAll(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// FinalizeQuotation 报价定案
// POST /api/v1/quotations/:id/finalize
func (h *QuotationHandler) FinalizeQuotation(c *gin.Context) {
	quotation, err := h.svc.Finalize(c.Request.Context(), c.Param("id"), GetCompanyID(c), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quotation)
}

// === 买方评审视角 ===

// ListByRFQ 某询价单下已提交的报价
// GET /api/v1/rfqs/:id/quotations
func (h *QuotationHandler) ListByRFQ(c *gin.Context) {
	items, err := h.svc.ListByRFQ(c.Request.Context(), c.Param("id"), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// GetComparison 比价矩阵
// GET /api/v1/rfqs/:id/comparison
func (h *QuotationHandler) GetComparison(c *gin.Context) {
	matrix, err := h.comparison.BuildMatrix(c.Request.Context(), c.Param("id"), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, matrix)
}
