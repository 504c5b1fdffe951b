package handler

import (
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
)

// CompanyHandler 公司侧视图处理器（套餐用量等）
type CompanyHandler struct {
	quotaSvc *service.QuotaService
}

func NewCompanyHandler(quotaSvc *service.QuotaService) *CompanyHandler {
	return &CompanyHandler{quotaSvc: quotaSvc}
}

// GetPackageUsage 本公司套餐用量报告
// GET /api/v1/company/package-usage
func (h *CompanyHandler) GetPackageUsage(c *gin.Context) {
	usage, err := h.quotaSvc.Usage(c.Request.Context(), GetCompanyID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, usage)
}
