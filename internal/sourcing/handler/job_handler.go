package handler

import (
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
)

// JobHandler 定时任务触发端点（由外部调度器调用）
type JobHandler struct {
	rfqSvc *service.RFQService
}

func NewJobHandler(rfqSvc *service.RFQService) *JobHandler {
	return &JobHandler{rfqSvc: rfqSvc}
}

// CloseExpired 批量关闭过期询价单
// POST /api/v1/jobs/close-expired
func (h *JobHandler) CloseExpired(c *gin.Context) {
	count, err := h.rfqSvc.CloseExpired(c.Request.Context())
	if err != nil {
		InternalError(c, "过期询价单关闭失败: "+err.Error())
		return
	}
	Success(c, gin.H{"closed": count})
}

// NotifyExpiring 发送临期提醒
// POST /api/v1/jobs/notify-expiring?days=3
func (h *JobHandler) NotifyExpiring(c *gin.Context) {
	days := parseDaysQuery(c, 3)
	count, err := h.rfqSvc.NotifyExpiring(c.Request.Context(), days)
	if err != nil {
		InternalError(c, "临期提醒发送失败: "+err.Error())
		return
	}
	Success(c, gin.H{"notified": count})
}
