package handler

import (
	"strconv"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
)

// Handlers 采购询报价处理器集合
type Handlers struct {
	RFQ          *RFQHandler
	Quotation    *QuotationHandler
	Notification *NotificationHandler
	Company      *CompanyHandler
	Job          *JobHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(
	rfqSvc *service.RFQService,
	quotationSvc *service.QuotationService,
	comparisonSvc *service.ComparisonService,
	notificationSvc *service.NotificationService,
	quotaSvc *service.QuotaService,
) *Handlers {
	return &Handlers{
		RFQ:          NewRFQHandler(rfqSvc),
		Quotation:    NewQuotationHandler(quotationSvc, comparisonSvc),
		Notification: NewNotificationHandler(notificationSvc),
		Company:      NewCompanyHandler(quotaSvc),
		Job:          NewJobHandler(rfqSvc),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError 业务错误映射：按错误种类选HTTP状态码
func RespondError(c *gin.Context, err error) {
	bizErr := service.AsError(err)
	if bizErr == nil {
		InternalError(c, err.Error())
		return
	}
	switch bizErr.Kind {
	case service.KindNotFound:
		NotFound(c, bizErr.Message)
	case service.KindQuotaExceeded:
		c.JSON(403, Response{
			Code:    40320,
			Message: bizErr.Message,
			Data:    gin.H{"limit_type": bizErr.LimitType},
		})
	case service.KindDuplicateQuotation:
		Conflict(c, bizErr.Message)
	case service.KindInvalidState, service.KindExpired, service.KindNoItems,
		service.KindSelfQuotation, service.KindInvalidRange:
		BadRequest(c, bizErr.Message)
	default:
		InternalError(c, bizErr.Message)
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetCompanyID 当前登录用户所属公司（JWT claims）
func GetCompanyID(c *gin.Context) string {
	companyID, _ := c.Get("company_id")
	if id, ok := companyID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func paginate(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
