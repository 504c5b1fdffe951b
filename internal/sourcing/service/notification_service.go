package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/shared/push"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier 通知协作方。生命周期服务只依赖这组窄接口，
// 投递失败由实现方消化，绝不反向影响状态迁移
type Notifier interface {
	NotifyNewRFQ(ctx context.Context, rfqID string)
	NotifyNewQuotation(ctx context.Context, quotationID string)
	NotifyQuotationApproved(ctx context.Context, quotationID string)
	NotifyQuotationRejected(ctx context.Context, quotationID string)
	NotifyRFQExpiring(ctx context.Context, rfqID string, daysRemaining int)
}

// NotificationService 站内通知服务，同时实现Notifier
type NotificationService struct {
	repo          *repository.NotificationRepository
	rfqRepo       *repository.RFQRepository
	quotationRepo *repository.QuotationRepository
	companyRepo   *repository.CompanyRepository
	pushClient    *push.Client
	logger        *zap.Logger
}

func NewNotificationService(
	repo *repository.NotificationRepository,
	rfqRepo *repository.RFQRepository,
	quotationRepo *repository.QuotationRepository,
	companyRepo *repository.CompanyRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:          repo,
		rfqRepo:       rfqRepo,
		quotationRepo: quotationRepo,
		companyRepo:   companyRepo,
		logger:        logger,
	}
}

// SetPushClient 注入推送网关客户端（可选）
func (s *NotificationService) SetPushClient(pc *push.Client) {
	s.pushClient = pc
}

// NotifyNewRFQ 新RFQ发布：扇出给同行业的其他公司
func (s *NotificationService) NotifyNewRFQ(ctx context.Context, rfqID string) {
	rfq, err := s.rfqRepo.FindByID(ctx, rfqID)
	if err != nil {
		s.logger.Warn("新RFQ通知：读取RFQ失败", zap.String("rfq_id", rfqID), zap.Error(err))
		return
	}

	companyIDs, err := s.companyRepo.FindIDsBySector(ctx, rfq.SectorID, rfq.CompanyID)
	if err != nil {
		s.logger.Warn("新RFQ通知：查询行业公司失败", zap.String("rfq_id", rfqID), zap.Error(err))
		return
	}

	ns := make([]entity.Notification, 0, len(companyIDs))
	for _, companyID := range companyIDs {
		ns = append(ns, entity.Notification{
			ID:        newID(),
			CompanyID: companyID,
			Type:      entity.NotificationTypeNewRFQ,
			Title:     "新询价单发布",
			Message:   fmt.Sprintf("询价单《%s》已发布，报价截止 %s", rfq.Title, rfq.EndDate.Format("2006-01-02")),
			RFQID:     &rfq.ID,
		})
	}
	s.deliver(ctx, ns)
}

// NotifyNewQuotation 收到新报价：通知RFQ归属公司
func (s *NotificationService) NotifyNewQuotation(ctx context.Context, quotationID string) {
	quotation, rfq, ok := s.loadQuotationWithRFQ(ctx, quotationID, "新报价通知")
	if !ok {
		return
	}

	supplierName := "供应商"
	if quotation.Supplier != nil {
		supplierName = quotation.Supplier.Name
	}

	s.deliver(ctx, []entity.Notification{{
		ID:          newID(),
		CompanyID:   rfq.CompanyID,
		Type:        entity.NotificationTypeNewQuotation,
		Title:       "收到新报价",
		Message:     fmt.Sprintf("《%s》收到来自 %s 的新报价", rfq.Title, supplierName),
		RFQID:       &rfq.ID,
		QuotationID: &quotation.ID,
	}})
}

// NotifyQuotationApproved 报价被批准：通知供应商
func (s *NotificationService) NotifyQuotationApproved(ctx context.Context, quotationID string) {
	quotation, rfq, ok := s.loadQuotationWithRFQ(ctx, quotationID, "报价批准通知")
	if !ok {
		return
	}

	s.deliver(ctx, []entity.Notification{{
		ID:          newID(),
		CompanyID:   quotation.SupplierID,
		Type:        entity.NotificationTypeQuotationApproved,
		Title:       "报价已批准",
		Message:     fmt.Sprintf("您对《%s》的报价已被批准", rfq.Title),
		RFQID:       &rfq.ID,
		QuotationID: &quotation.ID,
	}})
}

// NotifyQuotationRejected 报价被拒绝：通知供应商
func (s *NotificationService) NotifyQuotationRejected(ctx context.Context, quotationID string) {
	quotation, rfq, ok := s.loadQuotationWithRFQ(ctx, quotationID, "报价拒绝通知")
	if !ok {
		return
	}

	s.deliver(ctx, []entity.Notification{{
		ID:          newID(),
		CompanyID:   quotation.SupplierID,
		Type:        entity.NotificationTypeQuotationRejected,
		Title:       "报价已拒绝",
		Message:     fmt.Sprintf("您对《%s》的报价已被拒绝", rfq.Title),
		RFQID:       &rfq.ID,
		QuotationID: &quotation.ID,
	}})
}

// NotifyRFQExpiring 截止提醒：通知RFQ归属公司，以及仍有草稿报价的供应商
func (s *NotificationService) NotifyRFQExpiring(ctx context.Context, rfqID string, daysRemaining int) {
	rfq, err := s.rfqRepo.FindByID(ctx, rfqID)
	if err != nil {
		s.logger.Warn("截止提醒：读取RFQ失败", zap.String("rfq_id", rfqID), zap.Error(err))
		return
	}

	ns := []entity.Notification{{
		ID:        newID(),
		CompanyID: rfq.CompanyID,
		Type:      entity.NotificationTypeRFQExpiring,
		Title:     "询价单即将截止",
		Message:   fmt.Sprintf("询价单《%s》将在 %d 天后截止", rfq.Title, daysRemaining),
		RFQID:     &rfq.ID,
	}}

	supplierIDs, err := s.companyRepo.FindSuppliersWithDraftQuotation(ctx, rfqID)
	if err != nil {
		s.logger.Warn("截止提醒：查询草稿报价供应商失败", zap.String("rfq_id", rfqID), zap.Error(err))
	}
	for _, supplierID := range supplierIDs {
		ns = append(ns, entity.Notification{
			ID:        newID(),
			CompanyID: supplierID,
			Type:      entity.NotificationTypeRFQExpiring,
			Title:     "报价窗口即将关闭",
			Message:   fmt.Sprintf("《%s》将在 %d 天后截止，您还有未提交的草稿报价", rfq.Title, daysRemaining),
			RFQID:     &rfq.ID,
		})
	}
	s.deliver(ctx, ns)
}

// === 查询侧 ===

// List 某公司的通知列表
func (s *NotificationService) List(ctx context.Context, companyID string, page, pageSize int, unreadOnly bool) ([]entity.Notification, int64, error) {
	return s.repo.FindByCompany(ctx, companyID, page, pageSize, unreadOnly)
}

// UnreadCount 未读数
func (s *NotificationService) UnreadCount(ctx context.Context, companyID string) (int64, error) {
	return s.repo.CountUnread(ctx, companyID)
}

// MarkRead 标记已读
func (s *NotificationService) MarkRead(ctx context.Context, id, companyID string) error {
	return s.repo.MarkRead(ctx, id, companyID, time.Now())
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(ctx context.Context, companyID string) error {
	return s.repo.MarkAllRead(ctx, companyID, time.Now())
}

// deliver 落库并尽力推送。任何失败只记日志
func (s *NotificationService) deliver(ctx context.Context, ns []entity.Notification) {
	if len(ns) == 0 {
		return
	}
	if err := s.repo.CreateBatch(ctx, ns); err != nil {
		s.logger.Warn("通知落库失败", zap.Int("count", len(ns)), zap.Error(err))
		return
	}
	if s.pushClient == nil {
		return
	}
	for _, n := range ns {
		if err := s.pushClient.Send(ctx, n.CompanyID, n.Title, n.Message); err != nil {
			s.logger.Warn("通知推送失败",
				zap.String("notification_id", n.ID),
				zap.String("company_id", n.CompanyID),
				zap.Error(err))
		}
	}
}

func (s *NotificationService) loadQuotationWithRFQ(ctx context.Context, quotationID, action string) (*entity.Quotation, *entity.RFQ, bool) {
	quotation, err := s.quotationRepo.FindByID(ctx, quotationID)
	if err != nil {
		s.logger.Warn(action+"：读取报价单失败", zap.String("quotation_id", quotationID), zap.Error(err))
		return nil, nil, false
	}
	rfq, err := s.rfqRepo.FindByID(ctx, quotation.RFQID)
	if err != nil {
		s.logger.Warn(action+"：读取RFQ失败", zap.String("rfq_id", quotation.RFQID), zap.Error(err))
		return nil, nil, false
	}
	return quotation, rfq, true
}

// newID 生成32位实体ID
func newID() string {
	return uuid.New().String()[:32]
}
