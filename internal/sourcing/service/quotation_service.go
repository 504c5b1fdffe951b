package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
	"gorm.io/gorm"
)

// QuotationService 报价单生命周期服务
type QuotationService struct {
	db           *gorm.DB
	repo         *repository.QuotationRepository
	rfqRepo      *repository.RFQRepository
	activityRepo *repository.ActivityLogRepository
	sequence     *SequenceService
	notifier     Notifier
	now          func() time.Time
}

func NewQuotationService(
	db *gorm.DB,
	repo *repository.QuotationRepository,
	rfqRepo *repository.RFQRepository,
	activityRepo *repository.ActivityLogRepository,
	sequence *SequenceService,
) *QuotationService {
	return &QuotationService{
		db:           db,
		repo:         repo,
		rfqRepo:      rfqRepo,
		activityRepo: activityRepo,
		sequence:     sequence,
		now:          time.Now,
	}
}

// SetNotifier 注入通知器（可选）
func (s *QuotationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock 注入时钟，仅测试用
func (s *QuotationService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateQuotationRequest 创建报价单请求
type CreateQuotationRequest struct {
	RFQID      string                       `json:"rfq_id" binding:"required"`
	ValidUntil *time.Time                   `json:"valid_until"`
	Items      []CreateQuotationItemRequest `json:"items"`
}

// CreateQuotationItemRequest 创建报价行项请求
type CreateQuotationItemRequest struct {
	RFQItemID       string     `json:"rfq_item_id" binding:"required"`
	UnitPrice       float64    `json:"unit_price" binding:"required,gt=0"`
	OfferedQuantity float64    `json:"offered_quantity" binding:"required,gt=0"`
	DeliveryDate    *time.Time `json:"delivery_date"`
}

// Create 创建报价单（草稿态）。
// 前置校验：RFQ已发布且窗口未截止、不可给自家RFQ报价、同一RFQ不可有重复在途报价
func (s *QuotationService) Create(ctx context.Context, supplierID, userID string, req *CreateQuotationRequest) (*entity.Quotation, error) {
	rfq, err := s.rfqRepo.FindByID(ctx, req.RFQID)
	if err != nil {
		return nil, translateNotFound(err, "询价单不存在")
	}
	if rfq.Status != entity.RFQStatusPublished {
		return nil, newError(KindInvalidState, "询价单未在接收报价")
	}
	if !rfq.EndDate.After(s.now()) {
		return nil, newError(KindExpired, "询价单报价窗口已截止")
	}
	if rfq.CompanyID == supplierID {
		return nil, newError(KindSelfQuotation, "不能对本公司发布的询价单报价")
	}

	existing, err := s.repo.FindActiveByRFQAndSupplier(ctx, req.RFQID, supplierID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(KindDuplicateQuotation, "该询价单已有在途报价，不可重复创建")
	}

	rfqItems := make(map[string]bool, len(rfq.Items))
	for _, item := range rfq.Items {
		rfqItems[item.ID] = true
	}

	number, err := s.sequence.NextNumber(ctx, FamilyQuotation)
	if err != nil {
		return nil, fmt.Errorf("生成报价单编号失败: %w", err)
	}

	quotation := &entity.Quotation{
		ID:              newID(),
		QuotationNumber: number,
		RFQID:           req.RFQID,
		SupplierID:      supplierID,
		Status:          entity.QuotationStatusDraft,
		ValidUntil:      req.ValidUntil,
		IsActive:        true,
		CreatedBy:       userID,
	}
	var total float64
	for i, item := range req.Items {
		if !rfqItems[item.RFQItemID] {
			return nil, newError(KindNotFound, "报价行项引用的询价行项不存在")
		}
		lineTotal := item.UnitPrice * item.OfferedQuantity
		total += lineTotal
		quotation.Items = append(quotation.Items, entity.QuotationItem{
			ID:              newID(),
			QuotationID:     quotation.ID,
			RFQItemID:       item.RFQItemID,
			UnitPrice:       item.UnitPrice,
			OfferedQuantity: item.OfferedQuantity,
			TotalPrice:      lineTotal,
			DeliveryDate:    item.DeliveryDate,
			ApprovalStatus:  entity.ApprovalStatusPending,
			IsActive:        true,
			SortOrder:       i + 1,
		})
	}
	quotation.TotalAmount = total

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, quotation)
	})
	if err != nil {
		return nil, fmt.Errorf("创建报价单失败: %w", err)
	}

	s.logActivity(ctx, quotation.ID, "create", "", entity.QuotationStatusDraft, userID, quotation.QuotationNumber)
	return s.repo.FindByID(ctx, quotation.ID)
}

// UpdateQuotationRequest 更新报价单请求（仅草稿态）
type UpdateQuotationRequest struct {
	ValidUntil *time.Time `json:"valid_until"`
}

// Update 更新报价单基础信息（仅草稿态）
func (s *QuotationService) Update(ctx context.Context, id, supplierID string, req *UpdateQuotationRequest) (*entity.Quotation, error) {
	quotation, err := s.getOwned(ctx, id, supplierID)
	if err != nil {
		return nil, err
	}
	if quotation.Status != entity.QuotationStatusDraft {
		return nil, newError(KindInvalidState, "仅草稿态报价单可修改")
	}
	if req.ValidUntil != nil {
		quotation.ValidUntil = req.ValidUntil
	}
	if err := s.repo.Update(ctx, quotation); err != nil {
		return nil, fmt.Errorf("更新报价单失败: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

// Delete 软删除报价单（仅草稿态）
func (s *QuotationService) Delete(ctx context.Context, id, supplierID, userID string) error {
	quotation, err := s.getOwned(ctx, id, supplierID)
	if err != nil {
		return err
	}
	if quotation.Status != entity.QuotationStatusDraft {
		return newError(KindInvalidState, "仅草稿态报价单可删除")
	}
	quotation.IsActive = false
	if err := s.repo.Update(ctx, quotation); err != nil {
		return fmt.Errorf("删除报价单失败: %w", err)
	}
	s.logActivity(ctx, id, "delete", quotation.Status, quotation.Status, userID, "")
	return nil
}

// === 行项 ===

// AddItem 追加报价行项（仅草稿态），重算总额
func (s *QuotationService) AddItem(ctx context.Context, quotationID, supplierID string, req *CreateQuotationItemRequest) (*entity.QuotationItem, error) {
	quotation, err := s.getOwned(ctx, quotationID, supplierID)
	if err != nil {
		return nil, err
	}
	if quotation.Status != entity.QuotationStatusDraft {
		return nil, newError(KindInvalidState, "仅草稿态报价单可增删行项")
	}

	rfqItem, _, err := s.rfqRepo.FindItemByID(ctx, req.RFQItemID)
	if err != nil {
		return nil, translateNotFound(err, "询价行项不存在")
	}
	if rfqItem.RFQID != quotation.RFQID {
		return nil, newError(KindNotFound, "询价行项不属于该询价单")
	}

	item := &entity.QuotationItem{
		ID:              newID(),
		QuotationID:     quotationID,
		RFQItemID:       req.RFQItemID,
		UnitPrice:       req.UnitPrice,
		OfferedQuantity: req.OfferedQuantity,
		TotalPrice:      req.UnitPrice * req.OfferedQuantity,
		DeliveryDate:    req.DeliveryDate,
		ApprovalStatus:  entity.ApprovalStatusPending,
		IsActive:        true,
		SortOrder:       len(quotation.Items) + 1,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("添加报价行项失败: %w", err)
	}
	if err := s.RecalculateTotal(ctx, quotationID); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateQuotationItemRequest 更新报价行项请求
type UpdateQuotationItemRequest struct {
	UnitPrice       *float64   `json:"unit_price"`
	OfferedQuantity *float64   `json:"offered_quantity"`
	DeliveryDate    *time.Time `json:"delivery_date"`
}

// UpdateItem 更新报价行项（仅草稿态），重算行小计与总额
func (s *QuotationService) UpdateItem(ctx context.Context, itemID, supplierID string, req *UpdateQuotationItemRequest) (*entity.QuotationItem, error) {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, translateNotFound(err, "报价行项不存在")
	}
	quotation, err := s.getOwned(ctx, item.QuotationID, supplierID)
	if err != nil {
		return nil, err
	}
	if quotation.Status != entity.QuotationStatusDraft {
		return nil, newError(KindInvalidState, "仅草稿态报价单可修改行项")
	}

	if req.UnitPrice != nil {
		if *req.UnitPrice <= 0 {
			return nil, newError(KindInvalidRange, "单价必须大于零")
		}
		item.UnitPrice = *req.UnitPrice
	}
	if req.OfferedQuantity != nil {
		if *req.OfferedQuantity <= 0 {
			return nil, newError(KindInvalidRange, "报价数量必须大于零")
		}
		item.OfferedQuantity = *req.OfferedQuantity
	}
	if req.DeliveryDate != nil {
		item.DeliveryDate = req.DeliveryDate
	}
	item.TotalPrice = item.UnitPrice * item.OfferedQuantity

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("更新报价行项失败: %w", err)
	}
	if err := s.RecalculateTotal(ctx, item.QuotationID); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem 移除报价行项（软删，仅草稿态），重算总额
func (s *QuotationService) RemoveItem(ctx context.Context, itemID, supplierID string) error {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return translateNotFound(err, "报价行项不存在")
	}
	quotation, err := s.getOwned(ctx, item.QuotationID, supplierID)
	if err != nil {
		return err
	}
	if quotation.Status != entity.QuotationStatusDraft {
		return newError(KindInvalidState, "仅草稿态报价单可移除行项")
	}
	item.IsActive = false
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return err
	}
	return s.RecalculateTotal(ctx, item.QuotationID)
}

// RecalculateTotal 以有效行项小计之和重算报价总额
func (s *QuotationService) RecalculateTotal(ctx context.Context, quotationID string) error {
	total, err := s.repo.SumActiveItemTotals(ctx, quotationID)
	if err != nil {
		return fmt.Errorf("报价总额重算失败: %w", err)
	}
	return s.repo.UpdateTotalAmount(ctx, quotationID, total)
}

// Recalculate 供应商主动触发的总额重算
func (s *QuotationService) Recalculate(ctx context.Context, id, supplierID string) (*entity.Quotation, error) {
	if _, err := s.getOwned(ctx, id, supplierID); err != nil {
		return nil, err
	}
	if err := s.RecalculateTotal(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// === 状态迁移（供应商侧）===

// Submit 提交报价。要求草稿态、至少一条有效行项、RFQ仍在接收报价
func (s *QuotationService) Submit(ctx context.Context, id, supplierID, userID string) (*entity.Quotation, error) {
	quotation, err := s.getOwned(ctx, id, supplierID)
	if err != nil {
		return nil, err
	}
	if quotation.Status != entity.QuotationStatusDraft {
		return nil, newError(KindInvalidState, fmt.Sprintf("当前状态 %s 不可提交", quotation.Status))
	}

	items, err := s.repo.FindActiveItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, newError(KindNoItems, "报价单没有有效行项，无法提交")
	}

	rfq, err := s.rfqRepo.FindByID(ctx, quotation.RFQID)
	if err != nil {
		return nil, translateNotFound(err, "询价单不存在")
	}
	if rfq.Status != entity.RFQStatusPublished {
		return nil, newError(KindInvalidState, "询价单已停止接收报价")
	}
	if !rfq.EndDate.After(s.now()) {
		return nil, newError(KindExpired, "询价单报价窗口已截止")
	}

	if err := s.transition(ctx, quotation, entity.QuotationStatusSubmitted, "submit", userID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		go s.notifier.NotifyNewQuotation(context.WithoutCancel(ctx), id)
	}
	return s.repo.FindByID(ctx, id)
}

// Withdraw 撤回已提交的报价。撤回后可对同一询价单重新报价
func (s *QuotationService) Withdraw(ctx context.Context, id, supplierID, userID string) (*entity.Quotation, error) {
	quotation, err := s.getOwned(ctx, id, supplierID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, quotation, entity.QuotationStatusWithdrawn, "withdraw", userID); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// === 行项审批（买方侧）===

// ApproveItemRequest 批准报价行项请求
type ApproveItemRequest struct {
	// 为空表示按报价数量全量批准
	ApprovedQuantity *float64 `json:"approved_quantity"`
}

// ApproveItem 批准单条报价行项。所有行项都有结论后报价单自动定状态
func (s *QuotationService) ApproveItem(ctx context.Context, itemID, companyID, userID string, req *ApproveItemRequest) (*entity.Quotation, error) {
	item, quotation, err := s.getItemForReview(ctx, itemID, companyID)
	if err != nil {
		return nil, err
	}

	item.ApprovalStatus = entity.ApprovalStatusApproved
	item.RejectReason = ""
	if req != nil && req.ApprovedQuantity != nil {
		if *req.ApprovedQuantity <= 0 || *req.ApprovedQuantity > item.OfferedQuantity {
			return nil, newError(KindInvalidRange, "批准数量必须大于零且不超过报价数量")
		}
		item.ApprovedQuantity = req.ApprovedQuantity
	} else {
		qty := item.OfferedQuantity
		item.ApprovedQuantity = &qty
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("报价行项审批失败: %w", err)
	}
	s.logActivity(ctx, quotation.ID, "approve_item", "", item.ApprovalStatus, userID, itemID)
	return s.settleApproval(ctx, quotation, userID)
}

// RejectItemRequest 拒绝报价行项请求
type RejectItemRequest struct {
	Reason string `json:"reason"`
}

// RejectItem 拒绝单条报价行项
func (s *QuotationService) RejectItem(ctx context.Context, itemID, companyID, userID string, req *RejectItemRequest) (*entity.Quotation, error) {
	item, quotation, err := s.getItemForReview(ctx, itemID, companyID)
	if err != nil {
		return nil, err
	}

	item.ApprovalStatus = entity.ApprovalStatusRejected
	item.ApprovedQuantity = nil
	if req != nil {
		item.RejectReason = req.Reason
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("报价行项审批失败: %w", err)
	}
	s.logActivity(ctx, quotation.ID, "reject_item", "", entity.ApprovalStatusRejected, userID, itemID)
	return s.settleApproval(ctx, quotation, userID)
}

// ApproveAll 全量批准所有行项（已有结论的一并覆盖为批准）
func (s *QuotationService) ApproveAll(ctx context.Context, quotationID, companyID, userID string) (*entity.Quotation, error) {
	quotation, err := s.getForReview(ctx, quotationID, companyID)
	if err != nil {
		return nil, err
	}
	if quotation.Status != entity.QuotationStatusSubmitted {
		return nil, newError(KindInvalidState, "仅已提交的报价单可审批")
	}

	items, err := s.repo.FindActiveItems(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		qty := items[i].OfferedQuantity
		items[i].ApprovalStatus = entity.ApprovalStatusApproved
		items[i].ApprovedQuantity = &qty
		items[i].RejectReason = ""
	}
	if err := s.repo.UpdateItems(ctx, items); err != nil {
		return nil, fmt.Errorf("报价单审批失败: %w", err)
	}
	s.logActivity(ctx, quotationID, "approve_all", "", entity.ApprovalStatusApproved, userID, "")

	if err := s.transition(ctx, quotation, entity.QuotationStatusApproved, "settle_approval", userID); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		go s.notifier.NotifyQuotationApproved(context.WithoutCancel(ctx), quotationID)
	}
	return s.repo.FindByID(ctx, quotationID)
}

// Finalize 报价定案（下单确认），approved/partially_approved可定案
func (s *QuotationService) Finalize(ctx context.Context, id, companyID, userID string) (*entity.Quotation, error) {
	quotation, err := s.getForReview(ctx, id, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, quotation, entity.QuotationStatusCompleted, "finalize", userID); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// settleApproval 聚合行项审批结论：全部批准→approved，全部拒绝→rejected；
// 仍有pending或批准拒绝并存时保持submitted，不做进一步推断
func (s *QuotationService) settleApproval(ctx context.Context, quotation *entity.Quotation, userID string) (*entity.Quotation, error) {
	items, err := s.repo.FindActiveItems(ctx, quotation.ID)
	if err != nil {
		return nil, err
	}

	allApproved := true
	allRejected := true
	for _, item := range items {
		switch item.ApprovalStatus {
		case entity.ApprovalStatusApproved:
			allRejected = false
		case entity.ApprovalStatusRejected:
			allApproved = false
		default: // pending
			return s.repo.FindByID(ctx, quotation.ID)
		}
	}

	var to string
	switch {
	case allApproved:
		to = entity.QuotationStatusApproved
	case allRejected:
		to = entity.QuotationStatusRejected
	default:
		return s.repo.FindByID(ctx, quotation.ID)
	}

	if err := s.transition(ctx, quotation, to, "settle_approval", userID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if to == entity.QuotationStatusRejected {
			go s.notifier.NotifyQuotationRejected(context.WithoutCancel(ctx), quotation.ID)
		} else {
			go s.notifier.NotifyQuotationApproved(context.WithoutCancel(ctx), quotation.ID)
		}
	}
	return s.repo.FindByID(ctx, quotation.ID)
}

func (s *QuotationService) transition(ctx context.Context, quotation *entity.Quotation, to, action, userID string) error {
	if !entity.QuotationTransitions.Can(quotation.Status, to) {
		return newError(KindInvalidState, fmt.Sprintf("报价单状态不可由 %s 迁移到 %s", quotation.Status, to))
	}
	ok, err := s.repo.TransitionStatus(ctx, quotation.ID, quotation.Status, to)
	if err != nil {
		return fmt.Errorf("报价单状态迁移失败: %w", err)
	}
	if !ok {
		return newError(KindInvalidState, "报价单状态已被并发修改，请刷新后重试")
	}
	s.logActivity(ctx, quotation.ID, action, quotation.Status, to, userID, "")
	quotation.Status = to
	return nil
}

// === 查询 ===

// List 本公司（供应商侧）报价单列表
func (s *QuotationService) List(ctx context.Context, supplierID string, page, pageSize int, status string) ([]entity.Quotation, int64, error) {
	filters := map[string]string{"supplier_id": supplierID}
	if status != "" {
		filters["status"] = status
	}
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 报价单详情。供应商本方可见，RFQ归属公司仅见已提交之后的
func (s *QuotationService) Get(ctx context.Context, id, companyID string) (*entity.Quotation, error) {
	quotation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, "报价单不存在")
	}
	if quotation.SupplierID == companyID {
		return quotation, nil
	}
	rfq, err := s.rfqRepo.FindByID(ctx, quotation.RFQID)
	if err != nil {
		return nil, translateNotFound(err, "报价单不存在")
	}
	if rfq.CompanyID != companyID || quotation.Status == entity.QuotationStatusDraft {
		return nil, newError(KindNotFound, "报价单不存在")
	}
	return quotation, nil
}

// ListByRFQ 某询价单下已提交的报价（买方评审视角）
func (s *QuotationService) ListByRFQ(ctx context.Context, rfqID, companyID string) ([]entity.Quotation, error) {
	rfq, err := s.rfqRepo.FindByID(ctx, rfqID)
	if err != nil {
		return nil, translateNotFound(err, "询价单不存在")
	}
	if rfq.CompanyID != companyID {
		return nil, newError(KindNotFound, "询价单不存在")
	}
	return s.repo.FindSubmittedByRFQ(ctx, rfqID)
}

func (s *QuotationService) getOwned(ctx context.Context, id, supplierID string) (*entity.Quotation, error) {
	quotation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, "报价单不存在")
	}
	if quotation.SupplierID != supplierID {
		return nil, newError(KindNotFound, "报价单不存在")
	}
	return quotation, nil
}

// getForReview 买方视角取报价单，校验RFQ归属
func (s *QuotationService) getForReview(ctx context.Context, id, companyID string) (*entity.Quotation, error) {
	quotation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, "报价单不存在")
	}
	rfq, err := s.rfqRepo.FindByID(ctx, quotation.RFQID)
	if err != nil {
		return nil, translateNotFound(err, "询价单不存在")
	}
	if rfq.CompanyID != companyID {
		return nil, newError(KindNotFound, "报价单不存在")
	}
	return quotation, nil
}

// getItemForReview 买方视角取报价行项，要求报价单处于submitted
func (s *QuotationService) getItemForReview(ctx context.Context, itemID, companyID string) (*entity.QuotationItem, *entity.Quotation, error) {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, nil, translateNotFound(err, "报价行项不存在")
	}
	quotation, err := s.getForReview(ctx, item.QuotationID, companyID)
	if err != nil {
		return nil, nil, err
	}
	if quotation.Status != entity.QuotationStatusSubmitted {
		return nil, nil, newError(KindInvalidState, "仅已提交的报价单可审批行项")
	}
	return item, quotation, nil
}

func (s *QuotationService) logActivity(ctx context.Context, quotationID, action, from, to, operatorID, detail string) {
	_ = s.activityRepo.Create(ctx, &entity.ActivityLog{
		ID:         newID(),
		EntityType: "quotation",
		EntityID:   quotationID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		OperatorID: operatorID,
		Detail:     detail,
	})
}
