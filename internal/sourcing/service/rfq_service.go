package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
)

// RFQService 询价单生命周期服务
type RFQService struct {
	repo         *repository.RFQRepository
	companyRepo  *repository.CompanyRepository
	activityRepo *repository.ActivityLogRepository
	quota        *QuotaService
	sequence     *SequenceService
	notifier     Notifier
	now          func() time.Time
}

func NewRFQService(
	repo *repository.RFQRepository,
	companyRepo *repository.CompanyRepository,
	activityRepo *repository.ActivityLogRepository,
	quota *QuotaService,
	sequence *SequenceService,
) *RFQService {
	return &RFQService{
		repo:         repo,
		companyRepo:  companyRepo,
		activityRepo: activityRepo,
		quota:        quota,
		sequence:     sequence,
		now:          time.Now,
	}
}

// SetNotifier 注入通知器（可选）
func (s *RFQService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock 注入时钟，仅测试用
func (s *RFQService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateRFQRequest 创建询价单请求
type CreateRFQRequest struct {
	Title      string                 `json:"title" binding:"required"`
	Visibility string                 `json:"visibility"`
	StartDate  time.Time              `json:"start_date" binding:"required"`
	EndDate    time.Time              `json:"end_date" binding:"required"`
	Currency   string                 `json:"currency"`
	Items      []CreateRFQItemRequest `json:"items"`
	Contacts   []RFQContactRequest    `json:"contacts"`
}

// CreateRFQItemRequest 创建询价行项请求
type CreateRFQItemRequest struct {
	MaterialID     *string `json:"material_id"`
	Description    string  `json:"description" binding:"required"`
	Quantity       float64 `json:"quantity" binding:"required,gt=0"`
	Unit           string  `json:"unit"`
	TechnicalSpecs string  `json:"technical_specs"`
}

// RFQContactRequest 询价联系人请求
type RFQContactRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UpdateRFQRequest 更新询价单请求（仅草稿态，字段为空则不变）
type UpdateRFQRequest struct {
	Title      *string    `json:"title"`
	Visibility *string    `json:"visibility"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Currency   *string    `json:"currency"`
}

// Create 创建询价单（草稿态）。受套餐每月RFQ额度约束
func (s *RFQService) Create(ctx context.Context, companyID, userID string, req *CreateRFQRequest) (*entity.RFQ, error) {
	ok, err := s.quota.CheckLimit(ctx, companyID, LimitRFQPerMonth)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newQuotaError(LimitRFQPerMonth, "本月询价单数量已达套餐上限")
	}

	if !req.EndDate.After(req.StartDate) {
		return nil, newError(KindInvalidRange, "截止日期必须晚于开始日期")
	}

	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, translateNotFound(err, "公司不存在")
	}

	number, err := s.sequence.NextNumber(ctx, FamilyRFQ)
	if err != nil {
		return nil, fmt.Errorf("生成询价单编号失败: %w", err)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = entity.RFQVisibilityAllSector
	}
	currency := req.Currency
	if currency == "" {
		currency = "TRY"
	}

	rfq := &entity.RFQ{
		ID:         newID(),
		RFQNumber:  number,
		Title:      req.Title,
		Status:     entity.RFQStatusDraft,
		CompanyID:  companyID,
		SectorID:   company.SectorID,
		Visibility: visibility,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Currency:   currency,
		IsActive:   true,
		CreatedBy:  userID,
	}
	for i, item := range req.Items {
		rfq.Items = append(rfq.Items, entity.RFQItem{
			ID:             newID(),
			RFQID:          rfq.ID,
			MaterialID:     item.MaterialID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			Unit:           defaultUnit(item.Unit),
			TechnicalSpecs: item.TechnicalSpecs,
			IsActive:       true,
			SortOrder:      i + 1,
		})
	}
	for _, contact := range req.Contacts {
		rfq.Contacts = append(rfq.Contacts, entity.RFQContact{
			ID:       newID(),
			RFQID:    rfq.ID,
			Name:     contact.Name,
			Email:    contact.Email,
			Phone:    contact.Phone,
			IsActive: true,
		})
	}

	if err := s.repo.Create(ctx, rfq); err != nil {
		return nil, fmt.Errorf("创建询价单失败: %w", err)
	}

	s.logActivity(ctx, "rfq", rfq.ID, "create", "", entity.RFQStatusDraft, userID, rfq.RFQNumber)
	return s.repo.FindByID(ctx, rfq.ID)
}

// Update 更新询价单基础信息（仅草稿态）
func (s *RFQService) Update(ctx context.Context, id, companyID string, req *UpdateRFQRequest) (*entity.RFQ, error) {
	rfq, err := s.getOwned(ctx, id, companyID)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusDraft {
		return nil, newError(KindInvalidState, "仅草稿态询价单可修改")
	}

	if req.Title != nil {
		rfq.Title = *req.Title
	}
	if req.Visibility != nil {
		rfq.Visibility = *req.Visibility
	}
	if req.StartDate != nil {
		rfq.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		rfq.EndDate = *req.EndDate
	}
	if req.Currency != nil {
		rfq.Currency = *req.Currency
	}
	if !rfq.EndDate.After(rfq.StartDate) {
		return nil, newError(KindInvalidRange, "截止日期必须晚于开始日期")
	}

	if err := s.repo.Update(ctx, rfq); err != nil {
		return nil, fmt.Errorf("更新询价单失败: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

// Delete 软删除询价单（仅草稿态）
func (s *RFQService) Delete(ctx context.Context, id, companyID, userID string) error {
	rfq, err := s.getOwned(ctx, id, companyID)
	if err != nil {
		return err
	}
	if rfq.Status != entity.RFQStatusDraft {
		return newError(KindInvalidState, "仅草稿态询价单可删除")
	}
	rfq.IsActive = false
	if err := s.repo.Update(ctx, rfq); err != nil {
		return fmt.Errorf("删除询价单失败: %w", err)
	}
	s.logActivity(ctx, "rfq", id, "delete", rfq.Status, rfq.Status, userID, "")
	return nil
}

// === 行项 ===

// AddItem 追加询价行项（仅草稿态）
func (s *RFQService) AddItem(ctx context.Context, rfqID, companyID string, req *CreateRFQItemRequest) (*entity.RFQItem, error) {
	rfq, err := s.getOwned(ctx, rfqID, companyID)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusDraft {
		return nil, newError(KindInvalidState, "仅草稿态询价单可增删行项")
	}

	count, err := s.repo.CountActiveItems(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	item := &entity.RFQItem{
		ID:             newID(),
		RFQID:          rfqID,
		MaterialID:     req.MaterialID,
		Description:    req.Description,
		Quantity:       req.Quantity,
		Unit:           defaultUnit(req.Unit),
		TechnicalSpecs: req.TechnicalSpecs,
		IsActive:       true,
		SortOrder:      int(count) + 1,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("添加询价行项失败: %w", err)
	}
	return item, nil
}

// UpdateRFQItemRequest 更新询价行项请求
type UpdateRFQItemRequest struct {
	Description    *string  `json:"description"`
	Quantity       *float64 `json:"quantity"`
	Unit           *string  `json:"unit"`
	TechnicalSpecs *string  `json:"technical_specs"`
}

// UpdateItem 更新询价行项（仅草稿态）
func (s *RFQService) UpdateItem(ctx context.Context, itemID, companyID string, req *UpdateRFQItemRequest) (*entity.RFQItem, error) {
	item, rfq, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, translateNotFound(err, "询价行项不存在")
	}
	if rfq.CompanyID != companyID {
		return nil, newError(KindNotFound, "询价行项不存在")
	}
	if rfq.Status != entity.RFQStatusDraft {
		return nil, newError(KindInvalidState, "仅草稿态询价单可修改行项")
	}

	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, newError(KindInvalidRange, "数量必须大于零")
		}
		item.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.TechnicalSpecs != nil {
		item.TechnicalSpecs = *req.TechnicalSpecs
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("更新询价行项失败: %w", err)
	}
	return item, nil
}

// RemoveItem 移除询价行项（软删，仅草稿态）
func (s *RFQService) RemoveItem(ctx context.Context, itemID, companyID string) error {
	item, rfq, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return translateNotFound(err, "询价行项不存在")
	}
	if rfq.CompanyID != companyID {
		return newError(KindNotFound, "询价行项不存在")
	}
	if rfq.Status != entity.RFQStatusDraft {
		return newError(KindInvalidState, "仅草稿态询价单可移除行项")
	}
	item.IsActive = false
	return s.repo.UpdateItem(ctx, item)
}

// === 联系人 ===

// AddContact 追加联系人（仅草稿态）
func (s *RFQService) AddContact(ctx context.Context, rfqID, companyID string, req *RFQContactRequest) (*entity.RFQContact, error) {
	rfq, err := s.getOwned(ctx, rfqID, companyID)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusDraft {
		return nil, newError(KindInvalidState, "仅草稿态询价单可修改联系人")
	}
	contact := &entity.RFQContact{
		ID:       newID(),
		RFQID:    rfqID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := s.repo.CreateContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("添加联系人失败: %w", err)
	}
	return contact, nil
}

// RemoveContact 移除联系人（软删，仅草稿态）
func (s *RFQService) RemoveContact(ctx context.Context, contactID, companyID string) error {
	contact, err := s.repo.FindContactByID(ctx, contactID)
	if err != nil {
		return translateNotFound(err, "联系人不存在")
	}
	rfq, err := s.repo.FindByID(ctx, contact.RFQID)
	if err != nil {
		return translateNotFound(err, "询价单不存在")
	}
	if rfq.CompanyID != companyID {
		return newError(KindNotFound, "联系人不存在")
	}
	if rfq.Status != entity.RFQStatusDraft {
		return newError(KindInvalidState, "仅草稿态询价单可移除联系人")
	}
	contact.IsActive = false
	return s.repo.UpdateContact(ctx, contact)
}

// === 状态迁移 ===

// Publish 发布询价单。要求草稿态、至少一条有效行项、截止日期未过
func (s *RFQService) Publish(ctx context.Context, id, companyID, userID string) (*entity.RFQ, error) {
	rfq, err := s.getOwned(ctx, id, companyID)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusDraft {
		return nil, newError(KindInvalidState, fmt.Sprintf("当前状态 %s 不可发布", rfq.Status))
	}

	count, err := s.repo.CountActiveItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, newError(KindNoItems, "询价单没有有效行项，无法发布")
	}
	if !rfq.EndDate.After(s.now()) {
		return nil, newError(KindExpired, "截止日期已过，无法发布")
	}

	if err := s.transition(ctx, rfq, entity.RFQStatusPublished, "publish", userID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		go s.notifier.NotifyNewRFQ(context.WithoutCancel(ctx), id)
	}
	return s.repo.FindByID(ctx, id)
}

// StartReview 进入评审态（报价窗口关闭前手动收单）
func (s *RFQService) StartReview(ctx context.Context, id, companyID, userID string) (*entity.RFQ, error) {
	return s.shift(ctx, id, companyID, userID, entity.RFQStatusUnderReview, "start_review")
}

// Close 关闭询价单（停止接收报价）
func (s *RFQService) Close(ctx context.Context, id, companyID, userID string) (*entity.RFQ, error) {
	return s.shift(ctx, id, companyID, userID, entity.RFQStatusClosed, "close")
}

// Complete 完成询价单（采购决策已定）
func (s *RFQService) Complete(ctx context.Context, id, companyID, userID string) (*entity.RFQ, error) {
	return s.shift(ctx, id, companyID, userID, entity.RFQStatusCompleted, "complete")
}

// Cancel 作废询价单
func (s *RFQService) Cancel(ctx context.Context, id, companyID, userID string) (*entity.RFQ, error) {
	return s.shift(ctx, id, companyID, userID, entity.RFQStatusCancelled, "cancel")
}

func (s *RFQService) shift(ctx context.Context, id, companyID, userID, to, action string) (*entity.RFQ, error) {
	rfq, err := s.getOwned(ctx, id, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, rfq, to, action, userID); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// transition 按状态机迁移，写库时带当前状态做乐观守卫
func (s *RFQService) transition(ctx context.Context, rfq *entity.RFQ, to, action, userID string) error {
	if !entity.RFQTransitions.Can(rfq.Status, to) {
		return newError(KindInvalidState, fmt.Sprintf("询价单状态不可由 %s 迁移到 %s", rfq.Status, to))
	}
	ok, err := s.repo.TransitionStatus(ctx, rfq.ID, rfq.Status, to)
	if err != nil {
		return fmt.Errorf("询价单状态迁移失败: %w", err)
	}
	if !ok {
		return newError(KindInvalidState, "询价单状态已被并发修改，请刷新后重试")
	}
	s.logActivity(ctx, "rfq", rfq.ID, action, rfq.Status, to, userID, "")
	return nil
}

// === 定时任务 ===

// CloseExpired 批量关闭已过截止日期的询价单，返回关闭条数。幂等
func (s *RFQService) CloseExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.CloseExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("过期询价单关闭失败: %w", err)
	}
	return count, nil
}

// NotifyExpiring 对days天内到期的已发布询价单发出截止提醒，返回提醒条数
func (s *RFQService) NotifyExpiring(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = 3
	}
	now := s.now()
	rfqs, err := s.repo.FindExpiring(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return 0, fmt.Errorf("查询临期询价单失败: %w", err)
	}
	if s.notifier != nil {
		for _, rfq := range rfqs {
			remaining := int(rfq.EndDate.Sub(now).Hours()/24) + 1
			s.notifier.NotifyRFQExpiring(ctx, rfq.ID, remaining)
		}
	}
	return len(rfqs), nil
}

// === 查询 ===

// List 本公司询价单列表
func (s *RFQService) List(ctx context.Context, companyID string, page, pageSize int, status, search string) ([]entity.RFQ, int64, error) {
	filters := map[string]string{"company_id": companyID}
	if status != "" {
		filters["status"] = status
	}
	if search != "" {
		filters["search"] = search
	}
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 询价单详情。归属公司可见全部状态，其他公司仅见已发布的
func (s *RFQService) Get(ctx context.Context, id, companyID string) (*entity.RFQ, error) {
	rfq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, "询价单不存在")
	}
	if rfq.CompanyID != companyID &&
		rfq.Status != entity.RFQStatusPublished && rfq.Status != entity.RFQStatusUnderReview {
		return nil, newError(KindNotFound, "询价单不存在")
	}
	return rfq, nil
}

// Incoming 面向本公司开放报价的询价单（同行业、已发布、窗口内）
func (s *RFQService) Incoming(ctx context.Context, companyID string) ([]entity.RFQ, error) {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, translateNotFound(err, "公司不存在")
	}
	return s.repo.FindIncoming(ctx, company.SectorID, companyID, s.now())
}

// Activity 询价单操作日志
func (s *RFQService) Activity(ctx context.Context, id, companyID string) ([]entity.ActivityLog, error) {
	if _, err := s.getOwned(ctx, id, companyID); err != nil {
		return nil, err
	}
	return s.activityRepo.FindByEntity(ctx, "rfq", id, 0)
}

func (s *RFQService) getOwned(ctx context.Context, id, companyID string) (*entity.RFQ, error) {
	rfq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, "询价单不存在")
	}
	if rfq.CompanyID != companyID {
		return nil, newError(KindNotFound, "询价单不存在")
	}
	return rfq, nil
}

// logActivity 操作日志只记不抛
func (s *RFQService) logActivity(ctx context.Context, entityType, entityID, action, from, to, operatorID, detail string) {
	_ = s.activityRepo.Create(ctx, &entity.ActivityLog{
		ID:         newID(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		OperatorID: operatorID,
		Detail:     detail,
	})
}

func defaultUnit(unit string) string {
	if unit == "" {
		return "pcs"
	}
	return unit
}

// translateNotFound 仓储层未找到翻译为业务错误
func translateNotFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, message)
	}
	return err
}
