package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"gorm.io/gorm"
)

// QuotationRepository 报价单仓库
type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

// FindAll 查询报价单列表
func (r *QuotationRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Quotation, int64, error) {
	var quotations []entity.Quotation
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Quotation{}).Where("is_active = ?", true)

	if rfqID := filters["rfq_id"]; rfqID != "" {
		query = query.Where("rfq_id = ?", rfqID)
	}
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items", activeItemsOrdered).
		Preload("Supplier").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&quotations).Error

	return quotations, total, err
}

// FindByID 根据ID查找报价单（含行项）
func (r *QuotationRepository) FindByID(ctx context.Context, id string) (*entity.Quotation, error) {
	var quotation entity.Quotation
	err := r.db.WithContext(ctx).
		Preload("Items", activeItemsOrdered).
		Preload("Supplier").
		Where("id = ? AND is_active = ?", id, true).
		First(&quotation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &quotation, nil
}

// FindActiveByRFQAndSupplier 查找某供应商对某RFQ的未撤回有效报价（防重复提交）
func (r *QuotationRepository) FindActiveByRFQAndSupplier(ctx context.Context, rfqID, supplierID string) (*entity.Quotation, error) {
	var quotation entity.Quotation
	err := r.db.WithContext(ctx).
		Where("rfq_id = ? AND supplier_id = ? AND status <> ? AND is_active = ?",
			rfqID, supplierID, entity.QuotationStatusWithdrawn, true).
		First(&quotation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quotation, nil
}

// FindSubmittedByRFQ 某RFQ下所有已提交状态的报价单（比价用）
func (r *QuotationRepository) FindSubmittedByRFQ(ctx context.Context, rfqID string) ([]entity.Quotation, error) {
	var quotations []entity.Quotation
	err := r.db.WithContext(ctx).
		Preload("Items", activeItemsOrdered).
		Preload("Supplier").
		Where("rfq_id = ? AND status = ? AND is_active = ?", rfqID, entity.QuotationStatusSubmitted, true).
		Order("created_at ASC").
		Find(&quotations).Error
	return quotations, err
}

// Create 创建报价单（在调用方事务内执行）
func (r *QuotationRepository) Create(ctx context.Context, tx *gorm.DB, quotation *entity.Quotation) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(quotation).Error
}

// Update 更新报价单
func (r *QuotationRepository) Update(ctx context.Context, quotation *entity.Quotation) error {
	return r.db.WithContext(ctx).Save(quotation).Error
}

// TransitionStatus 状态迁移，写入时校验当前状态仍是from
func (r *QuotationRepository) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Quotation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}

// UpdateTotalAmount 回写报价总额
func (r *QuotationRepository) UpdateTotalAmount(ctx context.Context, id string, total float64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Quotation{}).
		Where("id = ?", id).
		Update("total_amount", total).Error
}

// SumActiveItemTotals 汇总有效行项的总价
func (r *QuotationRepository) SumActiveItemTotals(ctx context.Context, quotationID string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&entity.QuotationItem{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("quotation_id = ? AND is_active = ?", quotationID, true).
		Scan(&total).Error
	return total, err
}

// === 行项 ===

// FindItemByID 查找行项
func (r *QuotationRepository) FindItemByID(ctx context.Context, itemID string) (*entity.QuotationItem, error) {
	var item entity.QuotationItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", itemID, true).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindActiveItems 某报价单下全部有效行项
func (r *QuotationRepository) FindActiveItems(ctx context.Context, quotationID string) ([]entity.QuotationItem, error) {
	var items []entity.QuotationItem
	err := r.db.WithContext(ctx).
		Where("quotation_id = ? AND is_active = ?", quotationID, true).
		Order("sort_order ASC").
		Find(&items).Error
	return items, err
}

// CreateItem 创建行项
func (r *QuotationRepository) CreateItem(ctx context.Context, item *entity.QuotationItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem 更新行项
func (r *QuotationRepository) UpdateItem(ctx context.Context, item *entity.QuotationItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// UpdateItems 批量更新行项（批准全部时用）
func (r *QuotationRepository) UpdateItems(ctx context.Context, items []entity.QuotationItem) error {
	for i := range items {
		if err := r.db.WithContext(ctx).Save(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
