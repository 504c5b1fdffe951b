package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"gorm.io/gorm"
)

// RFQRepository 询价单仓库
type RFQRepository struct {
	db *gorm.DB
}

func NewRFQRepository(db *gorm.DB) *RFQRepository {
	return &RFQRepository{db: db}
}

// FindAll 查询询价单列表
func (r *RFQRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RFQ, int64, error) {
	var rfqs []entity.RFQ
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.RFQ{}).Where("is_active = ?", true)

	if companyID := filters["company_id"]; companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if sectorID := filters["sector_id"]; sectorID != "" {
		query = query.Where("sector_id = ?", sectorID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(rfq_number) LIKE LOWER(?)", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items", activeItemsOrdered).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&rfqs).Error

	return rfqs, total, err
}

// FindByID 根据ID查找询价单（含行项与联系人）
func (r *RFQRepository) FindByID(ctx context.Context, id string) (*entity.RFQ, error) {
	var rfq entity.RFQ
	err := r.db.WithContext(ctx).
		Preload("Items", activeItemsOrdered).
		Preload("Contacts", "is_active = ?", true).
		Preload("Company").
		Where("id = ? AND is_active = ?", id, true).
		First(&rfq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rfq, nil
}

// FindIncoming 供应商侧：本行业已发布且未截止的询价单，排除本公司自己的
func (r *RFQRepository) FindIncoming(ctx context.Context, sectorID, excludeCompanyID string, now time.Time) ([]entity.RFQ, error) {
	var rfqs []entity.RFQ
	err := r.db.WithContext(ctx).
		Preload("Items", activeItemsOrdered).
		Where("sector_id = ? AND company_id <> ? AND status = ? AND end_date > ? AND is_active = ?",
			sectorID, excludeCompanyID, entity.RFQStatusPublished, now, true).
		Order("created_at DESC").
		Find(&rfqs).Error
	return rfqs, err
}

// Create 创建询价单（连带行项与联系人）
func (r *RFQRepository) Create(ctx context.Context, rfq *entity.RFQ) error {
	return r.db.WithContext(ctx).Create(rfq).Error
}

// Update 更新询价单
func (r *RFQRepository) Update(ctx context.Context, rfq *entity.RFQ) error {
	return r.db.WithContext(ctx).Save(rfq).Error
}

// TransitionStatus 状态迁移，写入时校验当前状态仍是from，防止并发下重复迁移
func (r *RFQRepository) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.RFQ{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}

// CloseExpired 批量关闭截止时间已过的已发布询价单，返回影响行数
// 单条UPDATE天然幂等，与并发的Close调用互不冲突
func (r *RFQRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.RFQ{}).
		Where("status = ? AND end_date < ? AND is_active = ?", entity.RFQStatusPublished, now, true).
		Update("status", entity.RFQStatusClosed)
	return result.RowsAffected, result.Error
}

// FindExpiring 截止时间落在 [now, until) 的已发布询价单
func (r *RFQRepository) FindExpiring(ctx context.Context, now, until time.Time) ([]entity.RFQ, error) {
	var rfqs []entity.RFQ
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date >= ? AND end_date < ? AND is_active = ?",
			entity.RFQStatusPublished, now, until, true).
		Find(&rfqs).Error
	return rfqs, err
}

// === 行项 ===

// FindItemByID 查找行项（带父询价单）
func (r *RFQRepository) FindItemByID(ctx context.Context, itemID string) (*entity.RFQItem, *entity.RFQ, error) {
	var item entity.RFQItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", itemID, true).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	rfq, err := r.FindByID(ctx, item.RFQID)
	if err != nil {
		return nil, nil, err
	}
	return &item, rfq, nil
}

// CreateItem 创建行项
func (r *RFQRepository) CreateItem(ctx context.Context, item *entity.RFQItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem 更新行项
func (r *RFQRepository) UpdateItem(ctx context.Context, item *entity.RFQItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// CountActiveItems 统计有效行项数
func (r *RFQRepository) CountActiveItems(ctx context.Context, rfqID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RFQItem{}).
		Where("rfq_id = ? AND is_active = ?", rfqID, true).
		Count(&count).Error
	return count, err
}

// === 联系人 ===

// CreateContact 创建联系人
func (r *RFQRepository) CreateContact(ctx context.Context, contact *entity.RFQContact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// FindContactByID 查找联系人
func (r *RFQRepository) FindContactByID(ctx context.Context, contactID string) (*entity.RFQContact, error) {
	var contact entity.RFQContact
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", contactID, true).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contact, nil
}

// UpdateContact 更新联系人
func (r *RFQRepository) UpdateContact(ctx context.Context, contact *entity.RFQContact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func activeItemsOrdered(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true).Order("sort_order ASC")
}
