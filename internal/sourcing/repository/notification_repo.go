package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建通知
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateBatch 批量创建通知（行业扇出）
func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []entity.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(ns, 100).Error
}

// FindByCompany 查询某公司的通知列表
func (r *NotificationRepository) FindByCompany(ctx context.Context, companyID string, page, pageSize int, unreadOnly bool) ([]entity.Notification, int64, error) {
	var items []entity.Notification
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("company_id = ? AND is_active = ?", companyID, true)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// CountUnread 某公司未读通知数
func (r *NotificationRepository) CountUnread(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("company_id = ? AND is_read = ? AND is_active = ?", companyID, false, true).
		Count(&count).Error
	return count, err
}

// MarkRead 标记单条已读
func (r *NotificationRepository) MarkRead(ctx context.Context, id, companyID string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}

// MarkAllRead 标记全部已读
func (r *NotificationRepository) MarkAllRead(ctx context.Context, companyID string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("company_id = ? AND is_read = ?", companyID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}
