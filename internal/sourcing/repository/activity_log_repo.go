package repository

import (
	"context"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"gorm.io/gorm"
)

// ActivityLogRepository 操作日志仓库
type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create 追加一条操作日志
func (r *ActivityLogRepository) Create(ctx context.Context, log *entity.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByEntity 查询某单据的操作日志
func (r *ActivityLogRepository) FindByEntity(ctx context.Context, entityType, entityID string, limit int) ([]entity.ActivityLog, error) {
	var logs []entity.ActivityLog
	if limit <= 0 {
		limit = 50
	}
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
