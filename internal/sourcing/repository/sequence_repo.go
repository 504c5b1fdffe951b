package repository

import (
	"context"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"gorm.io/gorm"
)

// SequenceRepository 单据编号计数器仓库
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next 原子分配下一个序号。计数行不存在时以seed+1插入，
// 存在时自增，单条UPSERT语句内完成，并发分配不会取到相同值
func (r *SequenceRepository) Next(ctx context.Context, family string, year int, seed int64) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO document_sequences (family, year, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (family, year)
		DO UPDATE SET value = document_sequences.value + 1, updated_at = CURRENT_TIMESTAMP
		RETURNING value`,
		family, year, seed+1,
	).Scan(&value).Error
	return value, err
}

// MaxExistingNumber 扫描既有单据的最大编号（首次建计数行时做种子用）
func (r *SequenceRepository) MaxExistingNumber(ctx context.Context, family, prefix string) (string, error) {
	var maxNumber string
	var err error

	switch family {
	case "QUO":
		err = r.db.WithContext(ctx).
			Model(&entity.Quotation{}).
			Select("COALESCE(MAX(quotation_number), '')").
			Where("quotation_number LIKE ?", prefix+"%").
			Scan(&maxNumber).Error
	default:
		err = r.db.WithContext(ctx).
			Model(&entity.RFQ{}).
			Select("COALESCE(MAX(rfq_number), '')").
			Where("rfq_number LIKE ?", prefix+"%").
			Scan(&maxNumber).Error
	}
	return maxNumber, err
}

// Exists 判断计数行是否已建立
func (r *SequenceRepository) Exists(ctx context.Context, family string, year int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.DocumentSequence{}).
		Where("family = ? AND year = ?", family, year).
		Count(&count).Error
	return count > 0, err
}
