package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"gorm.io/gorm"
)

// CompanyRepository 公司仓库
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindByID 根据ID查找公司（含套餐）
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).
		Preload("Package").
		Where("id = ? AND is_active = ?", id, true).
		First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// FindIDsBySector 某行业下全部有效公司ID，排除指定公司（通知扇出用）
func (r *CompanyRepository) FindIDsBySector(ctx context.Context, sectorID, excludeID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entity.Company{}).
		Where("sector_id = ? AND id <> ? AND is_active = ?", sectorID, excludeID, true).
		Pluck("id", &ids).Error
	return ids, err
}

// CountUsers 统计公司有效用户数
func (r *CompanyRepository) CountUsers(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Count(&count).Error
	return count, err
}

// CountMaterials 统计公司有效物料数
func (r *CompanyRepository) CountMaterials(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Material{}).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Count(&count).Error
	return count, err
}

// CountRFQsSince 统计公司自since以来创建的询价单数
func (r *CompanyRepository) CountRFQsSince(ctx context.Context, companyID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RFQ{}).
		Where("company_id = ? AND created_at >= ?", companyID, since).
		Count(&count).Error
	return count, err
}

// FindSuppliersWithDraftQuotation 某RFQ下仍有草稿报价的供应商公司ID（到期提醒用）
func (r *CompanyRepository) FindSuppliersWithDraftQuotation(ctx context.Context, rfqID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entity.Quotation{}).
		Distinct("supplier_id").
		Where("rfq_id = ? AND status = ? AND is_active = ?", rfqID, entity.QuotationStatusDraft, true).
		Pluck("supplier_id", &ids).Error
	return ids, err
}
