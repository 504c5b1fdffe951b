package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
)

// 配额类型
const (
	LimitUsers       = "users"
	LimitMaterials   = "materials"
	LimitRFQPerMonth = "rfq_per_month"
)

// QuotaService 套餐配额检查
// 套餐上限为0表示不限；RFQ配额按自然月从1号零点起算
type QuotaService struct {
	companyRepo *repository.CompanyRepository
	now         func() time.Time
}

func NewQuotaService(companyRepo *repository.CompanyRepository) *QuotaService {
	return &QuotaService{companyRepo: companyRepo, now: time.Now}
}

// SetClock 注入时钟（测试用）
func (s *QuotaService) SetClock(now func() time.Time) {
	s.now = now
}

// CheckLimit 判断公司是否还能新增一个指定类型的资源
func (s *QuotaService) CheckLimit(ctx context.Context, companyID, limitType string) (bool, error) {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, newError(KindNotFound, "公司不存在")
		}
		return false, err
	}
	if company.Package == nil {
		return false, newError(KindNotFound, "公司未绑定套餐")
	}
	pkg := company.Package

	switch limitType {
	case LimitUsers:
		if pkg.MaxUsers == 0 {
			return true, nil
		}
		count, err := s.companyRepo.CountUsers(ctx, companyID)
		if err != nil {
			return false, err
		}
		return count < int64(pkg.MaxUsers), nil

	case LimitMaterials:
		if pkg.MaxMaterials == 0 {
			return true, nil
		}
		count, err := s.companyRepo.CountMaterials(ctx, companyID)
		if err != nil {
			return false, err
		}
		return count < int64(pkg.MaxMaterials), nil

	case LimitRFQPerMonth:
		if pkg.MaxRFQPerMonth == 0 {
			return true, nil
		}
		count, err := s.companyRepo.CountRFQsSince(ctx, companyID, s.startOfMonth())
		if err != nil {
			return false, err
		}
		return count < int64(pkg.MaxRFQPerMonth), nil

	default:
		return true, nil
	}
}

// PackageUsage 套餐用量
type PackageUsage struct {
	PackageName          string `json:"package_name"`
	MaxUsers             int    `json:"max_users"`
	CurrentUsers         int64  `json:"current_users"`
	MaxMaterials         int    `json:"max_materials"`
	CurrentMaterials     int64  `json:"current_materials"`
	MaxRFQPerMonth       int    `json:"max_rfq_per_month"`
	CurrentRFQThisMonth  int64  `json:"current_rfq_this_month"`
	CanUseSAPIntegration bool   `json:"can_use_sap_integration"`
}

// Usage 查询公司当前套餐用量
func (s *QuotaService) Usage(ctx context.Context, companyID string) (*PackageUsage, error) {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "公司不存在")
		}
		return nil, err
	}
	if company.Package == nil {
		return nil, newError(KindNotFound, "公司未绑定套餐")
	}
	pkg := company.Package

	users, err := s.companyRepo.CountUsers(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("统计用户数失败: %w", err)
	}
	materials, err := s.companyRepo.CountMaterials(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("统计物料数失败: %w", err)
	}
	rfqs, err := s.companyRepo.CountRFQsSince(ctx, companyID, s.startOfMonth())
	if err != nil {
		return nil, fmt.Errorf("统计本月询价单数失败: %w", err)
	}

	return &PackageUsage{
		PackageName:          pkg.Name,
		MaxUsers:             pkg.MaxUsers,
		CurrentUsers:         users,
		MaxMaterials:         pkg.MaxMaterials,
		CurrentMaterials:     materials,
		MaxRFQPerMonth:       pkg.MaxRFQPerMonth,
		CurrentRFQThisMonth:  rfqs,
		CanUseSAPIntegration: pkg.CanUseSAPIntegration,
	}, nil
}

func (s *QuotaService) startOfMonth() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
