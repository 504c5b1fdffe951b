package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/testutil"
	"gorm.io/gorm"
)

func setupQuotaTest(t *testing.T) (*QuotaService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewQuotaService(repos.Company)
	svc.SetClock(func() time.Time {
		return time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	})

	testutil.SeedSector(t, db, "sector-1", "电子")
	testutil.SeedPackage(t, db, "pkg-limited", 2, 3, 2)
	testutil.SeedPackage(t, db, "pkg-unlimited", 0, 0, 0)
	testutil.SeedCompany(t, db, "company-ltd", "有限公司", "sector-1", "pkg-limited")
	testutil.SeedCompany(t, db, "company-unl", "不限公司", "sector-1", "pkg-unlimited")
	return svc, db
}

func TestQuotaZeroMeansUnlimited(t *testing.T) {
	svc, db := setupQuotaTest(t)
	ctx := context.Background()

	// 随便塞多少资源都不触顶
	for i := 0; i < 10; i++ {
		db.Create(&entity.User{
			ID: newID(), CompanyID: "company-unl",
			Name: "用户", Email: newID() + "@test.com", IsActive: true,
		})
	}

	ok, err := svc.CheckLimit(ctx, "company-unl", LimitUsers)
	if err != nil {
		t.Fatalf("CheckLimit failed: %v", err)
	}
	if !ok {
		t.Error("Zero limit should mean unlimited")
	}
}

func TestQuotaLimitReached(t *testing.T) {
	svc, db := setupQuotaTest(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		db.Create(&entity.User{
			ID: newID(), CompanyID: "company-ltd",
			Name: "用户", Email: newID() + "@test.com", IsActive: true,
		})
	}

	ok, err := svc.CheckLimit(ctx, "company-ltd", LimitUsers)
	if err != nil {
		t.Fatalf("CheckLimit failed: %v", err)
	}
	if ok {
		t.Error("Expected user limit to be reached at 2/2")
	}
}

func TestQuotaRFQMonthWindow(t *testing.T) {
	svc, db := setupQuotaTest(t)
	ctx := context.Background()

	// 上个月的询价单不计入本月额度
	old := &entity.RFQ{
		ID: newID(), RFQNumber: "RFQ-2026-90001", Title: "上月询价单",
		Status: entity.RFQStatusClosed, CompanyID: "company-ltd",
		StartDate: time.Now(), EndDate: time.Now(), IsActive: true,
	}
	db.Create(old)
	db.Model(old).Update("created_at", time.Date(2026, 4, 28, 0, 0, 0, 0, time.UTC))

	ok, err := svc.CheckLimit(ctx, "company-ltd", LimitRFQPerMonth)
	if err != nil {
		t.Fatalf("CheckLimit failed: %v", err)
	}
	if !ok {
		t.Error("Last month's RFQ should not count against this month")
	}

	// 本月创建两张后触顶
	for i := 0; i < 2; i++ {
		db.Create(&entity.RFQ{
			ID: newID(), RFQNumber: fmt.Sprintf("RFQ-2026-910%02d", i+1), Title: "本月询价单",
			Status: entity.RFQStatusDraft, CompanyID: "company-ltd",
			StartDate: time.Now(), EndDate: time.Now(), IsActive: true,
			CreatedAt: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		})
	}

	ok, err = svc.CheckLimit(ctx, "company-ltd", LimitRFQPerMonth)
	if err != nil {
		t.Fatalf("CheckLimit failed: %v", err)
	}
	if ok {
		t.Error("Expected monthly RFQ limit to be reached at 2/2")
	}
}

func TestQuotaCompanyNotFound(t *testing.T) {
	svc, _ := setupQuotaTest(t)

	_, err := svc.CheckLimit(context.Background(), "no-such-company", LimitUsers)
	if !IsKind(err, KindNotFound) {
		t.Errorf("Expected not_found error, got %v", err)
	}
}

func TestQuotaUsageReport(t *testing.T) {
	svc, db := setupQuotaTest(t)
	ctx := context.Background()

	db.Create(&entity.User{ID: newID(), CompanyID: "company-ltd", Name: "用户", Email: "u1@test.com", IsActive: true})
	db.Create(&entity.Material{ID: newID(), CompanyID: "company-ltd", Name: "物料A", IsActive: true})
	db.Create(&entity.Material{ID: newID(), CompanyID: "company-ltd", Name: "物料B", IsActive: true})

	usage, err := svc.Usage(ctx, "company-ltd")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if usage.CurrentUsers != 1 || usage.MaxUsers != 2 {
		t.Errorf("Users usage mismatch: %d/%d", usage.CurrentUsers, usage.MaxUsers)
	}
	if usage.CurrentMaterials != 2 || usage.MaxMaterials != 3 {
		t.Errorf("Materials usage mismatch: %d/%d", usage.CurrentMaterials, usage.MaxMaterials)
	}
}
