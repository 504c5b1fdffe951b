package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/testutil"
	"gorm.io/gorm"
)

// setupComparisonTest 预置一张询价单（两行项）和三家供应商：
// 甲乙均已提交报价，丙仅有草稿
func setupComparisonTest(t *testing.T) (*ComparisonService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewComparisonService(repos.RFQ, repos.Quotation)

	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	testutil.SeedSector(t, db, "sector-1", "电子")
	testutil.SeedPackage(t, db, "pkg-std", 0, 0, 0)
	testutil.SeedCompany(t, db, "company-buyer", "采购方", "sector-1", "pkg-std")
	testutil.SeedCompany(t, db, "supplier-a", "供应商甲", "sector-1", "pkg-std")
	testutil.SeedCompany(t, db, "supplier-b", "供应商乙", "sector-1", "pkg-std")
	testutil.SeedCompany(t, db, "supplier-c", "供应商丙", "sector-1", "pkg-std")

	testutil.SeedRFQ(t, db, &entity.RFQ{
		ID: "rfq-cmp", RFQNumber: "RFQ-2026-00010", Title: "电容采购",
		Status: entity.RFQStatusUnderReview, CompanyID: "company-buyer", SectorID: "sector-1",
		StartDate: now.AddDate(0, 0, -10), EndDate: now.AddDate(0, 0, -1),
	})
	testutil.SeedRFQItem(t, db, "item-1", "rfq-cmp", "贴片电容 100nF", 5000, 1)
	testutil.SeedRFQItem(t, db, "item-2", "rfq-cmp", "电解电容 470uF", 1200, 2)

	seedComparisonQuotation(t, db, "quo-a", "QUO-2026-00001", "supplier-a",
		entity.QuotationStatusSubmitted, 0.10, 1.50)
	seedComparisonQuotation(t, db, "quo-b", "QUO-2026-00002", "supplier-b",
		entity.QuotationStatusSubmitted, 0.12, 1.50)
	seedComparisonQuotation(t, db, "quo-c", "QUO-2026-00003", "supplier-c",
		entity.QuotationStatusDraft, 0.01, 0.01)
	return svc, db
}

func seedComparisonQuotation(t *testing.T, db *gorm.DB, id, number, supplierID, status string, price1, price2 float64) {
	t.Helper()
	testutil.SeedQuotation(t, db, &entity.Quotation{
		ID: id, QuotationNumber: number, RFQID: "rfq-cmp", SupplierID: supplierID,
		Status: status, TotalAmount: price1*5000 + price2*1200,
		Items: []entity.QuotationItem{
			{
				ID: id + "-i1", QuotationID: id, RFQItemID: "item-1",
				UnitPrice: price1, OfferedQuantity: 5000, TotalPrice: price1 * 5000,
				ApprovalStatus: entity.ApprovalStatusPending, IsActive: true, SortOrder: 1,
			},
			{
				ID: id + "-i2", QuotationID: id, RFQItemID: "item-2",
				UnitPrice: price2, OfferedQuantity: 1200, TotalPrice: price2 * 1200,
				ApprovalStatus: entity.ApprovalStatusPending, IsActive: true, SortOrder: 2,
			},
		},
	})
}

func TestComparisonMatrixShape(t *testing.T) {
	svc, _ := setupComparisonTest(t)

	matrix, err := svc.BuildMatrix(context.Background(), "rfq-cmp", "company-buyer")
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}
	if matrix.RFQNumber != "RFQ-2026-00010" || matrix.Currency != "TRY" {
		t.Errorf("Matrix header mismatch: %s %s", matrix.RFQNumber, matrix.Currency)
	}

	// 仅已提交的两家进入矩阵，草稿不参与
	if len(matrix.Suppliers) != 2 {
		t.Fatalf("Expected 2 suppliers, got %d", len(matrix.Suppliers))
	}
	for _, supplier := range matrix.Suppliers {
		if supplier.QuotationID == "quo-c" {
			t.Error("Draft quotation should not enter the matrix")
		}
	}

	// 行随RFQ行项顺序
	if len(matrix.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(matrix.Rows))
	}
	if matrix.Rows[0].RFQItemID != "item-1" || matrix.Rows[1].RFQItemID != "item-2" {
		t.Errorf("Rows out of order: %s, %s", matrix.Rows[0].RFQItemID, matrix.Rows[1].RFQItemID)
	}
	if matrix.Rows[0].Description != "贴片电容 100nF" || matrix.Rows[0].Quantity != 5000 {
		t.Errorf("Row fields mismatch: %+v", matrix.Rows[0])
	}
}

func TestComparisonOffersRanked(t *testing.T) {
	svc, _ := setupComparisonTest(t)

	matrix, err := svc.BuildMatrix(context.Background(), "rfq-cmp", "company-buyer")
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}

	offers := matrix.Rows[0].Offers
	if len(offers) != 2 {
		t.Fatalf("Expected 2 offers on row 1, got %d", len(offers))
	}
	if offers[0].SupplierID != "supplier-a" || offers[0].UnitPrice != 0.10 {
		t.Errorf("Expected cheapest offer first, got %+v", offers[0])
	}
	if !offers[0].IsLowest || offers[1].IsLowest {
		t.Errorf("Expected only the cheapest marked lowest: %v, %v", offers[0].IsLowest, offers[1].IsLowest)
	}
	if offers[0].SupplierName != "供应商甲" {
		t.Errorf("Expected supplier name resolved, got %q", offers[0].SupplierName)
	}
	for _, offer := range offers {
		if offer.ApprovalStatus != entity.ApprovalStatusPending {
			t.Errorf("Expected pending approval status carried into offer, got %q", offer.ApprovalStatus)
		}
	}
}

func TestComparisonTieMarksAllLowest(t *testing.T) {
	svc, _ := setupComparisonTest(t)

	// 第二行两家同价
	matrix, err := svc.BuildMatrix(context.Background(), "rfq-cmp", "company-buyer")
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}
	offers := matrix.Rows[1].Offers
	if len(offers) != 2 {
		t.Fatalf("Expected 2 offers on row 2, got %d", len(offers))
	}
	if !offers[0].IsLowest || !offers[1].IsLowest {
		t.Errorf("Expected tie to mark both lowest: %v, %v", offers[0].IsLowest, offers[1].IsLowest)
	}
}

func TestComparisonRowWithoutOffers(t *testing.T) {
	svc, db := setupComparisonTest(t)

	testutil.SeedRFQItem(t, db, "item-3", "rfq-cmp", "钽电容 10uF", 300, 3)
	matrix, err := svc.BuildMatrix(context.Background(), "rfq-cmp", "company-buyer")
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}
	if len(matrix.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(matrix.Rows))
	}
	if len(matrix.Rows[2].Offers) != 0 {
		t.Errorf("Expected empty offers on unquoted row, got %d", len(matrix.Rows[2].Offers))
	}
}

func TestComparisonOwnerOnly(t *testing.T) {
	svc, _ := setupComparisonTest(t)

	if _, err := svc.BuildMatrix(context.Background(), "rfq-cmp", "supplier-a"); !IsKind(err, KindNotFound) {
		t.Errorf("Expected not_found for non-owner, got %v", err)
	}
	if _, err := svc.BuildMatrix(context.Background(), "no-such-rfq", "company-buyer"); !IsKind(err, KindNotFound) {
		t.Errorf("Expected not_found for unknown RFQ, got %v", err)
	}
}
