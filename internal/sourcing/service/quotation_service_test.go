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

var quotationTestNow = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

// setupQuotationTest 预置一张 company-buyer 发布的询价单 rfq-open，
// 行项 rfq-item-1（5000件）与 rfq-item-2（1200件），窗口至7月15日
func setupQuotationTest(t *testing.T) (*QuotationService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	clock := func() time.Time { return quotationTestNow }
	sequenceSvc := NewSequenceService(repos.Sequence)
	sequenceSvc.SetClock(clock)

	svc := NewQuotationService(db, repos.Quotation, repos.RFQ, repos.ActivityLog, sequenceSvc)
	svc.SetClock(clock)

	testutil.SeedSector(t, db, "sector-1", "电子")
	testutil.SeedPackage(t, db, "pkg-std", 0, 0, 0)
	testutil.SeedCompany(t, db, "company-buyer", "采购方", "sector-1", "pkg-std")
	testutil.SeedCompany(t, db, "company-supplier", "供应商甲", "sector-1", "pkg-std")
	testutil.SeedCompany(t, db, "company-supplier-b", "供应商乙", "sector-1", "pkg-std")

	testutil.SeedRFQ(t, db, &entity.RFQ{
		ID: "rfq-open", RFQNumber: "RFQ-2026-00001", Title: "电容采购",
		Status: entity.RFQStatusPublished, CompanyID: "company-buyer", SectorID: "sector-1",
		StartDate: quotationTestNow.AddDate(0, 0, -3), EndDate: quotationTestNow.AddDate(0, 0, 14),
	})
	testutil.SeedRFQItem(t, db, "rfq-item-1", "rfq-open", "贴片电容 100nF", 5000, 1)
	testutil.SeedRFQItem(t, db, "rfq-item-2", "rfq-open", "电解电容 470uF", 1200, 2)
	return svc, db
}

func basicQuotationRequest() *CreateQuotationRequest {
	return &CreateQuotationRequest{
		RFQID: "rfq-open",
		Items: []CreateQuotationItemRequest{
			{RFQItemID: "rfq-item-1", UnitPrice: 0.12, OfferedQuantity: 5000},
			{RFQItemID: "rfq-item-2", UnitPrice: 1.5, OfferedQuantity: 1000},
		},
	}
}

// submittedQuotation 走完创建+提交，返回提交后的报价单
func submittedQuotation(t *testing.T, svc *QuotationService, supplierID string) *entity.Quotation {
	t.Helper()
	ctx := context.Background()
	quotation, err := svc.Create(ctx, supplierID, "user-s1", basicQuotationRequest())
	if err != nil {
		t.Fatalf("Create quotation failed: %v", err)
	}
	quotation, err = svc.Submit(ctx, quotation.ID, supplierID, "user-s1")
	if err != nil {
		t.Fatalf("Submit quotation failed: %v", err)
	}
	return quotation
}

func TestQuotationCreate(t *testing.T) {
	svc, _ := setupQuotationTest(t)

	quotation, err := svc.Create(context.Background(), "company-supplier", "user-s1", basicQuotationRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if quotation.QuotationNumber != "QUO-2026-00001" {
		t.Errorf("Expected number QUO-2026-00001, got %s", quotation.QuotationNumber)
	}
	if quotation.Status != entity.QuotationStatusDraft {
		t.Errorf("Expected draft status, got %s", quotation.Status)
	}
	want := 0.12*5000 + 1.5*1000
	if quotation.TotalAmount != want {
		t.Errorf("Expected total %.2f, got %.2f", want, quotation.TotalAmount)
	}
	if len(quotation.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(quotation.Items))
	}
	if quotation.Items[0].ApprovalStatus != entity.ApprovalStatusPending {
		t.Errorf("Expected pending approval status, got %s", quotation.Items[0].ApprovalStatus)
	}
}

func TestQuotationCreatePreconditions(t *testing.T) {
	svc, db := setupQuotationTest(t)
	ctx := context.Background()

	// 未发布的询价单不接收报价
	testutil.SeedRFQ(t, db, &entity.RFQ{
		ID: "rfq-draft", RFQNumber: "RFQ-2026-00002", Title: "草稿询价单",
		Status: entity.RFQStatusDraft, CompanyID: "company-buyer", SectorID: "sector-1",
		StartDate: quotationTestNow, EndDate: quotationTestNow.AddDate(0, 0, 14),
	})
	_, err := svc.Create(ctx, "company-supplier", "user-s1", &CreateQuotationRequest{RFQID: "rfq-draft"})
	if !IsKind(err, KindInvalidState) {
		t.Errorf("Expected invalid_state for draft RFQ, got %v", err)
	}

	// 窗口已截止
	testutil.SeedRFQ(t, db, &entity.RFQ{
		ID: "rfq-stale", RFQNumber: "RFQ-2026-00003", Title: "过期询价单",
		Status: entity.RFQStatusPublished, CompanyID: "company-buyer", SectorID: "sector-1",
		StartDate: quotationTestNow.AddDate(0, 0, -30), EndDate: quotationTestNow.AddDate(0, 0, -1),
	})
	_, err = svc.Create(ctx, "company-supplier", "user-s1", &CreateQuotationRequest{RFQID: "rfq-stale"})
	if !IsKind(err, KindExpired) {
		t.Errorf("Expected expired error, got %v", err)
	}

	// 不能给自家询价单报价
	_, err = svc.Create(ctx, "company-buyer", "user-b1", basicQuotationRequest())
	if !IsKind(err, KindSelfQuotation) {
		t.Errorf("Expected self_quotation error, got %v", err)
	}

	// 行项必须属于该询价单
	req := basicQuotationRequest()
	req.Items[0].RFQItemID = "no-such-item"
	_, err = svc.Create(ctx, "company-supplier", "user-s1", req)
	if !IsKind(err, KindNotFound) {
		t.Errorf("Expected not_found for unknown RFQ item, got %v", err)
	}
}

func TestQuotationDuplicateAndRequote(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest()); !IsKind(err, KindDuplicateQuotation) {
		t.Errorf("Expected duplicate_quotation while draft exists, got %v", err)
	}

	// 提交后依旧占位
	if _, err := svc.Submit(ctx, first.ID, "company-supplier", "user-s1"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest()); !IsKind(err, KindDuplicateQuotation) {
		t.Errorf("Expected duplicate_quotation while submitted exists, got %v", err)
	}

	// 撤回后放行重新报价；另一家供应商不受影响
	if _, err := svc.Withdraw(ctx, first.ID, "company-supplier", "user-s1"); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if _, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest()); err != nil {
		t.Errorf("Expected re-quote after withdraw to pass, got %v", err)
	}
	if _, err := svc.Create(ctx, "company-supplier-b", "user-s2", basicQuotationRequest()); err != nil {
		t.Errorf("Expected another supplier's quotation to pass, got %v", err)
	}
}

func TestQuotationDeleteDraftOnly(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := svc.Delete(ctx, quotation.ID, "company-supplier", "user-s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// 软删后占位解除，可重新报价
	if _, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest()); err != nil {
		t.Errorf("Expected re-quote after delete to pass, got %v", err)
	}

	submitted := submittedQuotation(t, svc, "company-supplier-b")
	if err := svc.Delete(ctx, submitted.ID, "company-supplier-b", "user-s2"); !IsKind(err, KindInvalidState) {
		t.Errorf("Expected invalid_state on deleting submitted quotation, got %v", err)
	}
	if err := svc.Delete(ctx, submitted.ID, "company-supplier", "user-s1"); !IsKind(err, KindNotFound) {
		t.Errorf("Expected not_found when deleting others' quotation, got %v", err)
	}
}

func TestQuotationSubmit(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	empty, err := svc.Create(ctx, "company-supplier", "user-s1", &CreateQuotationRequest{RFQID: "rfq-open"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Submit(ctx, empty.ID, "company-supplier", "user-s1"); !IsKind(err, KindNoItems) {
		t.Errorf("Expected no_items on empty quotation, got %v", err)
	}

	if _, err := svc.AddItem(ctx, empty.ID, "company-supplier", &CreateQuotationItemRequest{
		RFQItemID: "rfq-item-1", UnitPrice: 0.1, OfferedQuantity: 5000,
	}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	submitted, err := svc.Submit(ctx, empty.ID, "company-supplier", "user-s1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.Status != entity.QuotationStatusSubmitted {
		t.Errorf("Expected submitted status, got %s", submitted.Status)
	}
	if _, err := svc.Submit(ctx, empty.ID, "company-supplier", "user-s1"); !IsKind(err, KindInvalidState) {
		t.Errorf("Expected invalid_state on double submit, got %v", err)
	}
}

func TestQuotationItemTotalRecalculated(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	price := 0.2
	if _, err := svc.UpdateItem(ctx, quotation.Items[0].ID, "company-supplier", &UpdateQuotationItemRequest{UnitPrice: &price}); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	got, err := svc.Get(ctx, quotation.ID, "company-supplier")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := 0.2*5000 + 1.5*1000
	if got.TotalAmount != want {
		t.Errorf("Expected total %.2f after reprice, got %.2f", want, got.TotalAmount)
	}

	if err := svc.RemoveItem(ctx, quotation.Items[1].ID, "company-supplier"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	got, _ = svc.Get(ctx, quotation.ID, "company-supplier")
	if got.TotalAmount != 0.2*5000 {
		t.Errorf("Expected total %.2f after removal, got %.2f", 0.2*5000, got.TotalAmount)
	}
}

func TestQuotationApproveAllItemsFully(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation := submittedQuotation(t, svc, "company-supplier")
	for _, item := range quotation.Items {
		var err error
		quotation, err = svc.ApproveItem(ctx, item.ID, "company-buyer", "user-b1", nil)
		if err != nil {
			t.Fatalf("ApproveItem failed: %v", err)
		}
	}
	if quotation.Status != entity.QuotationStatusApproved {
		t.Errorf("Expected approved status, got %s", quotation.Status)
	}
	for _, item := range quotation.Items {
		if item.ApprovedQuantity == nil || *item.ApprovedQuantity != item.OfferedQuantity {
			t.Errorf("Expected full approved quantity on item %s", item.ID)
		}
	}
}

func TestQuotationReducedQuantityApproval(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	// 减量批准只记录批准数量，行项结论仍为批准，整单照常聚合为批准
	quotation := submittedQuotation(t, svc, "company-supplier")
	partial := 3000.0
	if _, err := svc.ApproveItem(ctx, quotation.Items[0].ID, "company-buyer", "user-b1", &ApproveItemRequest{ApprovedQuantity: &partial}); err != nil {
		t.Fatalf("ApproveItem failed: %v", err)
	}
	settled, err := svc.ApproveItem(ctx, quotation.Items[1].ID, "company-buyer", "user-b1", nil)
	if err != nil {
		t.Fatalf("ApproveItem failed: %v", err)
	}
	if settled.Status != entity.QuotationStatusApproved {
		t.Errorf("Expected approved status, got %s", settled.Status)
	}
	for _, item := range settled.Items {
		if item.ApprovalStatus != entity.ApprovalStatusApproved {
			t.Errorf("Expected approved item status, got %s", item.ApprovalStatus)
		}
		if item.ID == quotation.Items[0].ID && (item.ApprovedQuantity == nil || *item.ApprovedQuantity != 3000) {
			t.Error("Expected reduced approved quantity persisted")
		}
	}
}

func TestQuotationApproveQuantityOutOfRange(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation := submittedQuotation(t, svc, "company-supplier")
	for _, qty := range []float64{0, -10, 5001} {
		q := qty
		_, err := svc.ApproveItem(ctx, quotation.Items[0].ID, "company-buyer", "user-b1", &ApproveItemRequest{ApprovedQuantity: &q})
		if !IsKind(err, KindInvalidRange) {
			t.Errorf("Expected invalid_range for quantity %.0f, got %v", qty, err)
		}
	}
}

func TestQuotationRejectAllItems(t *testing.T) {
	svc, db := setupQuotationTest(t)
	ctx := context.Background()

	quotation := submittedQuotation(t, svc, "company-supplier")
	for _, item := range quotation.Items {
		var err error
		quotation, err = svc.RejectItem(ctx, item.ID, "company-buyer", "user-b1", &RejectItemRequest{Reason: "价格偏高"})
		if err != nil {
			t.Fatalf("RejectItem failed: %v", err)
		}
	}
	if quotation.Status != entity.QuotationStatusRejected {
		t.Errorf("Expected rejected status, got %s", quotation.Status)
	}

	var item entity.QuotationItem
	db.First(&item, "id = ?", quotation.Items[0].ID)
	if item.RejectReason != "价格偏高" {
		t.Errorf("Expected reject reason persisted, got %q", item.RejectReason)
	}
}

func TestQuotationMixedVerdictsStaySubmitted(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	// 批准与拒绝并存时整单不自动定状态
	quotation := submittedQuotation(t, svc, "company-supplier")
	if _, err := svc.ApproveItem(ctx, quotation.Items[0].ID, "company-buyer", "user-b1", nil); err != nil {
		t.Fatalf("ApproveItem failed: %v", err)
	}
	settled, err := svc.RejectItem(ctx, quotation.Items[1].ID, "company-buyer", "user-b1", &RejectItemRequest{Reason: "交期太长"})
	if err != nil {
		t.Fatalf("RejectItem failed: %v", err)
	}
	if settled.Status != entity.QuotationStatusSubmitted {
		t.Errorf("Expected submitted status on mixed verdicts, got %s", settled.Status)
	}
}

func TestQuotationStaysSubmittedWhilePending(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation := submittedQuotation(t, svc, "company-supplier")
	after, err := svc.ApproveItem(ctx, quotation.Items[0].ID, "company-buyer", "user-b1", nil)
	if err != nil {
		t.Fatalf("ApproveItem failed: %v", err)
	}
	if after.Status != entity.QuotationStatusSubmitted {
		t.Errorf("Expected submitted while one item pending, got %s", after.Status)
	}
}

func TestQuotationApproveAll(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation := submittedQuotation(t, svc, "company-supplier")
	settled, err := svc.ApproveAll(ctx, quotation.ID, "company-buyer", "user-b1")
	if err != nil {
		t.Fatalf("ApproveAll failed: %v", err)
	}
	if settled.Status != entity.QuotationStatusApproved {
		t.Errorf("Expected approved status, got %s", settled.Status)
	}
}

func TestQuotationApproveAllOverridesRejectedItems(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation := submittedQuotation(t, svc, "company-supplier")
	if _, err := svc.RejectItem(ctx, quotation.Items[0].ID, "company-buyer", "user-b1", &RejectItemRequest{Reason: "价格偏高"}); err != nil {
		t.Fatalf("RejectItem failed: %v", err)
	}

	settled, err := svc.ApproveAll(ctx, quotation.ID, "company-buyer", "user-b1")
	if err != nil {
		t.Fatalf("ApproveAll failed: %v", err)
	}
	if settled.Status != entity.QuotationStatusApproved {
		t.Errorf("Expected approved status, got %s", settled.Status)
	}
	for _, item := range settled.Items {
		if item.ApprovalStatus != entity.ApprovalStatusApproved {
			t.Errorf("Expected every item approved, got %s on %s", item.ApprovalStatus, item.ID)
		}
		if item.ApprovedQuantity == nil || *item.ApprovedQuantity != item.OfferedQuantity {
			t.Errorf("Expected full offered quantity on item %s", item.ID)
		}
		if item.RejectReason != "" {
			t.Errorf("Expected reject reason cleared on item %s", item.ID)
		}
	}
}

func TestQuotationApproveAllRequiresSubmitted(t *testing.T) {
	svc, db := setupQuotationTest(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.ApproveAll(ctx, draft.ID, "company-buyer", "user-b1"); !IsKind(err, KindInvalidState) {
		t.Fatalf("Expected invalid_state on draft quotation, got %v", err)
	}

	// 守卫要挡在写入之前，行项不能留下审批痕迹
	var items []entity.QuotationItem
	db.Where("quotation_id = ?", draft.ID).Find(&items)
	for _, item := range items {
		if item.ApprovalStatus != entity.ApprovalStatusPending {
			t.Errorf("Expected item %s untouched, got %s", item.ID, item.ApprovalStatus)
		}
	}
}

func TestQuotationFinalize(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation := submittedQuotation(t, svc, "company-supplier")

	// submitted不可直接定案
	if _, err := svc.Finalize(ctx, quotation.ID, "company-buyer", "user-b1"); !IsKind(err, KindInvalidState) {
		t.Errorf("Expected invalid_state on submitted->completed, got %v", err)
	}

	if _, err := svc.ApproveAll(ctx, quotation.ID, "company-buyer", "user-b1"); err != nil {
		t.Fatalf("ApproveAll failed: %v", err)
	}
	completed, err := svc.Finalize(ctx, quotation.ID, "company-buyer", "user-b1")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if completed.Status != entity.QuotationStatusCompleted {
		t.Errorf("Expected completed status, got %s", completed.Status)
	}
}

func TestQuotationFinalizeRequiresApproved(t *testing.T) {
	svc, db := setupQuotationTest(t)
	ctx := context.Background()

	testutil.SeedQuotation(t, db, &entity.Quotation{
		ID: "quo-partial", QuotationNumber: "QUO-2026-00099", RFQID: "rfq-open",
		SupplierID: "company-supplier-b", Status: entity.QuotationStatusPartiallyApproved,
	})
	if _, err := svc.Finalize(ctx, "quo-partial", "company-buyer", "user-b1"); !IsKind(err, KindInvalidState) {
		t.Errorf("Expected invalid_state finalizing partially_approved quotation, got %v", err)
	}
}

func TestQuotationReviewRequiresSubmitted(t *testing.T) {
	svc, _ := setupQuotationTest(t)
	ctx := context.Background()

	quotation, err := svc.Create(ctx, "company-supplier", "user-s1", basicQuotationRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.ApproveItem(ctx, quotation.Items[0].ID, "company-buyer", "user-b1", nil); !IsKind(err, KindInvalidState) {
		t.Errorf("Expected invalid_state when approving draft quotation item, got %v", err)
	}

	// 非发布方公司审批按不存在处理
	submitted := submittedQuotation(t, svc, "company-supplier-b")
	if _, err := svc.ApproveItem(ctx, submitted.Items[0].ID, "company-supplier", "user-s1", nil); !IsKind(err, KindNotFound) {
		t.Errorf("Expected not_found when non-owner reviews, got %v", err)
	}
}
