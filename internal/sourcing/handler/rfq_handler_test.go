package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/testutil"
)

func setupRFQHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	sequenceSvc := service.NewSequenceService(repos.Sequence)
	quotaSvc := service.NewQuotaService(repos.Company)
	rfqSvc := service.NewRFQService(repos.RFQ, repos.Company, repos.ActivityLog, quotaSvc, sequenceSvc)

	h := NewRFQHandler(rfqSvc)
	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/rfqs", h.CreateRFQ)
	api.GET("/rfqs/:id", h.GetRFQ)
	api.POST("/rfqs/:id/publish", h.PublishRFQ)
	api.GET("/rfqs/:id/activity", h.GetActivity)

	testutil.SeedSector(t, db, "sector-1", "电子")
	testutil.SeedPackage(t, db, "pkg-std", 0, 0, 0)
	testutil.SeedPackage(t, db, "pkg-one", 0, 0, 1)
	testutil.SeedCompany(t, db, "company-buyer", "采购方", "sector-1", "pkg-std")
	testutil.SeedCompany(t, db, "company-supplier", "供应商", "sector-1", "pkg-std")
	testutil.SeedCompany(t, db, "company-limited", "受限公司", "sector-1", "pkg-one")

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func rfqRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"title":      "电容采购",
		"start_date": time.Now().Format(time.RFC3339),
		"end_date":   time.Now().AddDate(0, 0, 14).Format(time.RFC3339),
		"items": []map[string]interface{}{
			{"description": "贴片电容 100nF", "quantity": 5000},
		},
	}
}

// TestRFQCreatePublishGetFlow 走通创建→发布→他人可见的主流程
func TestRFQCreatePublishGetFlow(t *testing.T) {
	env := setupRFQHandlerTest(t)
	buyerToken := testutil.GenerateTestToken("user-1", "采购员", "company-buyer", "member")
	supplierToken := testutil.GenerateTestToken("user-2", "销售员", "company-supplier", "member")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/rfqs", rfqRequestBody(), buyerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	rfqID := data["id"].(string)
	if data["status"].(string) != "draft" {
		t.Fatalf("expected draft status, got %v", data["status"])
	}
	if data["rfq_number"].(string) == "" {
		t.Fatal("expected generated rfq_number")
	}

	// 草稿对他人不可见
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/rfqs/"+rfqID, nil, supplierToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for others' draft, got %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/rfqs/"+rfqID+"/publish", nil, buyerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on publish, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/rfqs/"+rfqID, nil, supplierToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for published RFQ, got %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["status"].(string) != "published" {
		t.Fatalf("expected published status, got %v", data["status"])
	}
}

// TestRFQQuotaExceededResponse 超套餐额度返回403与limit_type
func TestRFQQuotaExceededResponse(t *testing.T) {
	env := setupRFQHandlerTest(t)
	token := testutil.GenerateTestToken("user-1", "采购员", "company-limited", "member")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/rfqs", rfqRequestBody(), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first create, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/rfqs", rfqRequestBody(), token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on quota exceeded, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40320 {
		t.Errorf("expected code 40320, got %v", resp["code"])
	}
	data := resp["data"].(map[string]interface{})
	if data["limit_type"].(string) != "rfq_per_month" {
		t.Errorf("expected limit_type rfq_per_month, got %v", data["limit_type"])
	}
}

func TestRFQBadRequestAndNotFound(t *testing.T) {
	env := setupRFQHandlerTest(t)
	token := testutil.GenerateTestToken("user-1", "采购员", "company-buyer", "member")

	// 缺必填字段
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/rfqs", map[string]interface{}{"title": "缺日期"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on missing dates, got %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/rfqs/no-such-id", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40400 {
		t.Errorf("expected code 40400, got %v", resp["code"])
	}

	// 未携带token
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/rfqs/no-such-id", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
