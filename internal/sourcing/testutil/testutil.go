package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/middleware"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "b2b-sourcing-jwt-secret-test"

// TestEnv 测试环境资源
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB 每个测试一个独立的内存sqlite库
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared", uuid.New().String()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&entity.Sector{},
		&entity.Package{},
		&entity.Company{},
		&entity.User{},
		&entity.Material{},
		&entity.RFQ{},
		&entity.RFQItem{},
		&entity.RFQContact{},
		&entity.Quotation{},
		&entity.QuotationItem{},
		&entity.Notification{},
		&entity.ActivityLog{},
		&entity.DocumentSequence{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupRouter 创建测试用gin路由
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup 带JWT认证的测试路由组
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken 生成测试JWT，公司ID放进claims
func GenerateTestToken(userID, name, companyID, role string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        userID,
		"uid":        userID,
		"name":       name,
		"email":      name + "@test.com",
		"company_id": companyID,
		"role":       role,
		"iss":        "b2b-sourcing",
		"iat":        now.Unix(),
		"exp":        now.Add(24 * time.Hour).Unix(),
		"jti":        fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DoRequest 对测试路由执行HTTP请求
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse 解析统一响应结构
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// === 种子数据 ===

// SeedSector 创建测试行业
func SeedSector(t *testing.T, db *gorm.DB, id, name string) *entity.Sector {
	t.Helper()
	sector := &entity.Sector{ID: id, Name: name, IsActive: true}
	if err := db.Create(sector).Error; err != nil {
		t.Fatalf("Failed to seed sector: %v", err)
	}
	return sector
}

// SeedPackage 创建测试套餐，上限0表示不限
func SeedPackage(t *testing.T, db *gorm.DB, id string, maxUsers, maxMaterials, maxRFQPerMonth int) *entity.Package {
	t.Helper()
	pkg := &entity.Package{
		ID:             id,
		Name:           "pkg_" + id,
		MaxUsers:       maxUsers,
		MaxMaterials:   maxMaterials,
		MaxRFQPerMonth: maxRFQPerMonth,
		IsActive:       true,
	}
	if err := db.Create(pkg).Error; err != nil {
		t.Fatalf("Failed to seed package: %v", err)
	}
	return pkg
}

// SeedCompany 创建测试公司
func SeedCompany(t *testing.T, db *gorm.DB, id, name, sectorID, packageID string) *entity.Company {
	t.Helper()
	company := &entity.Company{
		ID:        id,
		Name:      name,
		TaxNumber: "tax_" + id,
		SectorID:  sectorID,
		PackageID: packageID,
		IsActive:  true,
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("Failed to seed company: %v", err)
	}
	return company
}

// SeedRFQ 创建测试询价单
func SeedRFQ(t *testing.T, db *gorm.DB, rfq *entity.RFQ) *entity.RFQ {
	t.Helper()
	if rfq.Currency == "" {
		rfq.Currency = "TRY"
	}
	if rfq.Visibility == "" {
		rfq.Visibility = entity.RFQVisibilityAllSector
	}
	rfq.IsActive = true
	if err := db.Create(rfq).Error; err != nil {
		t.Fatalf("Failed to seed RFQ: %v", err)
	}
	return rfq
}

// SeedRFQItem 创建测试询价行项
func SeedRFQItem(t *testing.T, db *gorm.DB, id, rfqID, description string, quantity float64, sortOrder int) *entity.RFQItem {
	t.Helper()
	item := &entity.RFQItem{
		ID:          id,
		RFQID:       rfqID,
		Description: description,
		Quantity:    quantity,
		Unit:        "pcs",
		IsActive:    true,
		SortOrder:   sortOrder,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to seed RFQ item: %v", err)
	}
	return item
}

// SeedQuotation 创建测试报价单
func SeedQuotation(t *testing.T, db *gorm.DB, quotation *entity.Quotation) *entity.Quotation {
	t.Helper()
	quotation.IsActive = true
	if err := db.Create(quotation).Error; err != nil {
		t.Fatalf("Failed to seed quotation: %v", err)
	}
	return quotation
}
