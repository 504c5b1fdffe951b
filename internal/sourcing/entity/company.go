package entity

import "time"

// Company 公司（买方或供应商，同一张表）
type Company struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	Name      string `json:"name" gorm:"size:200;not null"`
	TaxNumber string `json:"tax_number" gorm:"size:50;uniqueIndex"`
	SectorID  string `json:"sector_id" gorm:"size:32;index"`
	PackageID string `json:"package_id" gorm:"size:32"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Package *Package `json:"package,omitempty" gorm:"foreignKey:PackageID"`
	Sector  *Sector  `json:"sector,omitempty" gorm:"foreignKey:SectorID"`
}

func (Company) TableName() string {
	return "companies"
}

// Package 订阅套餐。上限为0表示不限
type Package struct {
	ID    string  `json:"id" gorm:"primaryKey;size:32"`
	Name  string  `json:"name" gorm:"size:100;not null"`
	Price float64 `json:"price" gorm:"type:decimal(12,2)"`

	MaxUsers             int  `json:"max_users" gorm:"default:0"`
	MaxMaterials         int  `json:"max_materials" gorm:"default:0"`
	MaxRFQPerMonth       int  `json:"max_rfq_per_month" gorm:"default:0"`
	CanUseSAPIntegration bool `json:"can_use_sap_integration" gorm:"default:false"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Package) TableName() string {
	return "packages"
}

// Sector 行业分类
type Sector struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Sector) TableName() string {
	return "sectors"
}

// User 公司用户（配额计数用）
type User struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	CompanyID string `json:"company_id" gorm:"size:32;not null;index"`
	Name      string `json:"name" gorm:"size:100;not null"`
	Email     string `json:"email" gorm:"size:200;uniqueIndex"`
	Role      string `json:"role" gorm:"size:20;default:member"` // admin/member

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Material 公司物料主数据（配额计数与RFQ行项引用）
type Material struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	CompanyID string `json:"company_id" gorm:"size:32;not null;index"`
	Code      string `json:"code" gorm:"size:50"`
	Name      string `json:"name" gorm:"size:200;not null"`
	Unit      string `json:"unit" gorm:"size:20;default:pcs"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Material) TableName() string {
	return "materials"
}
