package entity

import "time"

// RFQ 询价单（买方发布的采购询价）
type RFQ struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	RFQNumber string `json:"rfq_number" gorm:"size:32;uniqueIndex;not null"` // RFQ-{year}-{5位序号}
	Title     string `json:"title" gorm:"size:200;not null"`
	Status    string `json:"status" gorm:"size:20;default:draft"` // draft/published/under_review/closed/completed/cancelled

	// 归属
	CompanyID string `json:"company_id" gorm:"size:32;not null;index"`
	SectorID  string `json:"sector_id" gorm:"size:32;index"`

	// 报价窗口
	Visibility string    `json:"visibility" gorm:"size:20;default:all_sector"` // my_suppliers/all_sector/selected
	StartDate  time.Time `json:"start_date" gorm:"not null"`
	EndDate    time.Time `json:"end_date" gorm:"not null;index"`
	Currency   string    `json:"currency" gorm:"size:10;default:TRY"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Company  *Company     `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	Items    []RFQItem    `json:"items,omitempty" gorm:"foreignKey:RFQID"`
	Contacts []RFQContact `json:"contacts,omitempty" gorm:"foreignKey:RFQID"`
}

func (RFQ) TableName() string {
	return "rfqs"
}

// RFQ状态
const (
	RFQStatusDraft       = "draft"
	RFQStatusPublished   = "published"
	RFQStatusUnderReview = "under_review"
	RFQStatusClosed      = "closed"
	RFQStatusCompleted   = "completed"
	RFQStatusCancelled   = "cancelled"
)

// RFQ可见范围
const (
	RFQVisibilityMySuppliers = "my_suppliers"
	RFQVisibilityAllSector   = "all_sector"
	RFQVisibilitySelected    = "selected"
)

// RFQItem 询价单行项
type RFQItem struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	RFQID string `json:"rfq_id" gorm:"size:32;not null;index"`

	MaterialID     *string `json:"material_id" gorm:"size:32"`
	Description    string  `json:"description" gorm:"size:500;not null"`
	Quantity       float64 `json:"quantity" gorm:"type:decimal(12,2);not null"`
	Unit           string  `json:"unit" gorm:"size:20;default:pcs"`
	TechnicalSpecs string  `json:"technical_specs" gorm:"type:text"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RFQItem) TableName() string {
	return "rfq_items"
}

// RFQContact 询价单联系人
type RFQContact struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	RFQID string `json:"rfq_id" gorm:"size:32;not null;index"`

	Name  string `json:"name" gorm:"size:100;not null"`
	Email string `json:"email" gorm:"size:200"`
	Phone string `json:"phone" gorm:"size:30"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RFQContact) TableName() string {
	return "rfq_contacts"
}
