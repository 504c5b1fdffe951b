package entity

import "time"

// Quotation 报价单（供应商对一张RFQ的响应）
type Quotation struct {
	ID              string `json:"id" gorm:"primaryKey;size:32"`
	QuotationNumber string `json:"quotation_number" gorm:"size:32;uniqueIndex;not null"` // QUO-{year}-{5位序号}
	RFQID           string `json:"rfq_id" gorm:"size:32;not null;index:idx_quotations_rfq_supplier"`
	SupplierID      string `json:"supplier_id" gorm:"size:32;not null;index:idx_quotations_rfq_supplier"`

	Status string `json:"status" gorm:"size:20;default:draft"` // draft/submitted/approved/rejected/partially_approved/withdrawn/completed

	// 金额（派生值，行项变化时重算）
	TotalAmount float64    `json:"total_amount" gorm:"type:decimal(15,2);default:0"`
	ValidUntil  *time.Time `json:"valid_until"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	RFQ      *RFQ            `json:"rfq,omitempty" gorm:"foreignKey:RFQID"`
	Supplier *Company        `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []QuotationItem `json:"items,omitempty" gorm:"foreignKey:QuotationID"`
}

func (Quotation) TableName() string {
	return "quotations"
}

// 报价单状态
const (
	QuotationStatusDraft             = "draft"
	QuotationStatusSubmitted         = "submitted"
	QuotationStatusApproved          = "approved"
	QuotationStatusRejected          = "rejected"
	QuotationStatusPartiallyApproved = "partially_approved"
	QuotationStatusWithdrawn         = "withdrawn"
	QuotationStatusCompleted         = "completed"
)

// QuotationItem 报价单行项，引用一条RFQ行项
type QuotationItem struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	QuotationID string `json:"quotation_id" gorm:"size:32;not null;index"`
	RFQItemID   string `json:"rfq_item_id" gorm:"size:32;not null;index"`

	UnitPrice       float64    `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	OfferedQuantity float64    `json:"offered_quantity" gorm:"type:decimal(12,2);not null"`
	TotalPrice      float64    `json:"total_price" gorm:"type:decimal(15,2);not null"` // unit_price × offered_quantity
	DeliveryDate    *time.Time `json:"delivery_date"`

	ApprovalStatus   string   `json:"approval_status" gorm:"size:20;default:pending"` // pending/approved/rejected/partial_approved
	ApprovedQuantity *float64 `json:"approved_quantity" gorm:"type:decimal(12,2)"`
	RejectReason     string   `json:"reject_reason" gorm:"size:500"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RFQItem *RFQItem `json:"rfq_item,omitempty" gorm:"foreignKey:RFQItemID"`
}

func (QuotationItem) TableName() string {
	return "quotation_items"
}

// 行项审批状态
const (
	ApprovalStatusPending         = "pending"
	ApprovalStatusApproved        = "approved"
	ApprovalStatusRejected        = "rejected"
	ApprovalStatusPartialApproved = "partial_approved"
)
