package entity

import "time"

// Notification 站内通知（按公司维度投递）
type Notification struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	CompanyID string `json:"company_id" gorm:"size:32;not null;index"`

	Type    string `json:"type" gorm:"size:30;not null"` // new_rfq/new_quotation/quotation_approved/quotation_rejected/rfq_expiring
	Title   string `json:"title" gorm:"size:200;not null"`
	Message string `json:"message" gorm:"type:text"`

	// 关联单据（可选）
	RFQID       *string `json:"rfq_id" gorm:"size:32"`
	QuotationID *string `json:"quotation_id" gorm:"size:32"`

	IsRead    bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt    *time.Time `json:"read_at"`
	IsActive  bool       `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// 通知类型
const (
	NotificationTypeNewRFQ            = "new_rfq"
	NotificationTypeNewQuotation      = "new_quotation"
	NotificationTypeQuotationApproved = "quotation_approved"
	NotificationTypeQuotationRejected = "quotation_rejected"
	NotificationTypeRFQExpiring       = "rfq_expiring"
)

// ActivityLog 单据操作日志
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:20;not null;index:idx_activity_entity"` // rfq/quotation
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_activity_entity"`

	Action     string `json:"action" gorm:"size:30;not null"`
	FromStatus string `json:"from_status" gorm:"size:20"`
	ToStatus   string `json:"to_status" gorm:"size:20"`
	OperatorID string `json:"operator_id" gorm:"size:32"`
	Detail     string `json:"detail" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
