package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	RFQ          *RFQRepository
	Quotation    *QuotationRepository
	Company      *CompanyRepository
	Sequence     *SequenceRepository
	Notification *NotificationRepository
	ActivityLog  *ActivityLogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		RFQ:          NewRFQRepository(db),
		Quotation:    NewQuotationRepository(db),
		Company:      NewCompanyRepository(db),
		Sequence:     NewSequenceRepository(db),
		Notification: NewNotificationRepository(db),
		ActivityLog:  NewActivityLogRepository(db),
	}
}
