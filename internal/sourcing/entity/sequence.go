package entity

import "time"

// DocumentSequence 单据编号计数器，按(单据族,年份)一行
// 编号分配走原子UPSERT自增，避免"查最大值再加一"的并发重号
type DocumentSequence struct {
	ID     uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Family string `json:"family" gorm:"size:10;not null;uniqueIndex:idx_doc_seq_family_year"` // RFQ/QUO
	Year   int    `json:"year" gorm:"not null;uniqueIndex:idx_doc_seq_family_year"`
	Value  int64  `json:"value" gorm:"not null;default:0"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (DocumentSequence) TableName() string {
	return "document_sequences"
}
