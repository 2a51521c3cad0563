package model

import "time"

// Derivative records one transformed object written to the derivative store.
type Derivative struct {
	ID            uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
	DerivativeKey string    `gorm:"column:derivative_key;type:varchar(1024);uniqueIndex:uk_derivative_key" json:"derivative_key"`
	OriginalKey   string    `gorm:"column:original_key;type:varchar(1024);index:idx_original_key" json:"original_key"`
	Operations    string    `gorm:"column:operations;type:varchar(512)" json:"operations"`
	ContentType   string    `gorm:"column:content_type;type:varchar(128)" json:"content_type"`
	Size          int64     `gorm:"column:size" json:"size"`
}

// TableName overrides gorm to use derivative table.
func (Derivative) TableName() string {
	return "derivative"
}
