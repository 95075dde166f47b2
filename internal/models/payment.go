package models

import (
	"time"

	"gorm.io/gorm"
)

type Payment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index;uniqueIndex:idx_user_idem" json:"user_id"`
	CreatorID      uint           `gorm:"not null;index" json:"creator_id"`
	AmountMinor    int64          `gorm:"not null" json:"amount_minor"`
	Currency       string         `gorm:"size:3;not null" json:"currency"`
	Provider       string         `gorm:"size:50;not null" json:"provider"`
	Purpose        string         `gorm:"size:20;not null;index" json:"purpose"` // SUBSCRIPTION, PRODUCT, DM_BUNDLE
	OrderRef       string         `gorm:"size:128;uniqueIndex;not null" json:"order_ref"`
	ProviderRef    string         `gorm:"size:255;index" json:"provider_ref"`    // provider order/session id
	ProviderTxnID  string         `gorm:"size:255" json:"provider_txn_id"`       // provider payment/transaction id
	Status         string         `gorm:"size:20;not null;index" json:"status"`  // PENDING, COMPLETED, FAILED
	FailureReason  string         `gorm:"size:255" json:"failure_reason,omitempty"`
	IdempotencyKey string         `gorm:"size:255;uniqueIndex:idx_user_idem" json:"-"` // unique per user, not globally
	Metadata       string         `gorm:"type:text" json:"metadata"` // JSON
	CompletedAt    *time.Time     `json:"completed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
