package models

import (
	"time"

	"gorm.io/gorm"
)

// DMPayment is a pre-purchased paid-message allowance for a (sender,
// creator) pair. Several records may coexist; the oldest usable one is
// drained first. 0 <= MessagesUsed <= MessagesAllowed must hold under
// concurrent sends, which is why consumption goes through a single
// conditional UPDATE (see DMPaymentRepository.ConsumeCredit).
type DMPayment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index:idx_dm_pair" json:"user_id"`
	CreatorID       uint           `gorm:"not null;index:idx_dm_pair" json:"creator_id"`
	PaymentID       *uint          `gorm:"uniqueIndex" json:"payment_id"`
	Status          string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	MessagesAllowed int            `gorm:"not null" json:"messages_allowed"`
	MessagesUsed    int            `gorm:"not null;default:0" json:"messages_used"`
	ExpiresAt       *time.Time     `json:"expires_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DMPayment) TableName() string {
	return "dm_payments"
}

// Remaining returns the unused message count.
func (d *DMPayment) Remaining() int {
	return d.MessagesAllowed - d.MessagesUsed
}
