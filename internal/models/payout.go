package models

import (
	"time"

	"gorm.io/gorm"
)

type Payout struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	OrderID     string         `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	AmountMinor int64          `gorm:"not null" json:"amount_minor"`
	Currency    string         `gorm:"size:3;not null" json:"currency"`
	Status      string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	Note        string         `gorm:"size:255" json:"note"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payout) TableName() string {
	return "payouts"
}
