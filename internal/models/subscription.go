package models

import (
	"time"

	"gorm.io/gorm"
)

type Subscription struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	CreatorID   uint           `gorm:"not null;index" json:"creator_id"`
	PaymentID   *uint          `gorm:"index" json:"payment_id"`
	ProviderRef string         `gorm:"size:255;index" json:"provider_ref"` // provider-side subscription id, if recurring
	Status      string         `gorm:"size:20;not null;index" json:"status"` // PENDING, ACTIVE, PAST_DUE, CANCELLED
	ActivatedAt *time.Time     `json:"activated_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
