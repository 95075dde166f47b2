package models

import (
	"time"

	"creatorpay/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role     string `gorm:"size:20;not null;index" json:"role"` // USER | CREATOR | ADMIN

	// Creator monetization settings. Amounts are minor units (paise/cents).
	Currency               string `gorm:"size:3;default:'NPR'" json:"currency"`
	SubscriptionPriceMinor int64  `gorm:"default:0" json:"subscription_price_minor"`
	DMPriceMinor           int64  `gorm:"default:0" json:"dm_price_minor"` // 0 = free DMs
	DMBundleMessages       int    `gorm:"default:10" json:"dm_bundle_messages"`
	DMBundleExpiryDays     int    `gorm:"default:0" json:"dm_bundle_expiry_days"` // 0 = no expiry
	CommissionTier         string `gorm:"size:20;default:'STANDARD'" json:"commission_tier"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsCreator() bool { return u.Role == domain.RoleCreator }
func (u *User) IsAdmin() bool   { return u.Role == domain.RoleAdmin }
