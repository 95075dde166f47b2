package models

import (
	"time"

	"gorm.io/gorm"
)

// Purchase grants a user access to a product. The unique index on
// payment_id keeps a re-delivered webhook from granting twice.
type Purchase struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	PaymentID uint           `gorm:"not null;uniqueIndex" json:"payment_id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (Purchase) TableName() string {
	return "purchases"
}
