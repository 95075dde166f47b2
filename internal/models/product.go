package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a one-off purchasable item (download, preset pack, etc.)
// listed by a creator.
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatorID   uint           `gorm:"not null;index" json:"creator_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	PriceMinor  int64          `gorm:"not null" json:"price_minor"`
	Currency    string         `gorm:"size:3;not null" json:"currency"`
	DownloadURL string         `gorm:"size:512" json:"-"` // released only through a granted purchase
	Active      bool           `gorm:"default:true;index" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
