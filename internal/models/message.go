package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is a direct message from a user to a creator. DMPaymentID points
// at the credit record the send consumed; nil when the creator's DMs are
// free.
type Message struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SenderID    uint           `gorm:"not null;index" json:"sender_id"`
	CreatorID   uint           `gorm:"not null;index" json:"creator_id"`
	Body        string         `gorm:"type:text;not null" json:"body"`
	DMPaymentID *uint          `gorm:"index" json:"dm_payment_id"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}
