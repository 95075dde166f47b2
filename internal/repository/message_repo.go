package repository

import (
	"creatorpay/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(m *models.Message) error {
	return r.db.Create(m).Error
}

func (r *MessageRepository) ListConversation(senderID, creatorID uint, limit, offset int) ([]models.Message, error) {
	var list []models.Message
	err := r.db.Where("sender_id = ? AND creator_id = ?", senderID, creatorID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
