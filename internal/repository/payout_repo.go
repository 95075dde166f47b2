package repository

import (
	"creatorpay/internal/models"

	"gorm.io/gorm"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(p *models.Payout) error {
	return r.db.Create(p).Error
}

func (r *PayoutRepository) GetByOrderID(orderID string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.Where("order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PayoutRepository) Update(p *models.Payout) error {
	return r.db.Save(p).Error
}

func (r *PayoutRepository) ListByUser(userID uint) ([]models.Payout, error) {
	var list []models.Payout
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}
