package repository

import (
	"creatorpay/internal/models"

	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(p *models.Product) error {
	return r.db.Create(p).Error
}

func (r *ProductRepository) GetByID(id uint) (*models.Product, error) {
	var p models.Product
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) ListByCreator(creatorID uint) ([]models.Product, error) {
	var list []models.Product
	err := r.db.Where("creator_id = ? AND active = ?", creatorID, true).
		Order("created_at DESC").Find(&list).Error
	return list, err
}
