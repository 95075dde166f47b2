package repository

import (
	"creatorpay/internal/models"

	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// GrantOnce creates the purchase for a completed payment if it does not
// exist yet. The unique index on payment_id backs this up at the database
// level, so a racing duplicate webhook cannot double-grant.
func (r *PurchaseRepository) GrantOnce(userID, productID, paymentID uint) error {
	p := models.Purchase{UserID: userID, ProductID: productID, PaymentID: paymentID}
	return r.db.Where(models.Purchase{PaymentID: paymentID}).FirstOrCreate(&p).Error
}

func (r *PurchaseRepository) GetByUserAndProduct(userID, productID uint) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PurchaseRepository) ListByUser(userID uint) ([]models.Purchase, error) {
	var list []models.Purchase
	err := r.db.Preload("Product").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&list).Error
	return list, err
}
