package repository

import (
	"time"

	"creatorpay/internal/domain"
	"creatorpay/internal/models"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(s *models.Subscription) error {
	return r.db.Create(s).Error
}

func (r *SubscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) GetByPaymentID(paymentID uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Where("payment_id = ?", paymentID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) GetByProviderRef(ref string) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Where("provider_ref = ?", ref).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ActivateIfNotActive flips a subscription to ACTIVE unless it is already
// there; re-delivered activation events change nothing.
func (r *SubscriptionRepository) ActivateIfNotActive(id uint) (bool, error) {
	now := time.Now()
	tx := r.db.Model(&models.Subscription{}).
		Where("id = ? AND status <> ?", id, domain.SubscriptionActive).
		Updates(map[string]interface{}{
			"status":       domain.SubscriptionActive,
			"activated_at": &now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *SubscriptionRepository) MarkPastDue(id uint) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, domain.SubscriptionActive).
		Update("status", domain.SubscriptionPastDue).Error
}

// Cancel is terminal; cancelling twice is a no-op.
func (r *SubscriptionRepository) Cancel(id uint) error {
	now := time.Now()
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND status <> ?", id, domain.SubscriptionCancelled).
		Updates(map[string]interface{}{
			"status":       domain.SubscriptionCancelled,
			"cancelled_at": &now,
		}).Error
}

func (r *SubscriptionRepository) SetProviderRef(id uint, ref string) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Update("provider_ref", ref).Error
}

func (r *SubscriptionRepository) ListByUser(userID uint) ([]models.Subscription, error) {
	var list []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}
