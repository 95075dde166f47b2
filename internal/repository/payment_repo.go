package repository

import (
	"time"

	"creatorpay/internal/domain"
	"creatorpay/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByOrderRef(ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("order_ref = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByProviderRef matches either the provider-side order id or our own
// order reference, since some providers echo back only one of the two.
func (r *PaymentRepository) GetByProviderRef(ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("provider_ref = ? OR order_ref = ?", ref, ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIdempotencyKey is scoped to the owning user: keys are arbitrary
// client strings, so the same key from two users names two payments.
func (r *PaymentRepository) GetByIdempotencyKey(userID uint, key string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("user_id = ? AND idempotency_key = ?", userID, key).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

// CompleteIfPending transitions PENDING -> COMPLETED as one guarded update.
// Returns false when the payment was already in a terminal state, which is
// how webhook replays become no-ops.
func (r *PaymentRepository) CompleteIfPending(id uint, providerTxnID string) (bool, error) {
	now := time.Now()
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]interface{}{
			"status":          domain.PaymentCompleted,
			"provider_txn_id": providerTxnID,
			"completed_at":    &now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// FailIfPending transitions PENDING -> FAILED; terminal states stay put.
func (r *PaymentRepository) FailIfPending(id uint, reason string) (bool, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]interface{}{
			"status":         domain.PaymentFailed,
			"failure_reason": reason,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListPendingByProvider(provider string) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("provider = ? AND status = ?", provider, domain.PaymentPending).
		Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *PaymentRepository) ListByUser(userID uint, limit, offset int) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
