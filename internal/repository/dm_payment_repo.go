package repository

import (
	"time"

	"creatorpay/internal/domain"
	"creatorpay/internal/models"

	"gorm.io/gorm"
)

type DMPaymentRepository struct {
	db *gorm.DB
}

func NewDMPaymentRepository(db *gorm.DB) *DMPaymentRepository {
	return &DMPaymentRepository{db: db}
}

// MintOnce creates the credit record for a completed bundle payment if it
// does not exist yet; the unique index on payment_id makes a replayed
// completion a no-op.
func (r *DMPaymentRepository) MintOnce(d *models.DMPayment) error {
	return r.db.Where(models.DMPayment{PaymentID: d.PaymentID}).FirstOrCreate(d).Error
}

func (r *DMPaymentRepository) GetByID(id uint) (*models.DMPayment, error) {
	var d models.DMPayment
	err := r.db.First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindUsable returns the COMPLETED, unexpired, under-quota credit records
// for a (sender, creator) pair, oldest first: older purchases must drain
// before newer ones.
func (r *DMPaymentRepository) FindUsable(userID, creatorID uint, now time.Time) ([]models.DMPayment, error) {
	var list []models.DMPayment
	err := r.db.
		Where("user_id = ? AND creator_id = ? AND status = ?", userID, creatorID, domain.PaymentCompleted).
		Where("messages_used < messages_allowed").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// ConsumeCredit spends one message from a specific credit record as a
// single conditional update: the increment only lands if
// messages_used < messages_allowed still holds at write time, so two
// concurrent sends can never overdraw the same record. Returns false when
// the record was already exhausted.
func (r *DMPaymentRepository) ConsumeCredit(id uint) (bool, error) {
	tx := r.db.Model(&models.DMPayment{}).
		Where("id = ? AND messages_used < messages_allowed", id).
		UpdateColumn("messages_used", gorm.Expr("messages_used + ?", 1))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// RemainingCredits sums the unused allowance across usable records.
func (r *DMPaymentRepository) RemainingCredits(userID, creatorID uint, now time.Time) (int, error) {
	var remaining *int
	err := r.db.Model(&models.DMPayment{}).
		Select("SUM(messages_allowed - messages_used)").
		Where("user_id = ? AND creator_id = ? AND status = ?", userID, creatorID, domain.PaymentCompleted).
		Where("messages_used < messages_allowed").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Scan(&remaining).Error
	if err != nil || remaining == nil {
		return 0, err
	}
	return *remaining, nil
}
