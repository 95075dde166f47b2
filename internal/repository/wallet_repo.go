package repository

import (
	"errors"

	"creatorpay/internal/models"

	"gorm.io/gorm"
)

var ErrInsufficientBalance = errors.New("insufficient wallet balance")

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) GetOrCreate(userID uint, currency string) (*models.Wallet, error) {
	w, err := r.GetByUserID(userID)
	if err == nil {
		return w, nil
	}
	w = &models.Wallet{UserID: userID, BalanceMinor: 0, Currency: currency}
	if err := r.db.Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// Credit adds to the balance in place; the increment runs in SQL so
// concurrent earnings cannot lose updates.
func (r *WalletRepository) Credit(userID uint, amountMinor int64, currency string) error {
	if _, err := r.GetOrCreate(userID, currency); err != nil {
		return err
	}
	return r.db.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		UpdateColumn("balance_minor", gorm.Expr("balance_minor + ?", amountMinor)).Error
}

// Debit subtracts only while the balance covers the amount; the guard is
// part of the update itself.
func (r *WalletRepository) Debit(userID uint, amountMinor int64) error {
	tx := r.db.Model(&models.Wallet{}).
		Where("user_id = ? AND balance_minor >= ?", userID, amountMinor).
		UpdateColumn("balance_minor", gorm.Expr("balance_minor - ?", amountMinor))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *WalletRepository) RecordTransaction(t *models.WalletTransaction) error {
	return r.db.Create(t).Error
}

// CreditOnce credits the balance and records the transaction atomically,
// keyed on (type, reference): a replayed completion finds the existing
// transaction row and leaves the balance alone. Returns whether this call
// performed the credit.
func (r *WalletRepository) CreditOnce(userID uint, amountMinor int64, currency, txnType, reference string) (bool, error) {
	credited := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		txn := models.WalletTransaction{
			UserID:      userID,
			AmountMinor: amountMinor,
			Type:        txnType,
			Reference:   reference,
		}
		res := tx.Where(models.WalletTransaction{Type: txnType, Reference: reference}).FirstOrCreate(&txn)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		w := models.Wallet{UserID: userID}
		if err := tx.Where(models.Wallet{UserID: userID}).
			Attrs(models.Wallet{Currency: currency}).FirstOrCreate(&w).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Wallet{}).
			Where("user_id = ?", userID).
			UpdateColumn("balance_minor", gorm.Expr("balance_minor + ?", amountMinor)).Error; err != nil {
			return err
		}
		credited = true
		return nil
	})
	return credited, err
}
