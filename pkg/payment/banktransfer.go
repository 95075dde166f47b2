package payment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// BankTransferProvider is the manual flow: order creation only records a
// PENDING payment with the platform's static account details attached, and
// completion happens when an operator confirms the incoming transfer via
// VerifyBankTransfer. There is no automated verification path.
type BankTransferProvider struct {
	cfg   BankTransferConfig
	store Store
}

type BankTransferConfig struct {
	BankName      string
	Branch        string
	AccountName   string
	AccountNumber string
}

func NewBankTransferProvider(cfg BankTransferConfig, store Store) *BankTransferProvider {
	return &BankTransferProvider{cfg: cfg, store: store}
}

func (p *BankTransferProvider) CreateOrder(ctx context.Context, cfg Config) (*Result, error) {
	return &Result{
		Success: true,
		OrderID: cfg.OrderRef,
		Instructions: map[string]string{
			"bank_name":      p.cfg.BankName,
			"branch":         p.cfg.Branch,
			"account_name":   p.cfg.AccountName,
			"account_number": p.cfg.AccountNumber,
			"reference":      cfg.OrderRef,
		},
	}, nil
}

// VerifyPayment reports the current stored state; the transfer itself can
// only be confirmed by an operator.
func (p *BankTransferProvider) VerifyPayment(ctx context.Context, orderID, _, _ string) (*Verification, error) {
	rec, err := p.store.FindPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Verification{
		Success:   rec.Status == StatusCompleted,
		OrderID:   orderID,
		PaymentID: rec.PaymentID,
		Amount:    rec.Amount,
		Status:    rec.Status,
	}, nil
}

// ProcessWebhook is a no-op; banks do not call us.
func (p *BankTransferProvider) ProcessWebhook(ctx context.Context, payload WebhookPayload) error {
	logrus.WithField("provider", "bank_transfer").Info("ignoring webhook for manual provider")
	return nil
}

// VerifyBankTransfer is the privileged operation that completes a pending
// bank-transfer payment once an operator has matched the incoming funds.
// transactionID is the bank's reference for the transfer. Re-verifying an
// already completed order is a no-op.
func (p *BankTransferProvider) VerifyBankTransfer(ctx context.Context, orderID, transactionID, note string) error {
	if transactionID == "" {
		return fmt.Errorf("bank transfer verify: transaction id required")
	}
	first, err := p.store.CompletePayment(ctx, orderID, transactionID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{
		"provider":       "bank_transfer",
		"order_id":       orderID,
		"transaction_id": transactionID,
		"note":           note,
	})
	if !first {
		log.Info("bank transfer already verified")
		return nil
	}
	log.Info("bank transfer verified")
	return nil
}
