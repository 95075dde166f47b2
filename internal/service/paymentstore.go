package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"creatorpay/internal/domain"
	"creatorpay/internal/models"
	"creatorpay/pkg/payment"

	"github.com/sirupsen/logrus"
)

// Interfaces over the repositories so the completion logic is testable
// without a database.

type PaymentLedger interface {
	GetByProviderRef(ref string) (*models.Payment, error)
	CompleteIfPending(id uint, providerTxnID string) (bool, error)
	FailIfPending(id uint, reason string) (bool, error)
}

type SubscriptionLedger interface {
	GetByPaymentID(paymentID uint) (*models.Subscription, error)
	GetByProviderRef(ref string) (*models.Subscription, error)
	ActivateIfNotActive(id uint) (bool, error)
	MarkPastDue(id uint) error
	Cancel(id uint) error
	SetProviderRef(id uint, ref string) error
}

type PurchaseGranter interface {
	GrantOnce(userID, productID, paymentID uint) error
}

type CreditWriter interface {
	MintOnce(d *models.DMPayment) error
}

type EarningsWallet interface {
	CreditOnce(userID uint, amountMinor int64, currency, txnType, reference string) (bool, error)
}

type UserLookup interface {
	GetByID(id uint) (*models.User, error)
}

// PaymentMeta is what checkout stashes in the payment's metadata column so
// completion knows which side effect to run.
type PaymentMeta struct {
	ProductID        uint `json:"product_id,omitempty"`
	BundleMessages   int  `json:"bundle_messages,omitempty"`
	BundleExpiryDays int  `json:"bundle_expiry_days,omitempty"`
}

// PaymentStore adapts the repositories to payment.Store. It owns the
// completion side effects: activating the subscription, granting the
// download, minting the DM allowance, and crediting the creator's wallet
// with net earnings. Effects run only on the first PENDING -> COMPLETED
// transition, so a replayed webhook changes nothing.
type PaymentStore struct {
	payments      PaymentLedger
	subscriptions SubscriptionLedger
	purchases     PurchaseGranter
	credits       CreditWriter
	wallets       EarningsWallet
	users         UserLookup
	fees          *FeeService
}

func NewPaymentStore(
	payments PaymentLedger,
	subscriptions SubscriptionLedger,
	purchases PurchaseGranter,
	credits CreditWriter,
	wallets EarningsWallet,
	users UserLookup,
	fees *FeeService,
) *PaymentStore {
	return &PaymentStore{
		payments:      payments,
		subscriptions: subscriptions,
		purchases:     purchases,
		credits:       credits,
		wallets:       wallets,
		users:         users,
		fees:          fees,
	}
}

var _ payment.Store = (*PaymentStore)(nil)

func (s *PaymentStore) FindPayment(ctx context.Context, providerRef string) (*payment.Record, error) {
	p, err := s.payments.GetByProviderRef(providerRef)
	if err != nil {
		return nil, fmt.Errorf("find payment %q: %w", providerRef, err)
	}
	return &payment.Record{
		OrderRef:    p.OrderRef,
		ProviderRef: p.ProviderRef,
		PaymentID:   p.ProviderTxnID,
		UserID:      p.UserID,
		CreatorID:   p.CreatorID,
		Amount:      p.AmountMinor,
		Currency:    p.Currency,
		Provider:    p.Provider,
		Purpose:     p.Purpose,
		Status:      p.Status,
	}, nil
}

func (s *PaymentStore) CompletePayment(ctx context.Context, providerRef, providerTxnID string) (bool, error) {
	p, err := s.payments.GetByProviderRef(providerRef)
	if err != nil {
		return false, fmt.Errorf("complete payment %q: %w", providerRef, err)
	}
	first, err := s.payments.CompleteIfPending(p.ID, providerTxnID)
	if err != nil {
		return false, err
	}
	if !first {
		// already terminal; re-read so a FAILED payment never gets effects
		cur, err := s.payments.GetByProviderRef(providerRef)
		if err != nil {
			return false, fmt.Errorf("complete payment %q: %w", providerRef, err)
		}
		if cur.Status != domain.PaymentCompleted {
			return false, nil
		}
		p = cur
	}
	log := logrus.WithFields(logrus.Fields{
		"order_ref": p.OrderRef,
		"provider":  p.Provider,
		"purpose":   p.Purpose,
		"amount":    p.AmountMinor,
		"currency":  p.Currency,
	})
	if first {
		log.Info("payment completed")
	}
	// every effect is keyed on the payment, so running them again on a
	// replayed delivery is safe; an error here surfaces as a 5xx and the
	// provider's retry picks the effects back up
	if err := s.applyCompletionEffects(p); err != nil {
		log.WithError(err).Error("completion side effects failed")
		return first, err
	}
	return first, nil
}

func (s *PaymentStore) FailPayment(ctx context.Context, providerRef, reason string) (bool, error) {
	p, err := s.payments.GetByProviderRef(providerRef)
	if err != nil {
		return false, fmt.Errorf("fail payment %q: %w", providerRef, err)
	}
	first, err := s.payments.FailIfPending(p.ID, reason)
	if err != nil {
		return false, err
	}
	if first {
		logrus.WithFields(logrus.Fields{"order_ref": p.OrderRef, "provider": p.Provider}).
			WithField("reason", reason).Info("payment failed")
	}
	return first, nil
}

func (s *PaymentStore) ActivateSubscriptionByRef(ctx context.Context, subscriptionRef string) error {
	sub, err := s.subscriptions.GetByProviderRef(subscriptionRef)
	if err != nil {
		return fmt.Errorf("activate subscription %q: %w", subscriptionRef, err)
	}
	_, err = s.subscriptions.ActivateIfNotActive(sub.ID)
	return err
}

func (s *PaymentStore) MarkSubscriptionPastDue(ctx context.Context, subscriptionRef string) error {
	sub, err := s.subscriptions.GetByProviderRef(subscriptionRef)
	if err != nil {
		return fmt.Errorf("mark subscription past due %q: %w", subscriptionRef, err)
	}
	return s.subscriptions.MarkPastDue(sub.ID)
}

func (s *PaymentStore) CancelSubscriptionByRef(ctx context.Context, subscriptionRef string) error {
	sub, err := s.subscriptions.GetByProviderRef(subscriptionRef)
	if err != nil {
		return fmt.Errorf("cancel subscription %q: %w", subscriptionRef, err)
	}
	return s.subscriptions.Cancel(sub.ID)
}

// SetSubscriptionProviderRef re-points a subscription row from the checkout
// reference it was created under to the provider's own recurring-billing
// id, so later invoice events can find it.
func (s *PaymentStore) SetSubscriptionProviderRef(ctx context.Context, checkoutRef, subscriptionRef string) error {
	sub, err := s.subscriptions.GetByProviderRef(checkoutRef)
	if err != nil {
		return fmt.Errorf("link subscription %q: %w", checkoutRef, err)
	}
	return s.subscriptions.SetProviderRef(sub.ID, subscriptionRef)
}

func (s *PaymentStore) applyCompletionEffects(p *models.Payment) error {
	var meta PaymentMeta
	if p.Metadata != "" {
		if err := json.Unmarshal([]byte(p.Metadata), &meta); err != nil {
			return fmt.Errorf("payment %s metadata: %w", p.OrderRef, err)
		}
	}

	switch p.Purpose {
	case domain.PurposeSubscription:
		sub, err := s.subscriptions.GetByPaymentID(p.ID)
		if err != nil {
			return fmt.Errorf("subscription for payment %s: %w", p.OrderRef, err)
		}
		if _, err := s.subscriptions.ActivateIfNotActive(sub.ID); err != nil {
			return err
		}
	case domain.PurposeProduct:
		if meta.ProductID == 0 {
			return fmt.Errorf("payment %s has no product_id in metadata", p.OrderRef)
		}
		if err := s.purchases.GrantOnce(p.UserID, meta.ProductID, p.ID); err != nil {
			return err
		}
	case domain.PurposeDMBundle:
		allowed := meta.BundleMessages
		if allowed <= 0 {
			return fmt.Errorf("payment %s has no bundle_messages in metadata", p.OrderRef)
		}
		credit := &models.DMPayment{
			UserID:          p.UserID,
			CreatorID:       p.CreatorID,
			PaymentID:       &p.ID,
			Status:          domain.PaymentCompleted,
			MessagesAllowed: allowed,
		}
		if meta.BundleExpiryDays > 0 {
			exp := time.Now().AddDate(0, 0, meta.BundleExpiryDays)
			credit.ExpiresAt = &exp
		}
		if err := s.credits.MintOnce(credit); err != nil {
			return err
		}
	}

	return s.creditCreatorEarnings(p)
}

func (s *PaymentStore) creditCreatorEarnings(p *models.Payment) error {
	creator, err := s.users.GetByID(p.CreatorID)
	if err != nil {
		return fmt.Errorf("creator %d: %w", p.CreatorID, err)
	}
	tier := creator.CommissionTier
	if tier == "" {
		tier = domain.TierStandard
	}
	breakdown, err := s.fees.Earnings(p.AmountMinor, p.Provider, tier, p.Currency)
	if err != nil {
		return err
	}
	_, err = s.wallets.CreditOnce(p.CreatorID, breakdown.NetEarnings, p.Currency, domain.WalletTxnEarning, p.OrderRef)
	return err
}
