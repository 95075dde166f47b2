package service

import (
	"fmt"
	"time"

	"creatorpay/internal/models"

	"github.com/sirupsen/logrus"
)

// Send decision kinds. PAYMENT_REQUIRED is an outcome, not an error: the
// caller is expected to purchase a bundle and retry the exact same send.
const (
	DecisionFree            = "FREE"
	DecisionCredit          = "CREDIT"
	DecisionPaymentRequired = "PAYMENT_REQUIRED"
)

// CreditLedger is the slice of the record store the DM gate needs.
type CreditLedger interface {
	FindUsable(userID, creatorID uint, now time.Time) ([]models.DMPayment, error)
	ConsumeCredit(id uint) (bool, error)
	RemainingCredits(userID, creatorID uint, now time.Time) (int, error)
}

type CreatorLookup interface {
	GetCreatorByID(id uint) (*models.User, error)
}

// SendDecision says whether a DM may be sent and on whose dime. For
// PAYMENT_REQUIRED it carries everything the client needs to start a
// bundle purchase.
type SendDecision struct {
	Kind           string `json:"kind"`
	CreditID       uint   `json:"credit_id,omitempty"`
	Remaining      int    `json:"remaining_messages,omitempty"`
	Price          int64  `json:"price,omitempty"`           // per message, minor units
	Currency       string `json:"currency,omitempty"`
	BundleMessages int    `json:"bundle_messages,omitempty"`
	BundlePrice    int64  `json:"bundle_price,omitempty"`
	CheckoutPath   string `json:"checkout_path,omitempty"`
}

// DMCreditService gates paid messages on pre-purchased allowances.
type DMCreditService struct {
	credits  CreditLedger
	creators CreatorLookup
}

func NewDMCreditService(credits CreditLedger, creators CreatorLookup) *DMCreditService {
	return &DMCreditService{credits: credits, creators: creators}
}

// AuthorizeSend decides whether sender may message creator right now. When
// a usable credit exists the oldest one is consumed before this returns,
// via a conditional increment, so a racing send cannot ride the same
// credit past its allowance: whichever request loses the update simply
// moves on to the next record or gets PAYMENT_REQUIRED.
func (s *DMCreditService) AuthorizeSend(senderID, creatorID uint) (*SendDecision, error) {
	creator, err := s.creators.GetCreatorByID(creatorID)
	if err != nil {
		return nil, fmt.Errorf("load creator %d: %w", creatorID, err)
	}
	if creator.DMPriceMinor <= 0 {
		return &SendDecision{Kind: DecisionFree}, nil
	}

	now := time.Now()
	usable, err := s.credits.FindUsable(senderID, creatorID, now)
	if err != nil {
		return nil, fmt.Errorf("find credits: %w", err)
	}
	for _, rec := range usable {
		ok, err := s.credits.ConsumeCredit(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("consume credit %d: %w", rec.ID, err)
		}
		if !ok {
			// drained by a concurrent send between read and write
			continue
		}
		remaining, err := s.credits.RemainingCredits(senderID, creatorID, now)
		if err != nil {
			logrus.WithError(err).Warn("remaining credit count failed")
		}
		return &SendDecision{Kind: DecisionCredit, CreditID: rec.ID, Remaining: remaining}, nil
	}

	bundle := creator.DMBundleMessages
	if bundle <= 0 {
		bundle = 1
	}
	return &SendDecision{
		Kind:           DecisionPaymentRequired,
		Price:          creator.DMPriceMinor,
		Currency:       creator.Currency,
		BundleMessages: bundle,
		BundlePrice:    creator.DMPriceMinor * int64(bundle),
		CheckoutPath:   "/api/v1/payments/checkout",
	}, nil
}

// Remaining reports the sender's unused allowance toward a creator.
func (s *DMCreditService) Remaining(senderID, creatorID uint) (int, error) {
	return s.credits.RemainingCredits(senderID, creatorID, time.Now())
}
