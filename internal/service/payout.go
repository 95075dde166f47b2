package service

import (
	"errors"
	"fmt"

	"creatorpay/config"
	"creatorpay/internal/domain"
)

var (
	ErrUnsupportedCurrency = errors.New("unsupported payout currency")
	ErrBelowMinimumPayout  = errors.New("amount below minimum payout threshold")
	ErrAboveMaximumPayout  = errors.New("amount above maximum single payout")
	ErrNonPositivePayout   = errors.New("payout amount must be positive")
)

// PayoutBounds are the per-currency minimum balance and maximum single
// payout, in minor units.
type PayoutBounds struct {
	Min int64
	Max int64
}

// PayoutEligibility is derived from a balance snapshot; it has no lifecycle
// of its own.
type PayoutEligibility struct {
	Eligible       bool     `json:"eligible"`
	CurrentBalance int64    `json:"current_balance"`
	Threshold      int64    `json:"threshold"`
	MaxLimit       int64    `json:"max_limit"`
	Deficit        int64    `json:"deficit"`
	Message        string   `json:"message"`
	Warnings       []string `json:"warnings,omitempty"`
}

type PayoutService struct {
	bounds map[string]PayoutBounds
}

func NewPayoutService(cfg config.PayoutConfig) *PayoutService {
	return &PayoutService{
		bounds: map[string]PayoutBounds{
			domain.CurrencyINR: {Min: cfg.MinINR, Max: cfg.MaxINR},
			domain.CurrencyNPR: {Min: cfg.MinNPR, Max: cfg.MaxNPR},
			domain.CurrencyUSD: {Min: cfg.MinUSD, Max: cfg.MaxUSD},
		},
	}
}

// CheckPayoutEligibility validates a creator's accrued balance against the
// currency's thresholds. A balance over the maximum is flagged as a
// warning, not a blocker: it means the payout needs manual large-transfer
// handling, not that the money is stuck.
func (s *PayoutService) CheckPayoutEligibility(balance int64, currency string) (*PayoutEligibility, error) {
	b, ok := s.bounds[currency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}
	e := &PayoutEligibility{
		CurrentBalance: balance,
		Threshold:      b.Min,
		MaxLimit:       b.Max,
	}
	if balance < b.Min {
		e.Deficit = b.Min - balance
		e.Message = fmt.Sprintf("balance is %d below the minimum payout of %d", e.Deficit, b.Min)
		return e, nil
	}
	e.Eligible = true
	e.Message = "eligible for payout"
	if balance > b.Max {
		e.Warnings = append(e.Warnings,
			fmt.Sprintf("balance exceeds the single-payout limit of %d; split the payout or handle manually", b.Max))
	}
	return e, nil
}

// ValidatePayoutAmount enforces both bounds as hard errors for a concrete
// requested amount.
func (s *PayoutService) ValidatePayoutAmount(amount int64, currency string) error {
	b, ok := s.bounds[currency]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}
	if amount <= 0 {
		return ErrNonPositivePayout
	}
	if amount < b.Min {
		return fmt.Errorf("%w: %d < %d", ErrBelowMinimumPayout, amount, b.Min)
	}
	if amount > b.Max {
		return fmt.Errorf("%w: %d > %d", ErrAboveMaximumPayout, amount, b.Max)
	}
	return nil
}
