package service

import (
	"errors"
	"fmt"

	"creatorpay/config"
	"creatorpay/internal/domain"
)

var (
	ErrUnknownFeeProvider = errors.New("no fee schedule for provider")
	ErrUnknownTier        = errors.New("unknown commission tier")
	ErrNegativeAmount     = errors.New("amount must not be negative")
)

// FeeRate is a payment-processing fee: a percentage in basis points plus an
// optional fixed add-on in minor units.
type FeeRate struct {
	Bps        int64
	FixedMinor int64
}

// providerFees is what each network charges us for processing.
var providerFees = map[string]FeeRate{
	domain.ProviderStripe:       {Bps: 290, FixedMinor: 30},
	domain.ProviderRazorpay:     {Bps: 200},
	domain.ProviderEsewa:        {Bps: 200},
	domain.ProviderKhalti:       {Bps: 250},
	domain.ProviderBankTransfer: {},
}

// EarningsBreakdown splits a gross amount into processing fee, platform
// commission and the creator's net. Derived, never the source of truth:
// always recomputable from gross + provider + tier.
type EarningsBreakdown struct {
	GrossAmount                  int64   `json:"gross_amount"`
	PaymentFee                   int64   `json:"payment_fee"`
	PaymentFeePercentage         float64 `json:"payment_fee_percentage"`
	PlatformCommission           int64   `json:"platform_commission"`
	PlatformCommissionPercentage float64 `json:"platform_commission_percentage"`
	TotalFees                    int64   `json:"total_fees"`
	NetEarnings                  int64   `json:"net_earnings"`
	CreatorSharePercentage       float64 `json:"creator_share_percentage"`
	Currency                     string  `json:"currency"`
}

// FeeService computes money splits. All arithmetic is integer minor units;
// rounding is half-up. Commission rates come from configuration, tier
// selection from the caller.
type FeeService struct {
	commission config.CommissionConfig
}

func NewFeeService(commission config.CommissionConfig) *FeeService {
	return &FeeService{commission: commission}
}

// PaymentFee returns round(amount * providerPercentage) + fixed add-on,
// plus the percentage used (for display).
func (s *FeeService) PaymentFee(amount int64, provider string) (int64, float64, error) {
	if amount < 0 {
		return 0, 0, ErrNegativeAmount
	}
	rate, ok := providerFees[provider]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownFeeProvider, provider)
	}
	return roundHalfUpBps(amount, rate.Bps) + rate.FixedMinor, float64(rate.Bps) / 100, nil
}

// PlatformCommission returns round(amount * tierRate) for the named tier.
func (s *FeeService) PlatformCommission(amount int64, tier string) (int64, float64, error) {
	if amount < 0 {
		return 0, 0, ErrNegativeAmount
	}
	bps, err := s.tierBps(tier)
	if err != nil {
		return 0, 0, err
	}
	return roundHalfUpBps(amount, bps), float64(bps) / 100, nil
}

// Earnings composes fee and commission; net = gross - fee - commission, an
// exact integer identity.
func (s *FeeService) Earnings(gross int64, provider, tier, currency string) (*EarningsBreakdown, error) {
	fee, feePct, err := s.PaymentFee(gross, provider)
	if err != nil {
		return nil, err
	}
	commission, commissionPct, err := s.PlatformCommission(gross, tier)
	if err != nil {
		return nil, err
	}
	net := gross - fee - commission
	sharePct := 0.0
	if gross > 0 {
		sharePct = float64(net) / float64(gross) * 100
	}
	return &EarningsBreakdown{
		GrossAmount:                  gross,
		PaymentFee:                   fee,
		PaymentFeePercentage:         feePct,
		PlatformCommission:           commission,
		PlatformCommissionPercentage: commissionPct,
		TotalFees:                    fee + commission,
		NetEarnings:                  net,
		CreatorSharePercentage:       sharePct,
		Currency:                     currency,
	}, nil
}

func (s *FeeService) tierBps(tier string) (int64, error) {
	switch tier {
	case domain.TierStandard:
		return s.commission.StandardBps, nil
	case domain.TierPremium:
		return s.commission.PremiumBps, nil
	case domain.TierPromotional:
		return s.commission.PromotionalBps, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
}

// roundHalfUpBps multiplies a non-negative minor-unit amount by a rate in
// basis points, rounding half-up, without ever touching floating point.
func roundHalfUpBps(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
