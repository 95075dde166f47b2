package domain

const (
	ProviderStripe       = "stripe"
	ProviderRazorpay     = "razorpay"
	ProviderEsewa        = "esewa"
	ProviderKhalti       = "khalti"
	ProviderBankTransfer = "bank_transfer"
)

const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

const (
	SubscriptionPending   = "PENDING"
	SubscriptionActive    = "ACTIVE"
	SubscriptionPastDue   = "PAST_DUE"
	SubscriptionCancelled = "CANCELLED"
)

// Payment purposes. The purpose decides which side effect runs when a
// payment completes: activate the subscription, grant the download, or
// create the DM message allowance.
const (
	PurposeSubscription = "SUBSCRIPTION"
	PurposeProduct      = "PRODUCT"
	PurposeDMBundle     = "DM_BUNDLE"
)

const (
	TierStandard    = "STANDARD"
	TierPremium     = "PREMIUM"
	TierPromotional = "PROMOTIONAL"
)

const (
	RoleUser    = "USER"
	RoleCreator = "CREATOR"
	RoleAdmin   = "ADMIN"
)

const (
	CurrencyINR = "INR"
	CurrencyNPR = "NPR"
	CurrencyUSD = "USD"
)

const (
	PayoutPending   = "PENDING"
	PayoutCompleted = "COMPLETED"
	PayoutFailed    = "FAILED"
)

const (
	WalletTxnEarning = "EARNING"
	WalletTxnPayout  = "PAYOUT"
)

// ProvidersForCurrency returns the payment providers offered for a billing
// currency: Razorpay leads for INR, the Nepali wallets for NPR, Stripe for
// everything else. Bank transfer is always available as the fallback.
func ProvidersForCurrency(currency string) []string {
	switch currency {
	case CurrencyINR:
		return []string{ProviderRazorpay, ProviderStripe, ProviderBankTransfer}
	case CurrencyNPR:
		return []string{ProviderEsewa, ProviderKhalti, ProviderBankTransfer}
	default:
		return []string{ProviderStripe, ProviderBankTransfer}
	}
}

// ProviderAllowedForCurrency reports whether a provider may collect in the
// given currency.
func ProviderAllowedForCurrency(provider, currency string) bool {
	for _, p := range ProvidersForCurrency(currency) {
		if p == provider {
			return true
		}
	}
	return false
}
