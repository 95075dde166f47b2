package payment

import (
	"context"
	"errors"
)

// Payment and verification statuses shared by all providers. The machine is
// PENDING -> COMPLETED or PENDING -> FAILED; terminal states never change.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

var (
	// ErrUnknownProvider is returned by the dispatcher for identifiers it
	// does not know. There is no silent fallback.
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrMissingCredential means a provider was selected whose credentials
	// are not configured.
	ErrMissingCredential = errors.New("payment provider credential missing")
	// ErrInvalidSignature means a webhook or callback failed its
	// transport-level integrity check.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Config is the immutable input to order creation. Amount is always an
// integer count of minor units (paise/cents).
type Config struct {
	Provider  string
	Amount    int64
	Currency  string
	OrderRef  string // our order reference, unique per payment row
	UserID    uint
	CreatorID uint
	Purpose   string
	ReturnURL string
	Metadata  map[string]string
}

// Result is the outcome of order creation. Redirect-based providers fill
// RedirectURL; form-POST providers fill FormURL plus FormData; offline
// providers fill Instructions. Provider-side failures come back as
// Success=false with Error set, never as a panic.
type Result struct {
	Success      bool
	OrderID      string // provider order/session id (falls back to OrderRef)
	PaymentID    string
	Error        string
	RedirectURL  string
	FormURL      string
	FormData     map[string]string
	Instructions map[string]string
}

// Verification is the authoritative state of a claimed payment, produced
// only after the provider re-confirmed it (or a recomputed signature
// matched). A signature mismatch yields Success=false, Status=FAILED.
type Verification struct {
	Success   bool
	OrderID   string
	PaymentID string
	Amount    int64
	Status    string
}

// WebhookPayload is a raw provider notification. Event names are
// provider-specific strings; adapters parse RawBody themselves after
// checking Signature.
type WebhookPayload struct {
	Provider  string
	Event     string
	Signature string
	RawBody   []byte
}

// Record mirrors the stored payment row as far as adapters need to see it.
type Record struct {
	OrderRef    string
	ProviderRef string
	PaymentID   string
	UserID      uint
	CreatorID   uint
	Amount      int64
	Currency    string
	Provider    string
	Purpose     string
	Status      string
}

// Store is the narrow record-store interface adapters use to turn provider
// events into domain state. CompletePayment and FailPayment are guarded
// transitions: calling them again for the same order is a no-op reported by
// the boolean, so at-least-once webhook delivery is safe.
type Store interface {
	FindPayment(ctx context.Context, providerRef string) (*Record, error)
	CompletePayment(ctx context.Context, providerRef, providerTxnID string) (bool, error)
	FailPayment(ctx context.Context, providerRef, reason string) (bool, error)
	// SetSubscriptionProviderRef re-keys the subscription row created under
	// checkoutRef to the provider's recurring-billing id, so the
	// subscription lifecycle calls below can find it.
	SetSubscriptionProviderRef(ctx context.Context, checkoutRef, subscriptionRef string) error
	ActivateSubscriptionByRef(ctx context.Context, subscriptionRef string) error
	MarkSubscriptionPastDue(ctx context.Context, subscriptionRef string) error
	CancelSubscriptionByRef(ctx context.Context, subscriptionRef string) error
}

// Provider is the contract every payment network adapter implements.
type Provider interface {
	// CreateOrder constructs a provider-side order/session for the given
	// config.
	CreateOrder(ctx context.Context, cfg Config) (*Result, error)
	// VerifyPayment re-derives the authoritative payment state. For
	// signature-based providers the signature argument carries the
	// client-returned proof; callers must never be trusted on success.
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*Verification, error)
	// ProcessWebhook applies an asynchronous provider notification. Safe to
	// invoke more than once per logical event.
	ProcessWebhook(ctx context.Context, payload WebhookPayload) error
}
