package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StripeProvider drives Stripe hosted checkout: order creation opens a
// checkout session, verification re-fetches the session by id, and the
// webhook handles checkout completion plus the recurring-billing events.
type StripeProvider struct {
	cfg    StripeConfig
	store  Store
	client *http.Client
}

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	BaseURL                   string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

func NewStripeProvider(cfg StripeConfig, store Store) *StripeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if cfg.SignatureToleranceSeconds <= 0 {
		cfg.SignatureToleranceSeconds = 300
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StripeProvider{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *StripeProvider) CreateOrder(ctx context.Context, cfg Config) (*Result, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, fmt.Errorf("%w: stripe secret key", ErrMissingCredential)
	}

	values := url.Values{}
	if cfg.Purpose == "SUBSCRIPTION" {
		// recurring billing: Stripe manages renewals and emits invoice
		// events against the subscription id
		values.Set("mode", "subscription")
		values.Set("line_items[0][price_data][recurring][interval]", "month")
	} else {
		values.Set("mode", "payment")
	}
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(cfg.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(cfg.Amount, 10))
	values.Set("line_items[0][price_data][product_data][name]", productName(cfg))
	values.Set("client_reference_id", cfg.OrderRef)
	values.Set("success_url", cfg.ReturnURL+"?order_ref="+url.QueryEscape(cfg.OrderRef)+"&state=success")
	values.Set("cancel_url", cfg.ReturnURL+"?order_ref="+url.QueryEscape(cfg.OrderRef)+"&state=cancel")
	for k, v := range cfg.Metadata {
		values.Set("metadata["+k+"]", v)
	}
	values.Set("metadata[order_ref]", cfg.OrderRef)

	body, err := p.postForm(ctx, "/v1/checkout/sessions", values)
	if err != nil {
		logrus.WithFields(logrus.Fields{"provider": "stripe", "order_ref": cfg.OrderRef}).
			Warnf("checkout session create failed: %v", err)
		return &Result{Success: false, Error: err.Error()}, nil
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return &Result{Success: false, Error: "stripe: malformed session response"}, nil
	}
	if session.ID == "" || session.URL == "" {
		return &Result{Success: false, Error: "stripe: session response missing id or url"}, nil
	}
	return &Result{
		Success:     true,
		OrderID:     session.ID,
		RedirectURL: session.URL,
	}, nil
}

// VerifyPayment re-fetches the checkout session and checks its payment
// status field; the caller's claim is never trusted.
func (p *StripeProvider) VerifyPayment(ctx context.Context, orderID, paymentID, _ string) (*Verification, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, fmt.Errorf("%w: stripe secret key", ErrMissingCredential)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/v1/checkout/sessions/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return &Verification{Success: false, OrderID: orderID, Status: StatusPending}, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		logrus.WithField("order_id", orderID).Warnf("stripe session fetch failed: status=%d", resp.StatusCode)
		return &Verification{Success: false, OrderID: orderID, Status: StatusFailed}, nil
	}

	var session struct {
		ID            string `json:"id"`
		PaymentStatus string `json:"payment_status"`
		PaymentIntent string `json:"payment_intent"`
		AmountTotal   int64  `json:"amount_total"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, err
	}

	v := &Verification{OrderID: orderID, PaymentID: session.PaymentIntent, Amount: session.AmountTotal}
	switch {
	case session.PaymentStatus == "paid":
		v.Success = true
		v.Status = StatusCompleted
	case session.Status == "expired":
		v.Status = StatusFailed
	default:
		v.Status = StatusPending
	}
	return v, nil
}

// ProcessWebhook verifies the Stripe-Signature header over the raw body,
// then maps the event to a domain transition. Unknown event types are
// logged and ignored. Replays are absorbed by the guarded store
// transitions.
func (p *StripeProvider) ProcessWebhook(ctx context.Context, payload WebhookPayload) error {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return fmt.Errorf("%w: stripe webhook secret", ErrMissingCredential)
	}
	if !verifyStripeSignature(payload.RawBody, payload.Signature, p.cfg.WebhookSecret, p.cfg.SignatureToleranceSeconds) {
		logrus.WithField("provider", "stripe").Warn("webhook signature mismatch")
		return ErrInvalidSignature
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID                string `json:"id"`
				ClientReferenceID string `json:"client_reference_id"`
				PaymentIntent     string `json:"payment_intent"`
				Subscription      string `json:"subscription"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload.RawBody, &event); err != nil {
		return fmt.Errorf("stripe webhook: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{"provider": "stripe", "event": event.Type, "event_id": event.ID})
	switch event.Type {
	case "checkout.session.completed":
		first, err := p.store.CompletePayment(ctx, event.Data.Object.ID, event.Data.Object.PaymentIntent)
		if err != nil {
			return err
		}
		if !first {
			log.Info("payment already completed, ignoring replay")
		}
		// subscription-mode sessions carry the recurring-billing id; re-key
		// the row so invoice events can reach it
		if sub := event.Data.Object.Subscription; sub != "" {
			return p.store.SetSubscriptionProviderRef(ctx, event.Data.Object.ID, sub)
		}
		return nil
	case "invoice.payment_succeeded":
		if event.Data.Object.Subscription == "" {
			return nil
		}
		return p.store.ActivateSubscriptionByRef(ctx, event.Data.Object.Subscription)
	case "invoice.payment_failed":
		if event.Data.Object.Subscription == "" {
			return nil
		}
		return p.store.MarkSubscriptionPastDue(ctx, event.Data.Object.Subscription)
	case "customer.subscription.deleted":
		return p.store.CancelSubscriptionByRef(ctx, event.Data.Object.ID)
	default:
		log.Info("unhandled event type")
		return nil
	}
}

func (p *StripeProvider) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stripe %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

func productName(cfg Config) string {
	switch cfg.Purpose {
	case "SUBSCRIPTION":
		return "Creator subscription"
	case "DM_BUNDLE":
		return "Paid message bundle"
	default:
		return "Creator product"
	}
}

// verifyStripeSignature checks the "t=<ts>,v1=<hex hmac>" header format:
// the signed message is "<ts>.<body>" and the timestamp must be within
// tolerance.
func verifyStripeSignature(body []byte, header, secret string, toleranceSeconds int64) bool {
	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return false
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return false
	}
	now := time.Now().Unix()
	if ts < now-toleranceSeconds || ts > now+toleranceSeconds {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return true
		}
	}
	return false
}
