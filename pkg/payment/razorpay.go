package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// RazorpayProvider drives the Razorpay order flow: order creation returns
// an opaque order id, the client SDK collects the payment and hands back an
// (order_id, payment_id, signature) triple, and verification recomputes
// HMAC_SHA256(order_id + "|" + payment_id) with the key secret before
// re-fetching the payment to confirm capture.
type RazorpayProvider struct {
	cfg    RazorpayConfig
	store  Store
	client *http.Client
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	HTTPTimeout   time.Duration
}

func NewRazorpayProvider(cfg RazorpayConfig, store Store) *RazorpayProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayProvider{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *RazorpayProvider) CreateOrder(ctx context.Context, cfg Config) (*Result, error) {
	if p.cfg.KeyID == "" || p.cfg.KeySecret == "" {
		return nil, fmt.Errorf("%w: razorpay key pair", ErrMissingCredential)
	}

	payload := map[string]interface{}{
		"amount":   cfg.Amount,
		"currency": cfg.Currency,
		"receipt":  cfg.OrderRef,
		"notes":    cfg.Metadata,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(p.cfg.KeyID, p.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		logrus.WithField("order_ref", cfg.OrderRef).Warnf("razorpay order create failed: %v", err)
		return &Result{Success: false, Error: "razorpay: " + err.Error()}, nil
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return &Result{Success: false, Error: fmt.Sprintf("razorpay order create: status=%d body=%s", resp.StatusCode, string(respBody))}, nil
	}

	var order struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &order); err != nil || order.ID == "" {
		return &Result{Success: false, Error: "razorpay: order response missing id"}, nil
	}
	return &Result{Success: true, OrderID: order.ID}, nil
}

// VerifyPayment recomputes the checkout signature over
// "<orderID>|<paymentID>" and compares it byte for byte, then fetches the
// payment to confirm it is captured. A mismatch is a failed payment, not an
// error.
func (p *RazorpayProvider) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*Verification, error) {
	if p.cfg.KeySecret == "" {
		return nil, fmt.Errorf("%w: razorpay key secret", ErrMissingCredential)
	}

	expected := razorpaySignature(orderID, paymentID, p.cfg.KeySecret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		logrus.WithFields(logrus.Fields{"provider": "razorpay", "order_id": orderID, "payment_id": paymentID}).
			Warn("checkout signature mismatch, possible tampering")
		return &Verification{Success: false, OrderID: orderID, PaymentID: paymentID, Status: StatusFailed}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/v1/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(p.cfg.KeyID, p.cfg.KeySecret)
	resp, err := p.client.Do(req)
	if err != nil {
		return &Verification{Success: false, OrderID: orderID, PaymentID: paymentID, Status: StatusPending}, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return &Verification{Success: false, OrderID: orderID, PaymentID: paymentID, Status: StatusFailed}, nil
	}

	var pay struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &pay); err != nil {
		return nil, err
	}

	v := &Verification{OrderID: orderID, PaymentID: paymentID, Amount: pay.Amount}
	switch pay.Status {
	case "captured":
		v.Success = true
		v.Status = StatusCompleted
	case "created", "authorized":
		v.Status = StatusPending
	default:
		v.Status = StatusFailed
	}
	return v, nil
}

// ProcessWebhook checks X-Razorpay-Signature (HMAC-SHA256 hex over the raw
// body with the webhook secret) and applies payment.captured /
// payment.failed transitions keyed by the order id.
func (p *RazorpayProvider) ProcessWebhook(ctx context.Context, payload WebhookPayload) error {
	if p.cfg.WebhookSecret == "" {
		return fmt.Errorf("%w: razorpay webhook secret", ErrMissingCredential)
	}
	mac := hmac.New(sha256.New, []byte(p.cfg.WebhookSecret))
	mac.Write(payload.RawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		logrus.WithField("provider", "razorpay").Warn("webhook signature mismatch")
		return ErrInvalidSignature
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(payload.RawBody, &event); err != nil {
		return fmt.Errorf("razorpay webhook: %w", err)
	}

	entity := event.Payload.Payment.Entity
	log := logrus.WithFields(logrus.Fields{"provider": "razorpay", "event": event.Event, "order_id": entity.OrderID})
	switch event.Event {
	case "payment.captured":
		first, err := p.store.CompletePayment(ctx, entity.OrderID, entity.ID)
		if err != nil {
			return err
		}
		if !first {
			log.Info("payment already completed, ignoring replay")
		}
		return nil
	case "payment.failed":
		_, err := p.store.FailPayment(ctx, entity.OrderID, "provider reported payment.failed")
		return err
	default:
		log.Info("unhandled event type")
		return nil
	}
}

func razorpaySignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
