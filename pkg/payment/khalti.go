package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// KhaltiProvider drives Khalti ePayment: initiate returns a pidx plus a
// hosted payment URL, and verification is a lookup by pidx. The lookup is
// the only source of truth; callback parameters are never trusted on their
// own.
type KhaltiProvider struct {
	cfg    KhaltiConfig
	store  Store
	client *http.Client
}

type KhaltiConfig struct {
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

func NewKhaltiProvider(cfg KhaltiConfig, store Store) *KhaltiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://a.khalti.com/api/v2"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &KhaltiProvider{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *KhaltiProvider) CreateOrder(ctx context.Context, cfg Config) (*Result, error) {
	if p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: khalti secret key", ErrMissingCredential)
	}

	payload := map[string]interface{}{
		"return_url":          cfg.ReturnURL,
		"website_url":         cfg.ReturnURL,
		"amount":              cfg.Amount,
		"purchase_order_id":   cfg.OrderRef,
		"purchase_order_name": productName(cfg),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/epayment/initiate/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		logrus.WithField("order_ref", cfg.OrderRef).Warnf("khalti initiate failed: %v", err)
		return &Result{Success: false, Error: "khalti: " + err.Error()}, nil
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return &Result{Success: false, Error: fmt.Sprintf("khalti initiate: status=%d body=%s", resp.StatusCode, string(respBody))}, nil
	}

	var out struct {
		Pidx       string `json:"pidx"`
		PaymentURL string `json:"payment_url"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil || out.Pidx == "" {
		return &Result{Success: false, Error: "khalti: initiate response missing pidx"}, nil
	}
	return &Result{
		Success:     true,
		OrderID:     out.Pidx,
		RedirectURL: out.PaymentURL,
	}, nil
}

// VerifyPayment looks the payment up by pidx and maps the returned status
// string onto the three-state model.
func (p *KhaltiProvider) VerifyPayment(ctx context.Context, orderID, _, _ string) (*Verification, error) {
	if p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: khalti secret key", ErrMissingCredential)
	}

	body, _ := json.Marshal(map[string]string{"pidx": orderID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/epayment/lookup/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &Verification{Success: false, OrderID: orderID, Status: StatusPending}, nil
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		logrus.WithField("pidx", orderID).Warnf("khalti lookup failed: status=%d", resp.StatusCode)
		return &Verification{Success: false, OrderID: orderID, Status: StatusFailed}, nil
	}

	var out struct {
		Pidx          string `json:"pidx"`
		TotalAmount   int64  `json:"total_amount"`
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}

	v := &Verification{OrderID: orderID, PaymentID: out.TransactionID, Amount: out.TotalAmount}
	switch out.Status {
	case "Completed":
		v.Success = true
		v.Status = StatusCompleted
	case "Pending", "Initiated":
		v.Status = StatusPending
	default: // Expired, User canceled, Refunded, ...
		v.Status = StatusFailed
	}
	return v, nil
}

// ProcessWebhook re-verifies the pidx named in the callback against the
// lookup endpoint, then applies the guarded transition.
func (p *KhaltiProvider) ProcessWebhook(ctx context.Context, payload WebhookPayload) error {
	var cb struct {
		Pidx string `json:"pidx"`
	}
	if err := json.Unmarshal(payload.RawBody, &cb); err != nil || cb.Pidx == "" {
		return fmt.Errorf("khalti webhook: missing pidx")
	}

	v, err := p.VerifyPayment(ctx, cb.Pidx, "", "")
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"provider": "khalti", "pidx": cb.Pidx, "status": v.Status})
	switch v.Status {
	case StatusCompleted:
		first, err := p.store.CompletePayment(ctx, v.OrderID, v.PaymentID)
		if err != nil {
			return err
		}
		if !first {
			log.Info("payment already completed, ignoring replay")
		}
		return nil
	case StatusFailed:
		_, err := p.store.FailPayment(ctx, v.OrderID, "khalti lookup reported terminal non-completed status")
		return err
	default:
		log.Info("payment still pending")
		return nil
	}
}
