package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// EsewaProvider drives the eSewa ePay v2 flow. Order creation signs
// {total_amount, transaction_uuid, product_code} with HMAC-SHA256 (base64
// output) and hands the browser hidden form fields to POST to eSewa.
// The return callback is a base64-encoded JSON blob that gets decoded,
// re-signed and compared before anything in it is believed.
type EsewaProvider struct {
	cfg   EsewaConfig
	store Store
}

type EsewaConfig struct {
	ProductCode string
	SecretKey   string
	BaseURL     string
}

func NewEsewaProvider(cfg EsewaConfig, store Store) *EsewaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://epay.esewa.com.np"
	}
	return &EsewaProvider{cfg: cfg, store: store}
}

func (p *EsewaProvider) CreateOrder(ctx context.Context, cfg Config) (*Result, error) {
	if p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: esewa secret key", ErrMissingCredential)
	}

	total := esewaAmount(cfg.Amount)
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		total, cfg.OrderRef, p.cfg.ProductCode)
	signature := esewaSign(message, p.cfg.SecretKey)

	form := map[string]string{
		"amount":                  total,
		"tax_amount":              "0",
		"total_amount":            total,
		"transaction_uuid":        cfg.OrderRef,
		"product_code":            p.cfg.ProductCode,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             cfg.ReturnURL,
		"failure_url":             cfg.ReturnURL,
		"signed_field_names":      "total_amount,transaction_uuid,product_code",
		"signature":               signature,
	}
	return &Result{
		Success:  true,
		OrderID:  cfg.OrderRef,
		FormURL:  p.cfg.BaseURL + "/api/epay/main/v2/form",
		FormData: form,
	}, nil
}

// VerifyPayment takes the base64 callback token in the signature argument,
// decodes it, recomputes the HMAC over the signed fields and requires
// status COMPLETE. Any signature difference is a failed payment.
func (p *EsewaProvider) VerifyPayment(ctx context.Context, orderID, _, signature string) (*Verification, error) {
	if p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: esewa secret key", ErrMissingCredential)
	}
	cb, err := decodeEsewaCallback(signature)
	if err != nil {
		logrus.WithFields(logrus.Fields{"provider": "esewa", "order_id": orderID}).
			Warnf("callback decode failed: %v", err)
		return &Verification{Success: false, OrderID: orderID, Status: StatusFailed}, nil
	}
	if orderID != "" && cb.TransactionUUID != orderID {
		logrus.WithFields(logrus.Fields{"provider": "esewa", "order_id": orderID, "callback_uuid": cb.TransactionUUID}).
			Warn("callback transaction uuid does not match order")
		return &Verification{Success: false, OrderID: orderID, Status: StatusFailed}, nil
	}
	if !p.callbackSignatureValid(cb) {
		logrus.WithFields(logrus.Fields{"provider": "esewa", "order_id": cb.TransactionUUID}).
			Warn("callback signature mismatch, possible tampering")
		return &Verification{Success: false, OrderID: cb.TransactionUUID, Status: StatusFailed}, nil
	}

	v := &Verification{
		OrderID:   cb.TransactionUUID,
		PaymentID: cb.TransactionCode,
		Amount:    esewaAmountToMinor(cb.TotalAmount),
	}
	switch cb.Status {
	case "COMPLETE":
		v.Success = true
		v.Status = StatusCompleted
	case "PENDING", "AMBIGUOUS":
		v.Status = StatusPending
	default:
		v.Status = StatusFailed
	}
	return v, nil
}

// ProcessWebhook handles the server-to-server delivery of the same base64
// token the browser carries on return.
func (p *EsewaProvider) ProcessWebhook(ctx context.Context, payload WebhookPayload) error {
	token := strings.TrimSpace(string(payload.RawBody))
	// the token may also arrive wrapped as {"data":"<base64>"}
	var wrapper struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(payload.RawBody, &wrapper); err == nil && wrapper.Data != "" {
		token = wrapper.Data
	}

	v, err := p.VerifyPayment(ctx, "", "", token)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"provider": "esewa", "order_id": v.OrderID, "status": v.Status})
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
		if v.OrderID == "" {
			return ErrInvalidSignature
		}
		_, err := p.store.FailPayment(ctx, v.OrderID, "esewa reported non-COMPLETE status")
		return err
	default:
		log.Info("payment still pending")
		return nil
	}
}

type esewaCallback struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

func decodeEsewaCallback(token string) (*esewaCallback, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		// some clients deliver URL-safe base64
		raw, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return nil, fmt.Errorf("esewa callback is not base64: %w", err)
		}
	}
	var cb esewaCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, fmt.Errorf("esewa callback is not json: %w", err)
	}
	return &cb, nil
}

// callbackSignatureValid rebuilds the signed message from the callback's
// own signed_field_names order and compares the recomputed HMAC.
func (p *EsewaProvider) callbackSignatureValid(cb *esewaCallback) bool {
	fields := map[string]string{
		"transaction_code":   cb.TransactionCode,
		"status":             cb.Status,
		"total_amount":       cb.TotalAmount,
		"transaction_uuid":   cb.TransactionUUID,
		"product_code":       cb.ProductCode,
		"signed_field_names": cb.SignedFieldNames,
	}
	names := strings.Split(cb.SignedFieldNames, ",")
	parts := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		parts = append(parts, name+"="+fields[name])
	}
	expected := esewaSign(strings.Join(parts, ","), p.cfg.SecretKey)
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}

func esewaSign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// esewaAmount renders minor units as the rupee string eSewa expects.
func esewaAmount(minor int64) string {
	if minor%100 == 0 {
		return strconv.FormatInt(minor/100, 10)
	}
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// esewaAmountToMinor parses amounts like "1,000.0" back into minor units.
func esewaAmountToMinor(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	rupees, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	minor := rupees * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		paisa, err := strconv.ParseInt(frac, 10, 64)
		if err == nil {
			minor += paisa
		}
	}
	return minor
}
