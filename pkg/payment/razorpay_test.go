package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRazorpayProvider(baseURL string, store Store) *RazorpayProvider {
	return NewRazorpayProvider(RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "rzp_test_secret",
		WebhookSecret: "whsec_test",
		BaseURL:       baseURL,
	}, store)
}

func razorpayWebhookSig(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(19900), req["amount"])
		assert.Equal(t, "INR", req["currency"])
		assert.Equal(t, "cp-abc", req["receipt"])

		json.NewEncoder(w).Encode(map[string]string{"id": "order_Nxyz"})
	}))
	defer srv.Close()

	p := testRazorpayProvider(srv.URL, newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{Amount: 19900, Currency: "INR", OrderRef: "cp-abc"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "order_Nxyz", res.OrderID)
}

func TestRazorpayCreateOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	}))
	defer srv.Close()

	p := testRazorpayProvider(srv.URL, newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{Amount: 1, Currency: "INR", OrderRef: "cp-tiny"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "status=400")
}

func TestRazorpayCreateOrderMissingCredentials(t *testing.T) {
	p := NewRazorpayProvider(RazorpayConfig{}, newFakeStore())
	_, err := p.CreateOrder(context.Background(), Config{Amount: 100, OrderRef: "cp-x"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestRazorpayVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "pay_123", "amount": 19900, "status": "captured",
		})
	}))
	defer srv.Close()

	p := testRazorpayProvider(srv.URL, newFakeStore())
	sig := razorpaySignature("order_Nxyz", "pay_123", "rzp_test_secret")

	v, err := p.VerifyPayment(context.Background(), "order_Nxyz", "pay_123", sig)
	require.NoError(t, err)
	assert.True(t, v.Success)
	assert.Equal(t, StatusCompleted, v.Status)
	assert.Equal(t, int64(19900), v.Amount)
}

func TestRazorpayVerifyPaymentBadSignature(t *testing.T) {
	// no server needed: the signature check short-circuits before any fetch
	p := testRazorpayProvider("http://127.0.0.1:0", newFakeStore())

	v, err := p.VerifyPayment(context.Background(), "order_Nxyz", "pay_123", "deadbeef")
	require.NoError(t, err)
	assert.False(t, v.Success)
	assert.Equal(t, StatusFailed, v.Status)
}

func TestRazorpayVerifyPaymentNotCaptured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "pay_123", "amount": 19900, "status": "authorized",
		})
	}))
	defer srv.Close()

	p := testRazorpayProvider(srv.URL, newFakeStore())
	sig := razorpaySignature("order_Nxyz", "pay_123", "rzp_test_secret")

	v, err := p.VerifyPayment(context.Background(), "order_Nxyz", "pay_123", sig)
	require.NoError(t, err)
	assert.False(t, v.Success)
	assert.Equal(t, StatusPending, v.Status)
}

func razorpayEventBody(t *testing.T, event, orderID, paymentID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{"id": paymentID, "order_id": orderID},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestRazorpayProcessWebhookCaptured(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-abc", ProviderRef: "order_Nxyz", Status: StatusPending})
	p := testRazorpayProvider("http://unused", store)
	body := razorpayEventBody(t, "payment.captured", "order_Nxyz", "pay_123")

	err := p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider:  "razorpay",
		Signature: razorpayWebhookSig(body, "whsec_test"),
		RawBody:   body,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-abc"}, store.completed)

	// at-least-once delivery: the retry changes nothing
	err = p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider:  "razorpay",
		Signature: razorpayWebhookSig(body, "whsec_test"),
		RawBody:   body,
	})
	require.NoError(t, err)
	assert.Len(t, store.completed, 1)
}

func TestRazorpayProcessWebhookFailed(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-abc", ProviderRef: "order_Nxyz", Status: StatusPending})
	p := testRazorpayProvider("http://unused", store)
	body := razorpayEventBody(t, "payment.failed", "order_Nxyz", "pay_123")

	err := p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider:  "razorpay",
		Signature: razorpayWebhookSig(body, "whsec_test"),
		RawBody:   body,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-abc"}, store.failed)
}

func TestRazorpayProcessWebhookBadSignature(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-abc", ProviderRef: "order_Nxyz", Status: StatusPending})
	p := testRazorpayProvider("http://unused", store)
	body := razorpayEventBody(t, "payment.captured", "order_Nxyz", "pay_123")

	err := p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider:  "razorpay",
		Signature: "deadbeef",
		RawBody:   body,
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, store.completed)
}

func TestRazorpayProcessWebhookUnhandledEvent(t *testing.T) {
	store := newFakeStore()
	p := testRazorpayProvider("http://unused", store)
	body := razorpayEventBody(t, "refund.created", "order_Nxyz", "pay_123")

	err := p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider:  "razorpay",
		Signature: razorpayWebhookSig(body, "whsec_test"),
		RawBody:   body,
	})
	assert.NoError(t, err)
}

func TestRazorpaySignature(t *testing.T) {
	sig := razorpaySignature("order_A", "pay_B", "secret")
	assert.Equal(t, sig, razorpaySignature("order_A", "pay_B", "secret"))
	assert.NotEqual(t, sig, razorpaySignature("order_A", "pay_C", "secret"))
	assert.NotEqual(t, sig, razorpaySignature("order_A", "pay_B", "other"))
	assert.Len(t, sig, 64) // sha256 hex
}
