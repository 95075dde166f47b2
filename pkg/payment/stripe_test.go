package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStripeProvider(baseURL string, store Store) *StripeProvider {
	return NewStripeProvider(StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_stripe",
		BaseURL:       baseURL,
	}, store)
}

func stripeSigHeader(body []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "19900", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "cp-abc", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "cp-abc", r.PostForm.Get("metadata[order_ref]"))

		json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_1",
			"url": "https://checkout.stripe.com/c/pay/cs_test_1",
		})
	}))
	defer srv.Close()

	p := testStripeProvider(srv.URL, newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{
		Amount:    19900,
		Currency:  "USD",
		OrderRef:  "cp-abc",
		Purpose:   "SUBSCRIPTION",
		ReturnURL: "https://example.com/return",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "cs_test_1", res.OrderID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", res.RedirectURL)
}

// Subscription checkouts must open a subscription-mode session: Stripe only
// issues a recurring-billing id (and the invoice events that reference it)
// for those.
func TestStripeCreateOrderSubscriptionMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "month", r.PostForm.Get("line_items[0][price_data][recurring][interval]"))
		json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_sub",
			"url": "https://checkout.stripe.com/c/pay/cs_test_sub",
		})
	}))
	defer srv.Close()

	p := testStripeProvider(srv.URL, newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{
		Amount:    19900,
		Currency:  "USD",
		OrderRef:  "cp-sub",
		Purpose:   "SUBSCRIPTION",
		ReturnURL: "https://example.com/return",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestStripeCreateOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"account inactive"}}`))
	}))
	defer srv.Close()

	p := testStripeProvider(srv.URL, newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{Amount: 100, Currency: "USD", OrderRef: "cp-x"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "status=402")
}

func TestStripeCreateOrderMissingKey(t *testing.T) {
	p := NewStripeProvider(StripeConfig{}, newFakeStore())
	_, err := p.CreateOrder(context.Background(), Config{Amount: 100, OrderRef: "cp-x"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestStripeVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_1",
			"payment_status": "paid",
			"payment_intent": "pi_123",
			"amount_total":   19900,
			"status":         "complete",
		})
	}))
	defer srv.Close()

	p := testStripeProvider(srv.URL, newFakeStore())
	v, err := p.VerifyPayment(context.Background(), "cs_test_1", "", "")
	require.NoError(t, err)
	assert.True(t, v.Success)
	assert.Equal(t, StatusCompleted, v.Status)
	assert.Equal(t, "pi_123", v.PaymentID)
	assert.Equal(t, int64(19900), v.Amount)
}

func TestStripeVerifyPaymentUnpaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_1",
			"payment_status": "unpaid",
			"status":         "open",
		})
	}))
	defer srv.Close()

	p := testStripeProvider(srv.URL, newFakeStore())
	v, err := p.VerifyPayment(context.Background(), "cs_test_1", "", "")
	require.NoError(t, err)
	assert.False(t, v.Success)
	assert.Equal(t, StatusPending, v.Status)
}

func TestStripeVerifyPaymentExpiredSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_1",
			"payment_status": "unpaid",
			"status":         "expired",
		})
	}))
	defer srv.Close()

	p := testStripeProvider(srv.URL, newFakeStore())
	v, err := p.VerifyPayment(context.Background(), "cs_test_1", "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, v.Status)
}

func stripeEventBody(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return body
}

func TestStripeProcessWebhookCheckoutCompleted(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-abc", ProviderRef: "cs_test_1", Status: StatusPending})
	p := testStripeProvider("http://unused", store)
	body := stripeEventBody(t, "checkout.session.completed", map[string]interface{}{
		"id":                  "cs_test_1",
		"client_reference_id": "cp-abc",
		"payment_intent":      "pi_123",
	})
	sig := stripeSigHeader(body, "whsec_stripe", time.Now().Unix())

	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "stripe", Signature: sig, RawBody: body}))
	assert.Equal(t, []string{"cp-abc"}, store.completed)

	// duplicate delivery of the same event
	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "stripe", Signature: sig, RawBody: body}))
	assert.Len(t, store.completed, 1)
}

// checkout.session.completed for a subscription session must re-key the
// subscription row to the sub_... id so the invoice events that follow can
// find it.
func TestStripeProcessWebhookLinksSubscriptionRef(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-sub", ProviderRef: "cs_test_sub", Status: StatusPending})
	p := testStripeProvider("http://unused", store)
	body := stripeEventBody(t, "checkout.session.completed", map[string]interface{}{
		"id":                  "cs_test_sub",
		"client_reference_id": "cp-sub",
		"subscription":        "sub_9xy",
	})
	sig := stripeSigHeader(body, "whsec_stripe", time.Now().Unix())

	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "stripe", Signature: sig, RawBody: body}))
	assert.Equal(t, []string{"cp-sub"}, store.completed)
	assert.Equal(t, "sub_9xy", store.subLinked["cs_test_sub"])
}

func TestStripeProcessWebhookSubscriptionEvents(t *testing.T) {
	store := newFakeStore()
	p := testStripeProvider("http://unused", store)

	body := stripeEventBody(t, "invoice.payment_succeeded", map[string]interface{}{"id": "in_1", "subscription": "sub_1"})
	sig := stripeSigHeader(body, "whsec_stripe", time.Now().Unix())
	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "stripe", Signature: sig, RawBody: body}))
	assert.Equal(t, []string{"sub_1"}, store.subActivated)

	body = stripeEventBody(t, "invoice.payment_failed", map[string]interface{}{"id": "in_2", "subscription": "sub_1"})
	sig = stripeSigHeader(body, "whsec_stripe", time.Now().Unix())
	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "stripe", Signature: sig, RawBody: body}))
	assert.Equal(t, []string{"sub_1"}, store.subPastDue)

	body = stripeEventBody(t, "customer.subscription.deleted", map[string]interface{}{"id": "sub_1"})
	sig = stripeSigHeader(body, "whsec_stripe", time.Now().Unix())
	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "stripe", Signature: sig, RawBody: body}))
	assert.Equal(t, []string{"sub_1"}, store.subCancelled)
}

func TestStripeProcessWebhookBadSignature(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-abc", ProviderRef: "cs_test_1", Status: StatusPending})
	p := testStripeProvider("http://unused", store)
	body := stripeEventBody(t, "checkout.session.completed", map[string]interface{}{"id": "cs_test_1"})

	err := p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider:  "stripe",
		Signature: stripeSigHeader(body, "wrong-secret", time.Now().Unix()),
		RawBody:   body,
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, store.completed)
}

func TestStripeProcessWebhookStaleTimestamp(t *testing.T) {
	p := testStripeProvider("http://unused", newFakeStore())
	body := stripeEventBody(t, "checkout.session.completed", map[string]interface{}{"id": "cs_test_1"})
	stale := time.Now().Add(-time.Hour).Unix()

	err := p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider:  "stripe",
		Signature: stripeSigHeader(body, "whsec_stripe", stale),
		RawBody:   body,
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyStripeSignature(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	now := time.Now().Unix()

	assert.True(t, verifyStripeSignature(body, stripeSigHeader(body, "secret", now), "secret", 300))
	assert.False(t, verifyStripeSignature(body, stripeSigHeader(body, "other", now), "secret", 300))
	assert.False(t, verifyStripeSignature(body, "malformed header", "secret", 300))
	assert.False(t, verifyStripeSignature(body, "t=abc,v1=00", "secret", 300))
	assert.False(t, verifyStripeSignature([]byte("tampered"), stripeSigHeader(body, "secret", now), "secret", 300))
}
