package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKhaltiProvider(baseURL string, store Store) *KhaltiProvider {
	return NewKhaltiProvider(KhaltiConfig{
		SecretKey: "khalti_test_key",
		BaseURL:   baseURL,
	}, store)
}

func TestKhaltiCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epayment/initiate/", r.URL.Path)
		assert.Equal(t, "Key khalti_test_key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(50000), req["amount"])
		assert.Equal(t, "cp-dm1", req["purchase_order_id"])

		json.NewEncoder(w).Encode(map[string]string{
			"pidx":        "bZQLD9wRVWo4CdESSfuSsB",
			"payment_url": "https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB",
		})
	}))
	defer srv.Close()

	p := testKhaltiProvider(srv.URL, newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{
		Amount:    50000,
		Currency:  "NPR",
		OrderRef:  "cp-dm1",
		Purpose:   "DM_BUNDLE",
		ReturnURL: "https://example.com/return",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", res.OrderID)
	assert.Contains(t, res.RedirectURL, "pidx=")
}

func TestKhaltiCreateOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Amount should be greater than Rs. 10"}`))
	}))
	defer srv.Close()

	p := testKhaltiProvider(srv.URL, newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{Amount: 100, Currency: "NPR", OrderRef: "cp-tiny"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "status=400")
}

func TestKhaltiCreateOrderMissingKey(t *testing.T) {
	p := NewKhaltiProvider(KhaltiConfig{}, newFakeStore())
	_, err := p.CreateOrder(context.Background(), Config{Amount: 100, OrderRef: "cp-x"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func khaltiLookupServer(t *testing.T, status string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epayment/lookup/", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"pidx":           req["pidx"],
			"total_amount":   50000,
			"status":         status,
			"transaction_id": "txn_khalti_1",
		})
	}))
}

func TestKhaltiVerifyPaymentStatusMapping(t *testing.T) {
	tests := []struct {
		providerStatus string
		wantStatus     string
		wantSuccess    bool
	}{
		{"Completed", StatusCompleted, true},
		{"Pending", StatusPending, false},
		{"Initiated", StatusPending, false},
		{"Expired", StatusFailed, false},
		{"User canceled", StatusFailed, false},
		{"Refunded", StatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.providerStatus, func(t *testing.T) {
			srv := khaltiLookupServer(t, tt.providerStatus)
			defer srv.Close()

			p := testKhaltiProvider(srv.URL, newFakeStore())
			v, err := p.VerifyPayment(context.Background(), "pidx-1", "", "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, v.Success)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, "txn_khalti_1", v.PaymentID)
			assert.Equal(t, int64(50000), v.Amount)
		})
	}
}

func TestKhaltiProcessWebhookCompletes(t *testing.T) {
	srv := khaltiLookupServer(t, "Completed")
	defer srv.Close()

	store := newFakeStore(&Record{OrderRef: "cp-dm1", ProviderRef: "pidx-1", Status: StatusPending})
	p := testKhaltiProvider(srv.URL, store)
	body := []byte(`{"pidx":"pidx-1","status":"Completed"}`)

	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "khalti", RawBody: body}))
	assert.Equal(t, []string{"cp-dm1"}, store.completed)

	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "khalti", RawBody: body}))
	assert.Len(t, store.completed, 1)
}

// A forged callback claiming completion must not complete anything when the
// lookup says otherwise.
func TestKhaltiProcessWebhookIgnoresForgedStatus(t *testing.T) {
	srv := khaltiLookupServer(t, "Pending")
	defer srv.Close()

	store := newFakeStore(&Record{OrderRef: "cp-dm1", ProviderRef: "pidx-1", Status: StatusPending})
	p := testKhaltiProvider(srv.URL, store)

	err := p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider: "khalti",
		RawBody:  []byte(`{"pidx":"pidx-1","status":"Completed"}`),
	})
	require.NoError(t, err)
	assert.Empty(t, store.completed)
}

func TestKhaltiProcessWebhookExpired(t *testing.T) {
	srv := khaltiLookupServer(t, "Expired")
	defer srv.Close()

	store := newFakeStore(&Record{OrderRef: "cp-dm1", ProviderRef: "pidx-1", Status: StatusPending})
	p := testKhaltiProvider(srv.URL, store)

	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{
		Provider: "khalti",
		RawBody:  []byte(`{"pidx":"pidx-1"}`),
	}))
	assert.Equal(t, []string{"cp-dm1"}, store.failed)
}

func TestKhaltiProcessWebhookMissingPidx(t *testing.T) {
	p := testKhaltiProvider("http://unused", newFakeStore())
	err := p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "khalti", RawBody: []byte(`{}`)})
	assert.Error(t, err)
}
