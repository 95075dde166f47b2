package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBankProvider(store Store) *BankTransferProvider {
	return NewBankTransferProvider(BankTransferConfig{
		BankName:      "Nabil Bank",
		Branch:        "Kathmandu",
		AccountName:   "CreatorPay Pvt. Ltd.",
		AccountNumber: "1234567890",
	}, store)
}

func TestBankTransferCreateOrder(t *testing.T) {
	p := testBankProvider(newFakeStore())
	res, err := p.CreateOrder(context.Background(), Config{Amount: 100000, Currency: "NPR", OrderRef: "cp-bank1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "cp-bank1", res.OrderID)
	assert.Equal(t, "Nabil Bank", res.Instructions["bank_name"])
	assert.Equal(t, "1234567890", res.Instructions["account_number"])
	assert.Equal(t, "cp-bank1", res.Instructions["reference"])
}

func TestBankTransferVerifyPaymentReflectsStoredState(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-bank1", ProviderRef: "cp-bank1", Amount: 100000, Status: StatusPending})
	p := testBankProvider(store)

	v, err := p.VerifyPayment(context.Background(), "cp-bank1", "", "")
	require.NoError(t, err)
	assert.False(t, v.Success)
	assert.Equal(t, StatusPending, v.Status)

	require.NoError(t, p.VerifyBankTransfer(context.Background(), "cp-bank1", "BANKREF-77", "matched on statement"))

	v, err = p.VerifyPayment(context.Background(), "cp-bank1", "", "")
	require.NoError(t, err)
	assert.True(t, v.Success)
	assert.Equal(t, StatusCompleted, v.Status)
	assert.Equal(t, "BANKREF-77", v.PaymentID)
}

func TestVerifyBankTransfer(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-bank1", ProviderRef: "cp-bank1", Status: StatusPending})
	p := testBankProvider(store)

	require.NoError(t, p.VerifyBankTransfer(context.Background(), "cp-bank1", "BANKREF-77", ""))
	assert.Equal(t, []string{"cp-bank1"}, store.completed)

	// a second confirmation is a no-op, not an error
	require.NoError(t, p.VerifyBankTransfer(context.Background(), "cp-bank1", "BANKREF-77", ""))
	assert.Len(t, store.completed, 1)
}

func TestVerifyBankTransferRequiresTransactionID(t *testing.T) {
	p := testBankProvider(newFakeStore())
	assert.Error(t, p.VerifyBankTransfer(context.Background(), "cp-bank1", "", ""))
}

func TestVerifyBankTransferUnknownOrder(t *testing.T) {
	p := testBankProvider(newFakeStore())
	assert.Error(t, p.VerifyBankTransfer(context.Background(), "cp-missing", "BANKREF-1", ""))
}

func TestBankTransferWebhookIsNoop(t *testing.T) {
	store := newFakeStore(&Record{OrderRef: "cp-bank1", ProviderRef: "cp-bank1", Status: StatusPending})
	p := testBankProvider(store)

	require.NoError(t, p.ProcessWebhook(context.Background(), WebhookPayload{Provider: "bank_transfer", RawBody: []byte("{}")}))
	assert.Empty(t, store.completed)
	assert.Empty(t, store.failed)
}
