package btcpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/stores/store1/invoices", r.URL.Path)
		assert.Equal(t, "token key1", r.Header.Get("Authorization"))

		var in InvoiceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "5.99", in.Amount)
		assert.Equal(t, "USD", in.Currency)
		assert.Equal(t, "BTC", in.Checkout.DefaultPaymentMethod)
		assert.Equal(t, "small", in.Metadata["plan"])

		_ = json.NewEncoder(w).Encode(Invoice{ID: "inv1", Status: StatusNew, CheckoutLink: "https://pay/inv1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "key1", "store1", srv.Client())
	inv, err := c.CreateInvoice(context.Background(), InvoiceRequest{
		Amount:   "5.99",
		Currency: "USD",
		Checkout: Checkout{DefaultPaymentMethod: "BTC"},
		Metadata: map[string]any{"plan": "small"},
	})
	require.NoError(t, err)
	assert.Equal(t, "inv1", inv.ID)
	assert.Equal(t, "https://pay/inv1", inv.CheckoutLink)
}

func TestGetInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stores/store1/invoices/inv1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"inv1","status":"Settled"}`))
	}))
	defer srv.Close()

	inv, err := NewClient(srv.URL, "k", "store1", nil).GetInvoice(context.Background(), "inv1")
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, inv.Status)
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", "s", nil).GetInvoice(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "unauthorized key")
}
