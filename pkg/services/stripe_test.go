package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStripeAgainst(t *testing.T, handler http.Handler) *Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewStripe()
	s.client.baseURL = srv.URL
	return s
}

func TestStripeTestConnection(t *testing.T) {
	s := newStripeAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/account", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"id":"acct_1","email":"ops@acme.test","country":"US",
			"business_profile":{"name":"Acme Inc"}
		}`))
	}))

	info, err := s.TestConnection(context.Background(), "sk_test_123")
	require.NoError(t, err)
	assert.Equal(t, "acct_1", info.ID)
	assert.Equal(t, "Acme Inc", info.Name)
	assert.Equal(t, "US", info.Extras["country"])
}

func TestStripeCreateProductSendsForm(t *testing.T) {
	s := newStripeAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/products", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Widget", r.PostForm.Get("name"))

		_, _ = w.Write([]byte(`{"id":"prod_1","name":"Widget"}`))
	}))

	result, err := s.Execute(context.Background(), "create_product", map[string]any{"name": "Widget"}, "sk_test_123")
	require.NoError(t, err)
	assert.Contains(t, resultJSON(t, result), "prod_1")
}

func TestStripeCreatePriceValidation(t *testing.T) {
	s := NewStripe()

	_, err := s.Execute(context.Background(), "create_price", map[string]any{"product": "prod_1"}, "sk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit_amount")

	_, err = s.Execute(context.Background(), "create_price", map[string]any{"unit_amount": 500}, "sk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"product"`)
}

func TestStripeCreatePaymentLink(t *testing.T) {
	s := newStripeAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "price_1", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		_, _ = w.Write([]byte(`{"id":"plink_1","url":"https://buy.stripe.example/x"}`))
	}))

	result, err := s.Execute(context.Background(), "create_payment_link", map[string]any{"price": "price_1"}, "sk_test_123")
	require.NoError(t, err)
	assert.Contains(t, resultJSON(t, result), "buy.stripe.example")
}

func TestStripeListCustomersDefaultsLimit(t *testing.T) {
	s := newStripeAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"id":"cus_1","name":"Ada","email":"ada@example.test"}]}`))
	}))

	result, err := s.Execute(context.Background(), "list_customers", nil, "sk_test_123")
	require.NoError(t, err)
	assert.Contains(t, resultJSON(t, result), "cus_1")
}
