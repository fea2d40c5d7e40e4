package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCODOrder(t *testing.T) {
	var got domain.OrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders/cod", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"order":{"_id":"ord-7","status":"placed"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", Options{HTTPClient: srv.Client()})
	req := domain.NewOrderRequest(
		[]domain.LineItem{{ID: "p1", Name: "Brake Pad", Price: 450, Quantity: 2}},
		domain.ShippingAddress{FullName: "Asha"},
		domain.PaymentCOD,
	)

	order, err := c.CreateCODOrder(WithToken(context.Background(), "tok-1"), req, "key-1")

	require.NoError(t, err)
	assert.Equal(t, "ord-7", order.ID)
	assert.JSONEq(t, `{"_id":"ord-7","status":"placed"}`, string(order.Snapshot))
	assert.Equal(t, 999.0, got.TotalPrice)
	assert.Equal(t, "p1", got.Items[0].Product)
}

func TestCreateCODOrder_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"order":{"_id":"ord-1"}}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, Options{HTTPClient: srv.Client()}).CreateCODOrder(context.Background(), domain.OrderRequest{}, "")
	require.NoError(t, err)
}

func TestCreateCODOrder_MissingOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, Options{HTTPClient: srv.Client()}).CreateCODOrder(context.Background(), domain.OrderRequest{}, "k")
	assert.Error(t, err)
}

func TestCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/create-order", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"amount": 1098.0, "currency": "INR"}, body)
		_, _ = io.WriteString(w, `{"id":"order_gw_1","amount":109800,"currency":"INR"}`)
	}))
	defer srv.Close()

	intent, err := New(srv.URL, Options{HTTPClient: srv.Client()}).CreatePaymentIntent(context.Background(), 1098, "INR", "k")

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentIntent{ID: "order_gw_1", Amount: 109800, Currency: "INR"}, *intent)
}

func TestVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/verify", r.URL.Path)
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `"order_gw_1"`, string(body["razorpay_order_id"]))
		assert.JSONEq(t, `"pay_1"`, string(body["razorpay_payment_id"]))
		assert.JSONEq(t, `"sig"`, string(body["razorpay_signature"]))
		assert.Contains(t, body, "orderData")
		_, _ = io.WriteString(w, `{"success":true,"order":{"_id":"ord-3"}}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL, Options{HTTPClient: srv.Client()}).VerifyPayment(context.Background(), domain.VerifyRequest{
		GatewayReceipt: domain.GatewayReceipt{OrderID: "order_gw_1", PaymentID: "pay_1", Signature: "sig"},
		OrderData:      domain.OrderRequest{PaymentMethod: domain.PaymentOnline},
	}, "k")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ord-3", res.Order.ID)
}

func TestAPIErrorMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Out of stock"}`, "Out of stock"},
		{"error field", http.StatusUnauthorized, `{"error":"token expired"}`, "token expired"},
		{"plain body", http.StatusBadGateway, `upstream down`, "Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, Options{HTTPClient: srv.Client()}).CreateCODOrder(context.Background(), domain.OrderRequest{}, "k")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestBreakerOpensAfterServerFailuresAndNeverRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{HTTPClient: srv.Client(), FailureThreshold: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.CreateCODOrder(ctx, domain.OrderRequest{}, "k")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	}
	assert.Equal(t, int32(2), hits.Load(), "one request per call")

	_, err := c.CreateCODOrder(ctx, domain.OrderRequest{}, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{HTTPClient: srv.Client(), FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		_, err := c.CreateCODOrder(context.Background(), domain.OrderRequest{}, "k")
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, Options{}).CreateCODOrder(context.Background(), domain.OrderRequest{}, "k")

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
