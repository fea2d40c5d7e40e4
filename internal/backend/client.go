// Package backend is the REST client of the order and payment API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnavailable is returned without contacting the backend while the
// circuit breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

type tokenKey struct{}

// WithToken attaches the shopper's bearer token to ctx. Requests made with
// ctx forward it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	// FailureThreshold is the number of consecutive server failures that
	// opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type response struct {
	body []byte
}

// Client never retries. A failed call is reported once and the breaker fails
// fast after repeated server errors.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
	log     *slog.Logger
}

func New(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// no client timeout: an issued order is never abandoned by the client
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := opts.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		breaker: breaker,
		log:     log,
	}
}

type codOrderResponse struct {
	Order *domain.Order `json:"order"`
}

// CreateCODOrder issues POST /orders/cod.
func (c *Client) CreateCODOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (*domain.Order, error) {
	var out codOrderResponse
	if err := c.post(ctx, "/orders/cod", req, idempotencyKey, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, errors.New("order missing from response")
	}
	return out.Order, nil
}

type intentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CreatePaymentIntent issues POST /payment/create-order.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64, currency, idempotencyKey string) (*domain.PaymentIntent, error) {
	var out domain.PaymentIntent
	if err := c.post(ctx, "/payment/create-order", intentRequest{Amount: amount, Currency: currency}, idempotencyKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment issues POST /payment/verify. A decoded success=false is
// returned as is; the caller decides what it means.
func (c *Client) VerifyPayment(ctx context.Context, req domain.VerifyRequest, idempotencyKey string) (*domain.VerifyResult, error) {
	var out domain.VerifyResult
	if err := c.post(ctx, "/payment/verify", req, idempotencyKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body any, idempotencyKey string, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.do(ctx, http.MethodPost, path, payload, idempotencyKey)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.body, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, idempotencyKey string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	c.log.DebugContext(ctx, "backend call", "method", method, "path", path,
		"status", res.StatusCode, "duration", time.Since(start))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &APIError{StatusCode: res.StatusCode, Message: errorMessage(res.StatusCode, body)}
	}
	return &response{body: body}, nil
}

func errorMessage(status int, body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return http.StatusText(status)
}
