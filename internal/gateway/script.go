// Package gateway checks that the payment gateway's checkout script can be
// served before a payment is started.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

var ErrScriptUnavailable = errors.New("gateway script unavailable")

// ScriptProbe fetches the script once. A successful load is remembered for
// the life of the probe; failures are retried on the next Load.
type ScriptProbe struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	loaded bool
}

func NewScriptProbe(url string, client *http.Client) *ScriptProbe {
	if url == "" {
		url = DefaultScriptURL
	}
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		}
	}
	return &ScriptProbe{url: url, client: client}
}

func (p *ScriptProbe) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScriptUnavailable, err)
	}
	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScriptUnavailable, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrScriptUnavailable, res.StatusCode)
	}
	p.loaded = true
	return nil
}
