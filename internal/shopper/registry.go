// Package shopper keeps one cart session and one checkout orchestrator per
// browser session id.
package shopper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/autoparts-storefront/internal/checkout"
	"github.com/fjod/autoparts-storefront/internal/events"
	"github.com/fjod/autoparts-storefront/internal/metrics"
	"github.com/fjod/autoparts-storefront/internal/session"
	"github.com/fjod/autoparts-storefront/internal/storage"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultIdleTTL         = 30 * time.Minute
	DefaultGatewayTTL      = 15 * time.Minute
	DefaultCleanupInterval = 30 * time.Second
)

var ErrClosed = errors.New("shopper registry closed")

// Shopper is everything the service holds for one browser.
type Shopper struct {
	ID       string
	Session  *session.Session
	Checkout *checkout.Orchestrator

	lastSeen atomic.Int64
}

func (s *Shopper) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Shopper) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

type Config struct {
	KV        storage.KV
	Backend   checkout.Backend
	Scripts   checkout.ScriptLoader
	Publisher events.Publisher
	Currency  string

	IdleTTL         time.Duration
	GatewayTTL      time.Duration
	CleanupInterval time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Registry evicts idle shoppers in the background. An evicted shopper's cart
// stays in the store and is hydrated again on the next request.
type Registry struct {
	cfg       Config
	validator *checkout.Validator
	log       *slog.Logger

	mu       sync.RWMutex
	shoppers map[string]*Shopper
	closed   bool
	sfg      singleflight.Group

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewRegistry(cfg Config) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.GatewayTTL <= 0 {
		cfg.GatewayTTL = DefaultGatewayTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Registry{
		cfg:         cfg,
		validator:   checkout.NewValidator(),
		log:         cfg.Logger,
		shoppers:    make(map[string]*Shopper),
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

// Get returns the shopper for sid, hydrating its cart from the store on first
// use. Concurrent first requests of one sid share a single load.
func (r *Registry) Get(ctx context.Context, sid string) (*Shopper, error) {
	r.mu.RLock()
	sh, ok := r.shoppers[sid]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		sh.touch(r.cfg.Now())
		return sh, nil
	}

	v, err, _ := r.sfg.Do(sid, func() (interface{}, error) {
		return r.load(ctx, sid)
	})
	if err != nil {
		return nil, err
	}
	sh = v.(*Shopper)
	sh.touch(r.cfg.Now())
	return sh, nil
}

func (r *Registry) load(ctx context.Context, sid string) (*Shopper, error) {
	r.mu.RLock()
	if sh, ok := r.shoppers[sid]; ok {
		r.mu.RUnlock()
		return sh, nil
	}
	r.mu.RUnlock()

	log := r.log.With("session_id", sid)
	store := storage.NewStore(storage.Prefixed(r.cfg.KV, storage.SessionPrefix(sid)), log, r.cfg.Metrics)
	sess, err := session.Open(ctx, store, session.Options{Logger: log, Metrics: r.cfg.Metrics})
	if err != nil {
		return nil, err
	}

	sh := &Shopper{
		ID:      sid,
		Session: sess,
		Checkout: checkout.New(sess, r.cfg.Backend, checkout.Config{
			SessionID: sid,
			Currency:  r.cfg.Currency,
			Scripts:   r.cfg.Scripts,
			Publisher: r.cfg.Publisher,
			Validator: r.validator,
			Logger:    r.log,
			Metrics:   r.cfg.Metrics,
			Now:       r.cfg.Now,
		}),
	}
	sh.touch(r.cfg.Now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	r.shoppers[sid] = sh
	r.cfg.Metrics.SetActiveSessions(len(r.shoppers))
	return sh, nil
}

// Peek returns a loaded shopper without hydrating or touching it.
func (r *Registry) Peek(sid string) (*Shopper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sh, ok := r.shoppers[sid]
	return sh, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shoppers)
}

// cleanupLoop periodically expires abandoned payment windows and idle shoppers
func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.stopCleanup:
			return
		}
	}
}

// Sweep returns abandoned payment windows to idle and drops shoppers that
// have been idle for longer than IdleTTL. Shoppers with a checkout in flight
// or an unacknowledged verification failure are kept.
func (r *Registry) Sweep() (expired, evicted int) {
	now := r.cfg.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for sid, sh := range r.shoppers {
		if sh.Checkout.ExpireGateway(r.cfg.GatewayTTL) {
			expired++
			r.log.Info("expired abandoned payment window", "session_id", sid)
		}
		if now.Sub(sh.LastSeen()) < r.cfg.IdleTTL || sh.Checkout.State().InFlight() {
			continue
		}
		if sh.Checkout.HasUnresolved() {
			continue
		}
		delete(r.shoppers, sid)
		evicted++
	}

	if expired > 0 || evicted > 0 {
		r.log.Debug("shopper sweep", "expired", expired, "evicted", evicted, "active", len(r.shoppers))
	}
	r.cfg.Metrics.SetActiveSessions(len(r.shoppers))
	return expired, evicted
}

// Close stops the background cleanup and waits for it to finish
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stopCleanup)
	r.wg.Wait()
	return nil
}
