package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/fjod/autoparts-storefront/internal/events"
	"github.com/fjod/autoparts-storefront/internal/session"
	"github.com/fjod/autoparts-storefront/internal/storage"
	"github.com/stretchr/testify/require"
)

// MockBackend implements Backend for testing
type MockBackend struct {
	mu sync.Mutex

	Order     *domain.Order
	OrderErr  error
	Intent    *domain.PaymentIntent
	IntentErr error
	Verify    *domain.VerifyResult
	VerifyErr error

	// Block, when set, holds CreateCODOrder until it is closed.
	Block chan struct{}

	CODRequests    []domain.OrderRequest
	CODKeys        []string
	CODCtxErr      error
	IntentAmounts  []float64
	IntentCurrency string
	VerifyRequests []domain.VerifyRequest
}

func (m *MockBackend) CreateCODOrder(ctx context.Context, req domain.OrderRequest, key string) (*domain.Order, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CODRequests = append(m.CODRequests, req)
	m.CODKeys = append(m.CODKeys, key)
	m.CODCtxErr = ctx.Err()
	return m.Order, m.OrderErr
}

func (m *MockBackend) CreatePaymentIntent(_ context.Context, amount float64, currency, _ string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IntentAmounts = append(m.IntentAmounts, amount)
	m.IntentCurrency = currency
	return m.Intent, m.IntentErr
}

func (m *MockBackend) VerifyPayment(_ context.Context, req domain.VerifyRequest, _ string) (*domain.VerifyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifyRequests = append(m.VerifyRequests, req)
	return m.Verify, m.VerifyErr
}

func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CODRequests) + len(m.IntentAmounts) + len(m.VerifyRequests)
}

// MockScripts implements ScriptLoader for testing
type MockScripts struct {
	Err   error
	Loads int
}

func (m *MockScripts) Load(context.Context) error {
	m.Loads++
	return m.Err
}

// MockPublisher records published events
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.Event
	Err    error
}

func (m *MockPublisher) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return m.Err
}

func (m *MockPublisher) Close() error { return nil }

type uiFunc func(ctx context.Context, intent domain.PaymentIntent) (Outcome, error)

func (f uiFunc) Open(ctx context.Context, intent domain.PaymentIntent) (Outcome, error) {
	return f(ctx, intent)
}

var (
	brakePad  = domain.Product{ID: "p1", Name: "Brake Pad", Image: "/img/p1.jpg", Price: 450}
	oilFilter = domain.Product{ID: "p2", Name: "Oil Filter", Image: "/img/p2.jpg", Price: 120}

	validAddress = domain.ShippingAddress{
		FullName: " Asha Rao ",
		Phone:    "(987) 654-3210",
		Email:    "asha@example.com",
		Street:   "12 MG Road",
		City:     "Pune",
		State:    "Maharashtra",
		ZipCode:  "411001",
	}

	errNetwork = errors.New("connection reset by peer")
)

type fixture struct {
	kv        *storage.MemoryKV
	session   *session.Session
	backend   *MockBackend
	scripts   *MockScripts
	publisher *MockPublisher
	orch      *Orchestrator
}

func newFixture(t *testing.T, products ...domain.Product) *fixture {
	t.Helper()
	ctx := context.Background()

	kv := storage.NewMemoryKV()
	s, err := session.Open(ctx, storage.NewStore(kv, nil, nil), session.Options{})
	require.NoError(t, err)
	for _, p := range products {
		require.NoError(t, s.AddItem(ctx, p, 1))
	}

	f := &fixture{
		kv:      kv,
		session: s,
		backend: &MockBackend{
			Order:  &domain.Order{ID: "ord-1", Snapshot: []byte(`{"_id":"ord-1","status":"placed"}`)},
			Intent: &domain.PaymentIntent{ID: "order_gw_1", Amount: 1020, Currency: "INR"},
			Verify: &domain.VerifyResult{Success: true, Order: &domain.Order{ID: "ord-2"}},
		},
		scripts:   &MockScripts{},
		publisher: &MockPublisher{},
	}
	f.orch = New(s, f.backend, Config{
		SessionID: "sid-1",
		Currency:  "INR",
		Scripts:   f.scripts,
		Publisher: f.publisher,
	})
	return f
}

func (f *fixture) cartKeyPresent(t *testing.T) bool {
	t.Helper()
	_, err := f.kv.Get(context.Background(), session.CartKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}
