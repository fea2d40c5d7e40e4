// Package session keeps one browser's cart in step with durable storage and
// tracks who is signed in across page loads.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/fjod/autoparts-storefront/internal/cart"
	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/fjod/autoparts-storefront/internal/metrics"
	"github.com/fjod/autoparts-storefront/internal/storage"
)

// CartKey is the storage key holding the JSON array of line items.
const CartKey = "cartItems"

const (
	PathStorefront = "/"
	PathCheckout   = "/checkout"
	PathLogin      = "/login"
)

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Session is safe for concurrent use. Every cart mutation is written through
// to the store before the call returns.
type Session struct {
	mu      sync.Mutex
	store   *storage.Store
	cart    *cart.Container
	user    *domain.User
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Open hydrates a session from the cart key. A malformed entry is removed and
// the session starts empty; only storage I/O failures are returned.
func Open(ctx context.Context, store *storage.Store, opts Options) (*Session, error) {
	s := &Session{
		store:   store,
		cart:    cart.New(),
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	var raw json.RawMessage
	found, err := store.Read(ctx, CartKey, &raw)
	if err != nil {
		return nil, fmt.Errorf("hydrate cart: %w", err)
	}
	if !found {
		return s, nil
	}

	items, err := decodeItems(raw)
	if err != nil {
		s.log.WarnContext(ctx, "discarding malformed cart", "error", err)
		s.metrics.StorageCorruption()
		if errRemove := store.Remove(ctx, CartKey); errRemove != nil {
			s.log.WarnContext(ctx, "failed to remove malformed cart", "error", errRemove)
		}
		return s, nil
	}

	s.cart.Replace(items)
	return s, nil
}

func (s *Session) AddItem(ctx context.Context, p domain.Product, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cart.AddItem(p, quantity); err != nil {
		return err
	}
	s.metrics.CartMutation("add")
	return s.persist(ctx)
}

func (s *Session) SetQuantity(ctx context.Context, id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.SetQuantity(id, quantity)
	s.metrics.CartMutation("set_quantity")
	return s.persist(ctx)
}

func (s *Session) RemoveItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.RemoveItem(id)
	s.metrics.CartMutation("remove")
	return s.persist(ctx)
}

// Clear empties the cart and removes the storage key.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Clear()
	s.metrics.CartMutation("clear")
	return s.persist(ctx)
}

// Settle takes the ordered quantities out of the cart. Lines added or topped
// up after the order was composed stay in the cart.
func (s *Session) Settle(ctx context.Context, ordered []domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range ordered {
		line, ok := s.cart.Get(item.Product)
		if !ok {
			continue
		}
		s.cart.SetQuantity(item.Product, line.Quantity-item.Quantity)
	}
	s.metrics.CartMutation("settle")
	return s.persist(ctx)
}

func (s *Session) persist(ctx context.Context) error {
	if err := s.store.Write(ctx, CartKey, s.cart.Items()); err != nil {
		s.log.ErrorContext(ctx, "failed to persist cart", "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Session) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

func (s *Session) Totals() domain.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals()
}

// View is a consistent read of the cart for rendering.
type View struct {
	Items  []domain.LineItem `json:"items"`
	Totals domain.Totals     `json:"totals"`
	Count  int               `json:"count"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Items:  s.cart.Items(),
		Totals: s.cart.Totals(),
		Count:  s.cart.Count(),
	}
}

// Login attaches the principal. The anonymous cart is carried forward as is.
func (s *Session) Login(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
}

// Logout drops the principal and keeps the cart.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

func (s *Session) User() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// Decision tells the UI whether it may enter checkout and where to go
// otherwise.
type Decision struct {
	Proceed  bool   `json:"proceed"`
	Redirect string `json:"redirect"`
}

// BeginCheckout never touches the cart. Anonymous shoppers are sent to login
// with a marker that brings them back to checkout.
func (s *Session) BeginCheckout() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decide(s.user)
}

// BeginCheckoutAs decides for the principal of one request rather than the
// one attached to the session. A nil user is anonymous.
func (s *Session) BeginCheckoutAs(user *domain.User) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decide(user)
}

// Must hold s.mu.
func (s *Session) decide(user *domain.User) Decision {
	switch {
	case user == nil:
		return Decision{Redirect: LoginRedirect(PathCheckout)}
	case s.cart.IsEmpty():
		return Decision{Redirect: PathStorefront}
	default:
		return Decision{Proceed: true, Redirect: PathCheckout}
	}
}

// LoginRedirect builds the login path carrying the intended destination.
func LoginRedirect(destination string) string {
	return PathLogin + "?redirect=" + destination
}

// ResumeAfterLogin resolves the destination marker carried through login.
// Anything other than a same-site absolute path falls back to the storefront.
func ResumeAfterLogin(marker string) string {
	if !isLocalPath(marker) {
		return PathStorefront
	}
	return marker
}

func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.ContainsAny(p, "\\\r\n") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}

// ShippingDefaults seeds the checkout form from the signed-in user's profile.
func (s *Session) ShippingDefaults() domain.ShippingAddress {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	return ShippingDefaultsFor(user)
}

// ShippingDefaultsFor seeds the checkout form from user's profile. A nil user
// gets an empty form with the default country.
func ShippingDefaultsFor(user *domain.User) domain.ShippingAddress {
	if user == nil {
		return domain.ShippingAddress{Country: domain.DefaultCountry}
	}

	addr := user.Address
	if addr.FullName == "" {
		addr.FullName = user.Name
	}
	if addr.Email == "" {
		addr.Email = user.Email
	}
	if addr.Phone == "" {
		addr.Phone = user.Phone
	}
	if addr.Country == "" {
		addr.Country = domain.DefaultCountry
	}
	return addr
}
