package cartstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"somnicart/internal/domain"
	"somnicart/internal/logger"
)

// Origin tells subscribers who caused a change.
type Origin int

const (
	// OriginLocal is a shopper mutation on this device.
	OriginLocal Origin = iota
	// OriginSync is state installed by the synchronizer after a merge.
	OriginSync
)

func (o Origin) String() string {
	if o == OriginSync {
		return "sync"
	}
	return "local"
}

// Change is delivered to subscribers after every applied mutation.
type Change struct {
	Revision uint64
	Origin   Origin
}

// CheckoutGateway turns cart lines into a hosted-checkout session.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, lines []domain.LineRequest) (domain.CheckoutSession, error)
}

// Redirector hands the shopper off to the hosted checkout page.
type Redirector interface {
	Redirect(url string) error
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(url string) error

func (f RedirectFunc) Redirect(url string) error { return f(url) }

var errNoCheckoutGateway = errors.New("checkout gateway not configured")

// Store is the single source of truth for the cart on this device. Reads and
// mutations are synchronous; only StartCheckout performs I/O.
type Store struct {
	mu       sync.Mutex
	lines    []domain.CartLine
	handle   *string
	revision uint64
	inFlight int

	slot     Slot
	checkout CheckoutGateway
	redirect Redirector
	logger   *slog.Logger

	subMu   sync.Mutex
	subs    map[uint64]func(Change)
	nextSub uint64
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithCheckout(gw CheckoutGateway, redirect Redirector) Option {
	return func(s *Store) {
		s.checkout = gw
		s.redirect = redirect
	}
}

// New loads the cart from slot. An unreadable slot yields an empty cart.
func New(slot Slot, opts ...Option) *Store {
	s := &Store{
		slot:   slot,
		logger: logger.Discard(),
		subs:   make(map[uint64]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	st, err := slot.Load()
	if err != nil {
		s.logger.Warn("cart slot unreadable, starting empty", slog.Any("error", err))
		st = State{}
	}
	s.lines = domain.NormalizeLines(st.Lines)
	s.handle = cleanHandle(st.RemoteCartHandle)
	return s
}

// AddLine accumulates candidate into an existing line for the same variant or
// appends it. Invalid candidates are rejected without touching the cart.
func (s *Store) AddLine(candidate domain.CartLine) error {
	candidate.VariantID = strings.TrimSpace(candidate.VariantID)
	if !candidate.Valid() {
		return domain.NewCheckoutError(domain.ErrValidationFailed,
			fmt.Sprintf("invalid line %q with quantity %d", candidate.VariantID, candidate.Quantity))
	}
	s.mutate(OriginLocal, func() bool {
		for i := range s.lines {
			if s.lines[i].VariantID == candidate.VariantID {
				s.lines[i].Quantity += candidate.Quantity
				return true
			}
		}
		s.lines = append(s.lines, domain.CloneLines([]domain.CartLine{candidate})[0])
		return true
	})
	return nil
}

// SetQuantity replaces the quantity of a line. quantity <= 0 removes it; an
// absent variant is a no-op.
func (s *Store) SetQuantity(variantID string, quantity int) {
	if quantity <= 0 {
		s.RemoveLine(variantID)
		return
	}
	s.mutate(OriginLocal, func() bool {
		for i := range s.lines {
			if s.lines[i].VariantID == variantID {
				if s.lines[i].Quantity == quantity {
					return false
				}
				s.lines[i].Quantity = quantity
				return true
			}
		}
		return false
	})
}

func (s *Store) RemoveLine(variantID string) {
	s.mutate(OriginLocal, func() bool {
		for i := range s.lines {
			if s.lines[i].VariantID == variantID {
				s.lines = append(s.lines[:i], s.lines[i+1:]...)
				return true
			}
		}
		return false
	})
}

// Clear empties the cart and forgets the remote checkout handle.
func (s *Store) Clear() {
	s.mutate(OriginLocal, func() bool {
		s.lines = nil
		s.handle = nil
		return true
	})
}

// Replace installs merged state from the synchronizer.
func (s *Store) Replace(lines []domain.CartLine, handle *string) {
	s.mutate(OriginSync, func() bool {
		s.lines = domain.NormalizeLines(domain.CloneLines(lines))
		s.handle = cleanHandle(handle)
		return true
	})
}

// ReplaceFunc installs the cart computed by fn from the current cart in one
// step, so local mutations cannot interleave. It returns the installed cart.
func (s *Store) ReplaceFunc(fn func(current domain.Cart) domain.Cart) domain.Cart {
	var installed domain.Cart
	s.mutate(OriginSync, func() bool {
		next := fn(domain.Cart{Lines: domain.CloneLines(s.lines), RemoteCartHandle: copyHandle(s.handle)})
		s.lines = domain.NormalizeLines(domain.CloneLines(next.Lines))
		s.handle = cleanHandle(next.RemoteCartHandle)
		installed = domain.Cart{Lines: domain.CloneLines(s.lines), RemoteCartHandle: copyHandle(s.handle)}
		return true
	})
	return installed
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneLines(s.lines)
}

// Snapshot returns a copy of the whole cart.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Cart{Lines: domain.CloneLines(s.lines), RemoteCartHandle: copyHandle(s.handle)}
}

func (s *Store) RemoteCartHandle() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyHandle(s.handle)
}

// TotalItemCount is recomputed from the lines on every call.
func (s *Store) TotalItemCount() int {
	return s.Snapshot().TotalItemCount()
}

// TotalPrice is recomputed from the lines on every call.
func (s *Store) TotalPrice() domain.Money {
	return s.Snapshot().TotalPrice()
}

func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// CheckoutInFlight reports whether a checkout request is pending. It is UI
// feedback only and does not restrict mutations.
func (s *Store) CheckoutInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Subscribe registers fn for change notifications and returns its cancel func.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// StartCheckout creates a hosted-checkout session for the current lines and
// redirects to it. The cart is left untouched on failure.
func (s *Store) StartCheckout(ctx context.Context) (domain.CheckoutSession, error) {
	if s.checkout == nil {
		return domain.CheckoutSession{}, errNoCheckoutGateway
	}

	s.mu.Lock()
	lines := domain.LineRequests(s.lines)
	if len(lines) == 0 {
		s.mu.Unlock()
		return domain.CheckoutSession{}, domain.NewCheckoutError(domain.ErrValidationFailed, "cart is empty")
	}
	s.inFlight++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	session, err := s.checkout.CreateCheckoutSession(ctx, lines)
	if err != nil {
		s.logger.Warn("checkout failed", slog.String("code", domain.ErrorCode(err)), slog.Any("error", err))
		return domain.CheckoutSession{}, err
	}

	if session.CartID != "" {
		handle := session.CartID
		s.mutate(OriginLocal, func() bool {
			if s.handle != nil && *s.handle == handle {
				return false
			}
			s.handle = &handle
			return true
		})
	}

	if s.redirect != nil {
		if err := s.redirect.Redirect(session.URL); err != nil {
			return session, fmt.Errorf("redirect to checkout: %w", err)
		}
	}
	return session, nil
}

// CompleteCheckout clears the cart when handle confirms the checkout session
// this cart started. It reports whether the cart was cleared.
func (s *Store) CompleteCheckout(handle string) bool {
	handle = strings.TrimSpace(handle)
	cleared := false
	s.mutate(OriginLocal, func() bool {
		if handle == "" || s.handle == nil || *s.handle != handle {
			return false
		}
		s.lines = nil
		s.handle = nil
		cleared = true
		return true
	})
	return cleared
}

// mutate applies fn under the lock; when fn reports a change the new state is
// persisted and subscribers are notified after the lock is released.
func (s *Store) mutate(origin Origin, fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.revision++
	change := Change{Revision: s.revision, Origin: origin}
	st := State{Lines: domain.CloneLines(s.lines), RemoteCartHandle: copyHandle(s.handle)}
	if err := s.slot.Save(st); err != nil {
		s.logger.Warn("persist cart failed", slog.Uint64("revision", change.Revision), slog.Any("error", err))
	}
	s.mu.Unlock()

	s.notify(change)
}

func (s *Store) notify(change Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func cleanHandle(h *string) *string {
	if h == nil || strings.TrimSpace(*h) == "" {
		return nil
	}
	return copyHandle(h)
}

func copyHandle(h *string) *string {
	if h == nil {
		return nil
	}
	v := *h
	return &v
}
