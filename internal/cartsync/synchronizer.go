package cartsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"somnicart/internal/cartstore"
	"somnicart/internal/domain"
	"somnicart/internal/logger"
)

// RemoteGateway reads and writes the per-user cart record on the sync backend.
type RemoteGateway interface {
	// Fetch reports found=false when the user has no record yet.
	Fetch(ctx context.Context, userID string) (rec domain.RemoteCartRecord, found bool, err error)
	// Save replaces the user's record with lines and handle.
	Save(ctx context.Context, userID string, lines []domain.CartLine, handle *string) error
}

// Recorder receives sync outcomes for metrics.
type Recorder interface {
	RecordMerge(result string)
	RecordPush(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordMerge(string) {}
func (nopRecorder) RecordPush(string)  {}

const (
	defaultDebounce = 750 * time.Millisecond
	defaultTimeout  = 3 * time.Second
)

// Synchronizer keeps the local cart and the remote record of the signed-in
// user coherent. It never fails outward: remote errors are logged and the
// local cart stays authoritative.
type Synchronizer struct {
	store    *cartstore.Store
	remote   RemoteGateway
	logger   *slog.Logger
	metrics  Recorder
	debounce time.Duration
	timeout  time.Duration

	// opMu serializes merge, push and sign-out so a push never runs ahead of
	// the merge for the same session.
	opMu         sync.Mutex
	userID       string
	pendingMerge bool

	changed chan struct{}
}

type Option func(*Synchronizer)

func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithDebounce sets how long the synchronizer waits after the last local
// change before pushing.
func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithTimeout bounds every gateway call.
func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(store *cartstore.Store, remote RemoteGateway, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		remote:   remote,
		logger:   logger.Discard(),
		metrics:  nopRecorder{},
		debounce: defaultDebounce,
		timeout:  defaultTimeout,
		changed:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to local changes and runs the push loop until ctx is done
// or the returned stop func is called.
func (s *Synchronizer) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	unsubscribe := s.store.Subscribe(func(c cartstore.Change) {
		if c.Origin == cartstore.OriginSync {
			return
		}
		select {
		case s.changed <- struct{}{}:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.loop(ctx)
	}()

	return func() {
		unsubscribe()
		cancel()
		<-done
	}
}

func (s *Synchronizer) loop(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			s.Push(ctx)
		}
	}
}

// ActiveUser returns the user the synchronizer is pushing for, or "".
func (s *Synchronizer) ActiveUser() string {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.userID
}

// MergeOnSignIn reconciles the local cart with userID's remote record, installs
// the result locally and writes it back remotely. It activates pushing for
// userID even when the backend is unreachable.
func (s *Synchronizer) MergeOnSignIn(ctx context.Context, userID string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.userID = userID
	s.pendingMerge = true
	s.mergeLocked(ctx)
}

func (s *Synchronizer) mergeLocked(ctx context.Context) {
	userID := s.userID

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	rec, found, err := s.remote.Fetch(fetchCtx, userID)
	cancel()
	if err != nil {
		s.metrics.RecordMerge("fetch_failed")
		s.logger.Warn("fetch remote cart failed, keeping local cart",
			slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	s.pendingMerge = false

	if !found {
		local := s.store.Snapshot()
		if len(local.Lines) == 0 {
			s.metrics.RecordMerge("empty")
			return
		}
		s.saveLocked(ctx, userID, local.Lines, local.RemoteCartHandle, "merge")
		s.metrics.RecordMerge("local_only")
		return
	}

	localLines := 0
	merged := s.store.ReplaceFunc(func(local domain.Cart) domain.Cart {
		localLines = len(local.Lines)
		return domain.Cart{
			Lines:            Merge(rec.Lines, local.Lines),
			RemoteCartHandle: mergeHandle(rec.RemoteCartHandle, local.RemoteCartHandle),
		}
	})
	s.logger.Info("cart merged",
		slog.String("user_id", userID),
		slog.Int("remote_lines", len(rec.Lines)),
		slog.Int("local_lines", localLines),
		slog.Int("merged_lines", len(merged.Lines)))

	s.saveLocked(ctx, userID, merged.Lines, merged.RemoteCartHandle, "merge")
	s.metrics.RecordMerge("merged")
}

// Push sends the current local cart for the active user. A merge that failed
// earlier in the session is retried instead of blindly overwriting the
// remote record.
func (s *Synchronizer) Push(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.userID == "" {
		return
	}
	if s.pendingMerge {
		s.mergeLocked(ctx)
		return
	}
	snap := s.store.Snapshot()
	s.saveLocked(ctx, s.userID, snap.Lines, snap.RemoteCartHandle, "push")
}

// SignOut performs one final save for the outgoing user and stops pushing.
// The local cart is kept as an anonymous cart.
func (s *Synchronizer) SignOut(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.userID == "" {
		return
	}
	userID := s.userID
	if !s.pendingMerge {
		snap := s.store.Snapshot()
		s.saveLocked(ctx, userID, snap.Lines, snap.RemoteCartHandle, "sign_out")
	}
	s.userID = ""
	s.pendingMerge = false
	s.logger.Info("cart sync stopped", slog.String("user_id", userID))
}

// saveLocked never applies anything back to the store.
func (s *Synchronizer) saveLocked(ctx context.Context, userID string, lines []domain.CartLine, handle *string, reason string) {
	saveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.remote.Save(saveCtx, userID, lines, handle); err != nil {
		s.metrics.RecordPush("failed")
		s.logger.Warn("save remote cart failed",
			slog.String("user_id", userID), slog.String("reason", reason), slog.Any("error", err))
		return
	}
	s.metrics.RecordPush("ok")
}
