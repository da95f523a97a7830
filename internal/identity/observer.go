package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"somnicart/internal/logger"
)

const defaultSessionTimeout = 3 * time.Second

// Observer applies auth transitions to a Syncer one at a time, in the order
// the provider delivers them.
type Observer struct {
	provider       Provider
	syncer         Syncer
	logger         *slog.Logger
	sessionTimeout time.Duration
	onChange       func(userID string)

	// opMu serializes transitions; mu guards active for readers.
	opMu   sync.Mutex
	mu     sync.Mutex
	active string
}

type Option func(*Observer)

func WithLogger(l *slog.Logger) Option {
	return func(o *Observer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSessionTimeout bounds the startup session lookup.
func WithSessionTimeout(d time.Duration) Option {
	return func(o *Observer) {
		if d > 0 {
			o.sessionTimeout = d
		}
	}
}

// WithOnChange registers fn to run after every applied transition with the
// new active user ("" when signed out).
func WithOnChange(fn func(userID string)) Option {
	return func(o *Observer) { o.onChange = fn }
}

func NewObserver(provider Provider, syncer Syncer, opts ...Option) *Observer {
	o := &Observer{
		provider:       provider,
		syncer:         syncer,
		logger:         logger.Discard(),
		sessionTimeout: defaultSessionTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ActiveUser returns the user of the last applied sign-in, or "".
func (o *Observer) ActiveUser() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Run subscribes before reading the current session so no transition is
// missed, then applies events until ctx is done or the stream ends.
func (o *Observer) Run(ctx context.Context) error {
	events, err := o.provider.Subscribe(ctx)
	if err != nil {
		return err
	}

	sessCtx, cancel := context.WithTimeout(ctx, o.sessionTimeout)
	sess, err := o.provider.CurrentSession(sessCtx)
	cancel()
	switch {
	case err != nil:
		o.logger.Warn("current session lookup failed, continuing without user", slog.Any("error", err))
	case sess.UserID != "":
		o.Apply(ctx, Event{Type: EventSignedIn, UserID: sess.UserID, At: time.Now()})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			o.Apply(ctx, ev)
		}
	}
}

// Apply handles one event. Concurrent calls are applied one at a time.
func (o *Observer) Apply(ctx context.Context, ev Event) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	switch ev.Type {
	case EventSignedIn:
		if ev.UserID == "" {
			o.logger.Warn("signed_in event without user id ignored")
			return
		}
		o.signIn(ctx, ev.UserID)
	case EventSignedOut:
		o.signOut(ctx)
	default:
		o.logger.Debug("auth event ignored", slog.String("type", string(ev.Type)))
	}
}

func (o *Observer) signIn(ctx context.Context, userID string) {
	o.mu.Lock()
	prev := o.active
	o.mu.Unlock()

	if prev == userID {
		o.logger.Debug("duplicate sign-in coalesced", slog.String("user_id", userID))
		return
	}
	if prev != "" {
		o.syncer.SignOut(ctx)
	}
	o.setActive("")
	o.logger.Info("user signed in", slog.String("user_id", userID))
	o.syncer.MergeOnSignIn(ctx, userID)
	o.setActive(userID)
}

func (o *Observer) signOut(ctx context.Context) {
	o.mu.Lock()
	prev := o.active
	o.mu.Unlock()

	if prev == "" {
		return
	}
	o.syncer.SignOut(ctx)
	o.logger.Info("user signed out", slog.String("user_id", prev))
	o.setActive("")
}

func (o *Observer) setActive(userID string) {
	o.mu.Lock()
	changed := o.active != userID
	o.active = userID
	o.mu.Unlock()
	if changed && o.onChange != nil {
		o.onChange(userID)
	}
}
