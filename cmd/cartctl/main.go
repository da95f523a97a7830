// Command cartctl is the device-side cart agent: it owns the local cart file,
// keeps it in sync with the cart API for the signed-in user and starts
// hosted checkouts.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"somnicart/internal/apiclient"
	"somnicart/internal/cartstore"
	"somnicart/internal/cartsync"
	"somnicart/internal/config"
	"somnicart/internal/identity"
	"somnicart/internal/logger"
)

const sessionLookupTimeout = 3 * time.Second

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.LogLevel).With(slog.String("component", "cartctl"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log, os.Args[1:])
	stop()
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, args []string) error {
	api, err := apiclient.New(cfg.Device.APIBaseURL, nil)
	if err != nil {
		return err
	}
	deviceID, err := loadDeviceID(cfg)
	if err != nil {
		return err
	}
	log = log.With(slog.String("device_id", deviceID))

	store := cartstore.New(cartstore.NewFileSlot(cfg.Device.CartPath),
		cartstore.WithLogger(log),
		cartstore.WithCheckout(api, cartstore.RedirectFunc(func(url string) error {
			_, err := fmt.Printf("continue checkout at: %s\n", url)
			return err
		})),
	)
	syncer := cartsync.New(store, api,
		cartsync.WithLogger(log),
		cartsync.WithDebounce(cfg.Device.SyncDebounce),
		cartsync.WithTimeout(cfg.Device.SyncTimeout),
	)

	provider, err := identity.NewRedisProvider(ctx, cfg.RedisURL, deviceID, log)
	if err != nil {
		log.Warn("identity provider unavailable, cart stays local", slog.Any("error", err))
		provider = nil
	} else {
		defer provider.Close()
	}

	a := &app{store: store, catalog: api, user: syncer.ActiveUser, out: os.Stdout}
	if provider != nil {
		a.auth = provider
	}

	if args[0] == "watch" {
		if provider == nil {
			return errors.New("watch needs the identity provider")
		}
		return watch(ctx, a, syncer, provider, log)
	}
	var sessions sessionSource
	if provider != nil {
		sessions = provider
	}
	return once(ctx, a, syncer, sessions, args)
}

type cartSyncer interface {
	MergeOnSignIn(ctx context.Context, userID string)
	Push(ctx context.Context)
}

type sessionSource interface {
	CurrentSession(ctx context.Context) (identity.Session, error)
}

// once runs a single command. When the device has a signed-in session the
// cart is reconciled first and pushed right after a mutation.
func once(ctx context.Context, a *app, syncer cartSyncer, sessions sessionSource, args []string) error {
	userID := ""
	if sessions != nil && args[0] != "login" && args[0] != "logout" {
		lookupCtx, cancel := context.WithTimeout(ctx, sessionLookupTimeout)
		sess, err := sessions.CurrentSession(lookupCtx)
		cancel()
		if err == nil {
			userID = sess.UserID
		}
	}
	if userID != "" {
		syncer.MergeOnSignIn(ctx, userID)
	}

	err := a.exec(ctx, args)
	if userID != "" && mutates(args[0]) {
		syncer.Push(context.WithoutCancel(ctx))
	}
	return err
}

// watch runs the observer and the push loop, and executes commands read from
// stdin until EOF or a signal.
func watch(ctx context.Context, a *app, syncer *cartsync.Synchronizer, provider *identity.RedisProvider, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopSync := syncer.Start(ctx)
	observer := identity.NewObserver(provider, syncer,
		identity.WithLogger(log),
		identity.WithOnChange(func(userID string) {
			if userID == "" {
				fmt.Fprintln(a.out, "signed out; cart kept on this device")
				return
			}
			fmt.Fprintf(a.out, "signed in as %s; cart synced\n", userID)
		}),
	)
	observerDone := make(chan error, 1)
	go func() { observerDone <- observer.Run(ctx) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Fprintln(a.out, "watching; type a command or ctrl-d to exit")
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-observerDone:
			if err != nil {
				log.Error("identity observer stopped", slog.Any("error", err))
			}
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			args := strings.Fields(line)
			if len(args) == 0 {
				continue
			}
			if err := a.exec(ctx, args); err != nil {
				fmt.Fprintf(a.out, "error: %v\n", err)
			}
		}
	}

	cancel()
	stopSync()
	// Flush anything the debounce had not sent yet.
	syncer.Push(context.Background())
	return nil
}

// loadDeviceID returns the configured device id, or one persisted next to the
// cart file, creating it on first use.
func loadDeviceID(cfg config.Config) (string, error) {
	if cfg.Device.ID != "" {
		return cfg.Device.ID, nil
	}
	path := filepath.Join(filepath.Dir(cfg.Device.CartPath), "device-id")
	raw, err := os.ReadFile(path)
	if err == nil && strings.TrimSpace(string(raw)) != "" {
		return strings.TrimSpace(string(raw)), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read device id: %w", err)
	}
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}
