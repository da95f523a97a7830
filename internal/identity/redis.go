package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"somnicart/internal/logger"
)

const keyPrefix = "somnicart"

// RedisProvider keeps the device's session under a key and announces
// transitions on a pub/sub channel.
type RedisProvider struct {
	client   *redis.Client
	deviceID string
	logger   *slog.Logger
	now      func() time.Time
}

// NewRedisProvider parses redisURL and verifies the connection.
func NewRedisProvider(ctx context.Context, redisURL, deviceID string, log *slog.Logger) (*RedisProvider, error) {
	if deviceID == "" {
		return nil, errors.New("device id required")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisProviderWithClient(client, deviceID, log), nil
}

func NewRedisProviderWithClient(client *redis.Client, deviceID string, log *slog.Logger) *RedisProvider {
	if log == nil {
		log = logger.Discard()
	}
	return &RedisProvider{client: client, deviceID: deviceID, logger: log, now: time.Now}
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}

func (p *RedisProvider) sessionKey() string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, p.deviceID)
}

func (p *RedisProvider) channel() string {
	return fmt.Sprintf("%s:auth:%s", keyPrefix, p.deviceID)
}

func (p *RedisProvider) CurrentSession(ctx context.Context) (Session, error) {
	userID, err := p.client.Get(ctx, p.sessionKey()).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return Session{UserID: userID}, nil
}

// Subscribe waits for the subscription to be confirmed so events published
// after it returns are not lost.
func (p *RedisProvider) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := p.client.Subscribe(ctx, p.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", p.channel(), err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.logger.Warn("undecodable auth event dropped", slog.String("channel", msg.Channel), slog.Any("error", err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// SignIn records userID as the device session and announces it.
func (p *RedisProvider) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id required")
	}
	if err := p.client.Set(ctx, p.sessionKey(), userID, 0).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return p.publish(ctx, Event{Type: EventSignedIn, UserID: userID, At: p.now().UTC()})
}

// SignOut clears the device session and announces it.
func (p *RedisProvider) SignOut(ctx context.Context) error {
	if err := p.client.Del(ctx, p.sessionKey()).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return p.publish(ctx, Event{Type: EventSignedOut, At: p.now().UTC()})
}

func (p *RedisProvider) publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel(), payload).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}
