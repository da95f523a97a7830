package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisProviderSession(t *testing.T) {
	mr, client := setupTestRedis(t)
	p := NewRedisProviderWithClient(client, "dev1", nil)
	ctx := context.Background()

	sess, err := p.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", sess.UserID)

	require.NoError(t, p.SignIn(ctx, "u1"))
	got, err := mr.Get("somnicart:session:dev1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	sess, err = p.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)

	require.NoError(t, p.SignOut(ctx))
	assert.False(t, mr.Exists("somnicart:session:dev1"))
	assert.Error(t, p.SignIn(ctx, ""))
}

func TestRedisProviderSubscribe(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewRedisProviderWithClient(client, "dev1", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := p.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "somnicart:auth:dev1", "not json").Err())
	require.NoError(t, p.SignIn(ctx, "u1"))
	require.NoError(t, p.SignOut(ctx))

	var got []Event
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for events, got %+v", got)
		}
	}
	assert.Equal(t, EventSignedIn, got[0].Type)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, EventSignedOut, got[1].Type)

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisProviderDrivesObserver(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewRedisProviderWithClient(client, "dev1", nil)
	syncer := &fakeSyncer{}
	o := NewObserver(p, syncer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, _ := client.PubSubNumSub(ctx, "somnicart:auth:dev1").Result()
		return n["somnicart:auth:dev1"] > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.SignIn(ctx, "u1"))
	assert.Eventually(t, func() bool { return o.ActiveUser() == "u1" }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"merge:u1"}, syncer.snapshot())
}
