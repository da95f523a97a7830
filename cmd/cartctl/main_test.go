package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somnicart/internal/identity"
)

type stubSyncer struct {
	merges []string
	pushes int
}

func (s *stubSyncer) MergeOnSignIn(_ context.Context, userID string) {
	s.merges = append(s.merges, userID)
}

func (s *stubSyncer) Push(context.Context) { s.pushes++ }

type stubSessions struct {
	userID  string
	err     error
	lookups int
}

func (s *stubSessions) CurrentSession(context.Context) (identity.Session, error) {
	s.lookups++
	return identity.Session{UserID: s.userID}, s.err
}

func TestOnceMergesThenPushesAfterMutation(t *testing.T) {
	a, _, _ := newTestApp(stubGateway{})
	syncer := &stubSyncer{}

	require.NoError(t, once(context.Background(), a, syncer, &stubSessions{userID: "u1"}, []string{"add", "mattress"}))

	assert.Equal(t, []string{"u1"}, syncer.merges)
	assert.Equal(t, 1, syncer.pushes)
	assert.Len(t, a.store.Lines(), 1)
}

func TestOnceShowDoesNotPush(t *testing.T) {
	a, _, _ := newTestApp(stubGateway{})
	syncer := &stubSyncer{}

	require.NoError(t, once(context.Background(), a, syncer, &stubSessions{userID: "u1"}, []string{"show"}))

	assert.Equal(t, []string{"u1"}, syncer.merges)
	assert.Zero(t, syncer.pushes)
}

func TestOnceWithoutSessionStaysLocal(t *testing.T) {
	cases := map[string]sessionSource{
		"no provider":   nil,
		"signed out":    &stubSessions{},
		"lookup failed": &stubSessions{userID: "u1", err: errors.New("redis down")},
	}
	for name, sessions := range cases {
		t.Run(name, func(t *testing.T) {
			a, _, _ := newTestApp(stubGateway{})
			syncer := &stubSyncer{}

			require.NoError(t, once(context.Background(), a, syncer, sessions, []string{"add", "mattress"}))

			assert.Empty(t, syncer.merges)
			assert.Zero(t, syncer.pushes)
			assert.Len(t, a.store.Lines(), 1)
		})
	}
}

func TestOnceLoginSkipsSessionLookup(t *testing.T) {
	a, _, auth := newTestApp(stubGateway{})
	syncer := &stubSyncer{}
	sessions := &stubSessions{userID: "u1"}

	require.NoError(t, once(context.Background(), a, syncer, sessions, []string{"login", "u2"}))

	assert.Zero(t, sessions.lookups)
	assert.Empty(t, syncer.merges)
	assert.Equal(t, []string{"in:u2"}, auth.calls)
}

func TestOncePushesEvenWhenCommandFails(t *testing.T) {
	a, _, _ := newTestApp(stubGateway{})
	syncer := &stubSyncer{}

	err := once(context.Background(), a, syncer, &stubSessions{userID: "u1"}, []string{"add", "mattress", "v-king"})

	assert.Error(t, err)
	assert.Equal(t, 1, syncer.pushes)
}
