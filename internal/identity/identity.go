// Package identity turns the auth provider's session stream into ordered
// sign-in and sign-out calls on the cart synchronizer.
package identity

import (
	"context"
	"time"
)

type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is one auth state transition. UserID is set for EventSignedIn.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"userId,omitempty"`
	At     time.Time `json:"at"`
}

// Session is the point-in-time auth state. An empty UserID means no user.
type Session struct {
	UserID string
}

// Provider is the auth provider as seen from this device.
type Provider interface {
	CurrentSession(ctx context.Context) (Session, error)
	// Subscribe delivers events until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Syncer is the part of the cart synchronizer driven by auth transitions.
type Syncer interface {
	MergeOnSignIn(ctx context.Context, userID string)
	SignOut(ctx context.Context)
}
