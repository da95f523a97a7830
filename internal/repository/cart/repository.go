package cart

import (
	"context"

	"somnicart/internal/domain"
)

// UpsertInput replaces a user's whole cart record.
type UpsertInput struct {
	UserID           string
	Lines            []domain.CartLine
	RemoteCartHandle *string
}

// Repository stores one cart record per signed-in user.
type Repository interface {
	Get(ctx context.Context, userID string) (*domain.RemoteCartRecord, error)
	Upsert(ctx context.Context, in UpsertInput) (*domain.RemoteCartRecord, error)
	Delete(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}
