package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"somnicart/internal/domain"
	"somnicart/internal/events"
	"somnicart/internal/logger"
	cartrepo "somnicart/internal/repository/cart"
)

const maxUserIDLen = 256

type writeRecorder interface {
	RecordRecordWrite(op string)
}

// Service owns the per-user remote cart records.
type Service struct {
	repo      cartrepo.Repository
	publisher events.Publisher
	metrics   writeRecorder
	logger    *slog.Logger
	now       func() time.Time
}

func New(repo cartrepo.Repository, publisher events.Publisher, metrics writeRecorder, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{repo: repo, publisher: publisher, metrics: metrics, logger: log, now: time.Now}
}

// SaveInput is a full replacement of a user's cart record.
type SaveInput struct {
	Lines            []domain.CartLine `json:"lines"`
	RemoteCartHandle *string           `json:"remoteCartHandle"`
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.RemoteCartRecord, error) {
	userID, err := cleanUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// Save replaces userID's record. Lines with a blank variant or a quantity
// below one are rejected; duplicate variants are folded.
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (*domain.RemoteCartRecord, error) {
	userID, err := cleanUserID(userID)
	if err != nil {
		return nil, err
	}
	for i, l := range in.Lines {
		if !l.Valid() {
			return nil, domain.NewCheckoutError(domain.ErrValidationFailed,
				fmt.Sprintf("line %d: variant id and a positive quantity are required", i))
		}
	}
	var handle *string
	if in.RemoteCartHandle != nil && strings.TrimSpace(*in.RemoteCartHandle) != "" {
		h := strings.TrimSpace(*in.RemoteCartHandle)
		handle = &h
	}

	rec, err := s.repo.Upsert(ctx, cartrepo.UpsertInput{
		UserID:           userID,
		Lines:            domain.NormalizeLines(in.Lines),
		RemoteCartHandle: handle,
	})
	if err != nil {
		return nil, err
	}
	s.record("upsert")

	cart := domain.Cart{Lines: rec.Lines, RemoteCartHandle: rec.RemoteCartHandle}
	s.publish(ctx, events.CartEvent{
		Type:             events.TypeCartSaved,
		UserID:           userID,
		LineCount:        len(rec.Lines),
		ItemCount:        cart.TotalItemCount(),
		RemoteCartHandle: rec.RemoteCartHandle,
	})
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	userID, err := cleanUserID(userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.record("delete")
	s.publish(ctx, events.CartEvent{Type: events.TypeCartDeleted, UserID: userID})
	return nil
}

// Ready reports whether the record store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// publish never fails the write it follows.
func (s *Service) publish(ctx context.Context, ev events.CartEvent) {
	ev.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish cart event failed",
			slog.String("type", ev.Type), slog.String("user_id", ev.UserID), slog.Any("error", err))
	}
}

func (s *Service) record(op string) {
	if s.metrics != nil {
		s.metrics.RecordRecordWrite(op)
	}
}

func cleanUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) > maxUserIDLen {
		return "", domain.NewCheckoutError(domain.ErrValidationFailed, "user id required")
	}
	return userID, nil
}
