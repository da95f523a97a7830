package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"somnicart/internal/domain"
	"somnicart/internal/logger"
	"somnicart/internal/storefront"
)

type cartCreator interface {
	CartCreate(ctx context.Context, lines []domain.LineRequest) (storefront.CartCreateResult, error)
}

type outcomeRecorder interface {
	RecordCheckout(outcome string)
}

// Service creates hosted-checkout sessions on the commerce backend.
type Service struct {
	storefront cartCreator
	metrics    outcomeRecorder
	logger     *slog.Logger
	channel    string
}

func New(sf cartCreator, metrics outcomeRecorder, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{storefront: sf, metrics: metrics, logger: log, channel: "online_store"}
}

// CreateCheckoutSession validates lines locally, creates a backend cart and
// returns its checkout URL with the sales channel parameter set.
func (s *Service) CreateCheckoutSession(ctx context.Context, lines []domain.LineRequest) (domain.CheckoutSession, error) {
	session, err := s.create(ctx, lines)
	s.record(err)
	return session, err
}

func (s *Service) create(ctx context.Context, lines []domain.LineRequest) (domain.CheckoutSession, error) {
	if len(lines) == 0 {
		return domain.CheckoutSession{}, domain.NewCheckoutError(domain.ErrValidationFailed, "Items array is required")
	}
	for _, l := range lines {
		if strings.TrimSpace(l.VariantID) == "" || l.Quantity <= 0 {
			return domain.CheckoutSession{}, domain.NewCheckoutError(domain.ErrValidationFailed,
				fmt.Sprintf("invalid line %q with quantity %d", l.VariantID, l.Quantity))
		}
	}

	res, err := s.storefront.CartCreate(ctx, lines)
	if err != nil {
		s.logger.Error("create checkout failed", slog.String("code", domain.ErrorCode(err)), slog.Any("error", err))
		return domain.CheckoutSession{}, err
	}
	if len(res.UserErrors) > 0 {
		msgs := make([]string, 0, len(res.UserErrors))
		for _, ue := range res.UserErrors {
			msgs = append(msgs, ue.Message)
		}
		return domain.CheckoutSession{}, domain.NewCheckoutError(domain.ErrValidationFailed, strings.Join(msgs, ", "))
	}
	if strings.TrimSpace(res.CheckoutURL) == "" {
		return domain.CheckoutSession{}, domain.NewCheckoutError(domain.ErrIntegration, "No checkout URL returned from Shopify")
	}
	checkoutURL, err := withChannel(res.CheckoutURL, s.channel)
	if err != nil {
		return domain.CheckoutSession{}, domain.NewCheckoutError(domain.ErrIntegration, "Invalid checkout URL returned from Shopify")
	}
	return domain.CheckoutSession{URL: checkoutURL, CartID: res.CartID}, nil
}

func (s *Service) record(err error) {
	if s.metrics == nil {
		return
	}
	if err == nil {
		s.metrics.RecordCheckout("ok")
		return
	}
	s.metrics.RecordCheckout(domain.ErrorCode(err))
}

func withChannel(raw, channel string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("checkout url is not absolute")
	}
	q := u.Query()
	q.Set("channel", channel)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
