package product

import (
	"context"
	"errors"
	"strings"

	"somnicart/internal/domain"
)

const (
	defaultFirst = 20
	maxFirst     = 100
)

type catalog interface {
	Products(ctx context.Context, first int, query string) ([]domain.Product, error)
	ProductByHandle(ctx context.Context, handle string) (*domain.Product, error)
}

type Service struct {
	catalog catalog
}

func New(c catalog) *Service {
	return &Service{catalog: c}
}

// List returns up to first products matching query. first is clamped to
// [1, 100] and defaults to 20.
func (s *Service) List(ctx context.Context, first int, query string) ([]domain.Product, error) {
	switch {
	case first <= 0:
		first = defaultFirst
	case first > maxFirst:
		first = maxFirst
	}
	return s.catalog.Products(ctx, first, strings.TrimSpace(query))
}

func (s *Service) Get(ctx context.Context, handle string) (*domain.Product, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, errors.New("handle required")
	}
	return s.catalog.ProductByHandle(ctx, handle)
}
