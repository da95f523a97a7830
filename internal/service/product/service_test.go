package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somnicart/internal/domain"
)

type stubCatalog struct {
	first   int
	query   string
	handle  string
	product *domain.Product
	err     error
}

func (s *stubCatalog) Products(_ context.Context, first int, query string) ([]domain.Product, error) {
	s.first, s.query = first, query
	return []domain.Product{{ID: "p1"}}, s.err
}

func (s *stubCatalog) ProductByHandle(_ context.Context, handle string) (*domain.Product, error) {
	s.handle = handle
	return s.product, s.err
}

func TestListClampsFirst(t *testing.T) {
	cat := &stubCatalog{}
	svc := New(cat)

	_, err := svc.List(context.Background(), 0, "  pillow ")
	require.NoError(t, err)
	assert.Equal(t, defaultFirst, cat.first)
	assert.Equal(t, "pillow", cat.query)

	_, err = svc.List(context.Background(), 500, "")
	require.NoError(t, err)
	assert.Equal(t, maxFirst, cat.first)
}

func TestGetRequiresHandle(t *testing.T) {
	cat := &stubCatalog{}
	_, err := New(cat).Get(context.Background(), " ")
	assert.Error(t, err)
	assert.Empty(t, cat.handle)
}

func TestGetPassesNotFound(t *testing.T) {
	cat := &stubCatalog{err: domain.ErrNotFound}
	_, err := New(cat).Get(context.Background(), "mattress")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "mattress", cat.handle)
}
