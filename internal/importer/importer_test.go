package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"somnicart/internal/domain"
	cartrepo "somnicart/internal/repository/cart"
)

type stubRecords struct {
	items []cartrepo.UpsertInput
	err   error
}

func (s *stubRecords) Upsert(_ context.Context, in cartrepo.UpsertInput) (*domain.RemoteCartRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.items = append(s.items, in)
	return &domain.RemoteCartRecord{UserID: in.UserID, Lines: in.Lines, RemoteCartHandle: in.RemoteCartHandle}, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `user_id,items,shopify_cart_id,updated_at
u1,"[{""variantId"":""v1"",""quantity"":1},{""variantId"":""v2"",""quantity"":3},{""variantId"":""v1"",""quantity"":2}]",gid://shopify/Cart/c1,2025-01-01T00:00:00Z
,,,
u2,"[{""variantId"":"""",""quantity"":1},{""variantId"":""v9"",""quantity"":0}]",null,2025-01-02T00:00:00Z`

	repo := &stubRecords{}
	stats, err := NewCSVImporter(strings.NewReader(csvData), repo).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if stats.Imported != 2 || stats.DroppedLines != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(repo.items) != 2 {
		t.Fatalf("expected 2 records saved, got %d", len(repo.items))
	}

	first := repo.items[0]
	if first.UserID != "u1" || len(first.Lines) != 2 || first.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.RemoteCartHandle == nil || *first.RemoteCartHandle != "gid://shopify/Cart/c1" {
		t.Fatalf("handle not preserved: %v", first.RemoteCartHandle)
	}

	second := repo.items[1]
	if len(second.Lines) != 0 || second.RemoteCartHandle != nil {
		t.Fatalf("expected empty record without handle, got %+v", second)
	}
}

func TestCSVImporter_MissingUserColumn(t *testing.T) {
	_, err := NewCSVImporter(strings.NewReader("id,items\n1,[]"), &stubRecords{}).Run(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing user_id column")
	}
}

func TestCSVImporter_BadItems(t *testing.T) {
	csvData := "user_id,items\nu1,not-json\n"
	_, err := NewCSVImporter(strings.NewReader(csvData), &stubRecords{}).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected row 2 decode error, got %v", err)
	}
}

func TestCSVImporter_RowWithoutUser(t *testing.T) {
	csvData := "user_id,items\n,[]\n"
	_, err := NewCSVImporter(strings.NewReader(csvData), &stubRecords{}).Run(context.Background())
	if err == nil {
		t.Fatalf("expected error for row without user id")
	}
}

func TestCSVImporter_WriterError(t *testing.T) {
	boom := errors.New("db down")
	csvData := "user_id,items\nu1,[]\n"
	stats, err := NewCSVImporter(strings.NewReader(csvData), &stubRecords{err: boom}).Run(context.Background())
	if !errors.Is(err, boom) || stats.Imported != 0 {
		t.Fatalf("expected writer error, got %v (%+v)", err, stats)
	}
}
