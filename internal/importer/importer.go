package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"somnicart/internal/domain"
	cartrepo "somnicart/internal/repository/cart"
)

type RecordWriter interface {
	Upsert(ctx context.Context, in cartrepo.UpsertInput) (*domain.RemoteCartRecord, error)
}

// CSVImporter loads cart records from a CSV export of the legacy carts table
// (user_id, items, shopify_cart_id) and upserts them.
type CSVImporter struct {
	reader  *csv.Reader
	records RecordWriter
}

// Stats reports what a run did.
type Stats struct {
	Imported     int
	DroppedLines int
}

func NewCSVImporter(r io.Reader, records RecordWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // exports may carry extra trailing columns
	csvr.LazyQuotes = true
	return &CSVImporter{reader: csvr, records: records}
}

type csvRow struct {
	line   int
	userID string
	items  string
	handle string
}

// Run upserts one record per row. The first malformed row stops the run.
func (i *CSVImporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	headers, err := i.reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["user_id"]; !ok {
		return stats, errors.New("missing user_id column")
	}

	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", line, err)
		}

		row := parseRow(record, index, line)
		if row == nil {
			continue
		}
		dropped, err := i.save(ctx, row)
		if err != nil {
			return stats, err
		}
		stats.Imported++
		stats.DroppedLines += dropped
	}

	return stats, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) (int, error) {
	if row.userID == "" {
		return 0, fmt.Errorf("row %d: user_id required", row.line)
	}

	var lines []domain.CartLine
	if row.items != "" {
		if err := json.Unmarshal([]byte(row.items), &lines); err != nil {
			return 0, fmt.Errorf("row %d: decode items for %q: %w", row.line, row.userID, err)
		}
	}
	clean := domain.NormalizeLines(lines)
	dropped := 0
	for _, l := range lines {
		if !l.Valid() {
			dropped++
		}
	}

	var handle *string
	if row.handle != "" {
		h := row.handle
		handle = &h
	}

	if _, err := i.records.Upsert(ctx, cartrepo.UpsertInput{
		UserID:           row.userID,
		Lines:            clean,
		RemoteCartHandle: handle,
	}); err != nil {
		return 0, fmt.Errorf("upsert cart %q: %w", row.userID, err)
	}
	return dropped, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

// parseRow returns nil for blank rows.
func parseRow(record []string, index map[string]int, line int) *csvRow {
	row := &csvRow{
		line:   line,
		userID: pick(record, index, "user_id"),
		items:  pick(record, index, "items"),
		handle: pick(record, index, "shopify_cart_id"),
	}
	if row.userID == "" && row.items == "" && row.handle == "" {
		return nil
	}
	if strings.EqualFold(row.handle, "null") {
		row.handle = ""
	}
	return row
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
