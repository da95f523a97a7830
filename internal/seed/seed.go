package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"somnicart/internal/domain"
	cartrepo "somnicart/internal/repository/cart"
)

type RecordWriter interface {
	Upsert(ctx context.Context, in cartrepo.UpsertInput) (*domain.RemoteCartRecord, error)
}

type lineSeed struct {
	VariantID string
	Quantity  int
	Price     string
	Title     string
	Handle    string
}

type recordSeed struct {
	UserID string
	Lines  []lineSeed
	Handle string
}

// Records are the demo carts written by Apply.
var Records = []recordSeed{
	{
		UserID: "demo-user-1",
		Lines: []lineSeed{
			{VariantID: "gid://shopify/ProductVariant/1001", Quantity: 1, Price: "1049.00", Title: "Somni Hybrid Mattress", Handle: "somni-hybrid-mattress"},
			{VariantID: "gid://shopify/ProductVariant/2001", Quantity: 3, Price: "79.00", Title: "Cooling Pillow", Handle: "cooling-pillow"},
		},
	},
	{
		UserID: "demo-user-2",
		Lines: []lineSeed{
			{VariantID: "gid://shopify/ProductVariant/3001", Quantity: 2, Price: "149.50", Title: "Bamboo Sheet Set", Handle: "bamboo-sheet-set"},
		},
		Handle: "gid://shopify/Cart/demo-2",
	},
	{UserID: "demo-user-empty"},
}

// Apply writes the demo cart records. It is idempotent via upsert.
func Apply(ctx context.Context, records RecordWriter) error {
	for _, r := range Records {
		lines := make([]domain.CartLine, 0, len(r.Lines))
		for _, l := range r.Lines {
			price, err := decimal.NewFromString(l.Price)
			if err != nil {
				return fmt.Errorf("price for %s: %w", l.VariantID, err)
			}
			lines = append(lines, domain.CartLine{
				VariantID: l.VariantID,
				Quantity:  l.Quantity,
				UnitPrice: domain.Money{Amount: price, CurrencyCode: "USD"},
				Product:   domain.ProductSnapshot{Title: l.Title, Handle: l.Handle},
			})
		}
		var handle *string
		if r.Handle != "" {
			h := r.Handle
			handle = &h
		}
		if _, err := records.Upsert(ctx, cartrepo.UpsertInput{UserID: r.UserID, Lines: lines, RemoteCartHandle: handle}); err != nil {
			return fmt.Errorf("upsert cart %s: %w", r.UserID, err)
		}
	}
	return nil
}
