package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money is an amount in a currency, encoded with the amount as a string.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductSnapshot is display data captured when a line is added.
type ProductSnapshot struct {
	ProductID       string           `json:"productId,omitempty"`
	Title           string           `json:"title"`
	Handle          string           `json:"handle,omitempty"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	VariantTitle    string           `json:"variantTitle,omitempty"`
	SelectedOptions []SelectedOption `json:"selectedOptions,omitempty"`
}

type CartLine struct {
	VariantID string          `json:"variantId"`
	Quantity  int             `json:"quantity"`
	UnitPrice Money           `json:"price"`
	Product   ProductSnapshot `json:"product"`
}

// Valid reports whether the line may exist in a cart.
func (l CartLine) Valid() bool {
	return strings.TrimSpace(l.VariantID) != "" && l.Quantity >= 1
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Amount.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	Lines            []CartLine `json:"lines"`
	RemoteCartHandle *string    `json:"remoteCartHandle"`
}

// TotalItemCount sums line quantities.
func (c Cart) TotalItemCount() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice sums line subtotals. The currency is taken from the first line.
func (c Cart) TotalPrice() Money {
	total := Money{Amount: decimal.Zero}
	for i, line := range c.Lines {
		if i == 0 {
			total.CurrencyCode = line.UnitPrice.CurrencyCode
		}
		total.Amount = total.Amount.Add(line.Subtotal())
	}
	return total
}

// RemoteCartRecord is the per-user cart held by the sync backend.
type RemoteCartRecord struct {
	UserID           string     `json:"userId"`
	Lines            []CartLine `json:"lines"`
	RemoteCartHandle *string    `json:"remoteCartHandle"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// LineRequest is the checkout wire shape of a line.
type LineRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutSession is a created hosted-checkout session.
type CheckoutSession struct {
	URL    string `json:"checkoutUrl"`
	CartID string `json:"cartId,omitempty"`
}

// LineRequests projects lines onto their checkout shape.
func LineRequests(lines []CartLine) []LineRequest {
	out := make([]LineRequest, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineRequest{VariantID: line.VariantID, Quantity: line.Quantity})
	}
	return out
}

// NormalizeLines drops invalid lines and folds duplicate variants by accumulating
// quantities, keeping first-seen order.
func NormalizeLines(lines []CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if !line.Valid() {
			continue
		}
		if i, ok := index[line.VariantID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.VariantID] = len(out)
		out = append(out, line)
	}
	return out
}

// CloneLines returns a copy that shares no slices with lines.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return []CartLine{}
	}
	out := make([]CartLine, len(lines))
	for i, line := range lines {
		out[i] = line
		if line.Product.SelectedOptions != nil {
			out[i].Product.SelectedOptions = append([]SelectedOption(nil), line.Product.SelectedOptions...)
		}
	}
	return out
}
