package storefront

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"somnicart/internal/domain"
)

const productFields = `
  id
  title
  handle
  description
  images(first: 1) { edges { node { url } } }
  variants(first: 20) {
    edges {
      node {
        id
        title
        availableForSale
        price { amount currencyCode }
        selectedOptions { name value }
      }
    }
  }
`

const productsQuery = `query products($first: Int!, $query: String) {
  products(first: $first, query: $query) { edges { node {` + productFields + `} } }
}`

const productByHandleQuery = `query productByHandle($handle: String!) {
  productByHandle(handle: $handle) {` + productFields + `}
}`

const cartCreateMutation = `mutation cartCreate($input: CartInput!) {
  cartCreate(input: $input) {
    cart { id checkoutUrl }
    userErrors { field message }
  }
}`

type moneyNode struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type productNode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	Description string `json:"description"`
	Images      struct {
		Edges []struct {
			Node struct {
				URL string `json:"url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID               string                  `json:"id"`
				Title            string                  `json:"title"`
				AvailableForSale bool                    `json:"availableForSale"`
				Price            moneyNode               `json:"price"`
				SelectedOptions  []domain.SelectedOption `json:"selectedOptions"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (n productNode) toDomain() domain.Product {
	p := domain.Product{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Description: n.Description,
		Variants:    make([]domain.ProductVariant, 0, len(n.Variants.Edges)),
	}
	if len(n.Images.Edges) > 0 {
		p.ImageURL = n.Images.Edges[0].Node.URL
	}
	for _, e := range n.Variants.Edges {
		amount, err := decimal.NewFromString(e.Node.Price.Amount)
		if err != nil {
			amount = decimal.Zero
		}
		p.Variants = append(p.Variants, domain.ProductVariant{
			ID:               e.Node.ID,
			Title:            e.Node.Title,
			Price:            domain.Money{Amount: amount, CurrencyCode: e.Node.Price.CurrencyCode},
			AvailableForSale: e.Node.AvailableForSale,
			SelectedOptions:  e.Node.SelectedOptions,
		})
	}
	return p
}

// Products lists up to first products, optionally filtered by a search query.
func (c *Client) Products(ctx context.Context, first int, query string) ([]domain.Product, error) {
	vars := map[string]any{"first": first}
	if strings.TrimSpace(query) != "" {
		vars["query"] = query
	}
	var data struct {
		Products struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := c.do(ctx, productsQuery, vars, &data); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(data.Products.Edges))
	for _, e := range data.Products.Edges {
		out = append(out, e.Node.toDomain())
	}
	return out, nil
}

// ProductByHandle returns domain.ErrNotFound when no product has handle.
func (c *Client) ProductByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	var data struct {
		ProductByHandle *productNode `json:"productByHandle"`
	}
	if err := c.do(ctx, productByHandleQuery, map[string]any{"handle": handle}, &data); err != nil {
		return nil, err
	}
	if data.ProductByHandle == nil {
		return nil, domain.ErrNotFound
	}
	p := data.ProductByHandle.toDomain()
	return &p, nil
}

// UserError is a line-level rejection reported by cartCreate.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// CartCreateResult is the raw outcome of the cartCreate mutation.
type CartCreateResult struct {
	CartID      string
	CheckoutURL string
	UserErrors  []UserError
}

// CartCreate creates a commerce-backend cart for lines.
func (c *Client) CartCreate(ctx context.Context, lines []domain.LineRequest) (CartCreateResult, error) {
	input := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		input = append(input, map[string]any{"quantity": l.Quantity, "merchandiseId": l.VariantID})
	}
	var data struct {
		CartCreate *struct {
			Cart *struct {
				ID          string `json:"id"`
				CheckoutURL string `json:"checkoutUrl"`
			} `json:"cart"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"cartCreate"`
	}
	vars := map[string]any{"input": map[string]any{"lines": input}}
	if err := c.do(ctx, cartCreateMutation, vars, &data); err != nil {
		return CartCreateResult{}, err
	}
	if data.CartCreate == nil {
		return CartCreateResult{}, domain.NewCheckoutError(domain.ErrIntegration, "Failed to create checkout")
	}
	res := CartCreateResult{UserErrors: data.CartCreate.UserErrors}
	if data.CartCreate.Cart != nil {
		res.CartID = data.CartCreate.Cart.ID
		res.CheckoutURL = data.CartCreate.Cart.CheckoutURL
	}
	return res, nil
}
