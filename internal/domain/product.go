package domain

// Product is a catalog entry as returned by the commerce backend.
type Product struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	Description string           `json:"description,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	Variants    []ProductVariant `json:"variants"`
}

type ProductVariant struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Price            Money            `json:"price"`
	AvailableForSale bool             `json:"availableForSale"`
	SelectedOptions  []SelectedOption `json:"selectedOptions,omitempty"`
}

// Variant finds a variant by id; an empty id selects the first variant.
func (p Product) Variant(id string) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if id == "" || v.ID == id {
			return v, true
		}
	}
	return ProductVariant{}, false
}

// LineFor builds a cart line for variant with the product snapshot captured now.
func (p Product) LineFor(v ProductVariant, quantity int) CartLine {
	return CartLine{
		VariantID: v.ID,
		Quantity:  quantity,
		UnitPrice: v.Price,
		Product: ProductSnapshot{
			ProductID:       p.ID,
			Title:           p.Title,
			Handle:          p.Handle,
			ImageURL:        p.ImageURL,
			VariantTitle:    v.Title,
			SelectedOptions: v.SelectedOptions,
		},
	}
}
