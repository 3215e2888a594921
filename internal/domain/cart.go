package domain

import "github.com/google/uuid"

// CartItem is one product/size line in the shopper's cart. Price is the
// display price captured when the line was added; totals recompute it.
type CartItem struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Image     string    `json:"image"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}
