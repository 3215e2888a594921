package usecase

import (
	"github.com/google/uuid"

	"github.com/flavorzest/flavorzest/internal/domain"
)

// Cart applies the inventory rules to a shopper's cart lines. The lines
// themselves live in an HMAC-signed cookie owned by the HTTP layer; Cart is
// pure over them plus the catalog snapshot, so stock checks always see the
// quantities the catalog currently reports.
type Cart struct {
	Catalog *Catalog
}

// Add puts one unit of (productID, size) in the cart, merging into an
// existing line. Rejects with ErrOutOfStock when the variant has no stock
// left for another unit.
func (c *Cart) Add(items []domain.CartItem, productID uuid.UUID, size string) ([]domain.CartItem, error) {
	p, err := c.Catalog.Get(productID)
	if err != nil {
		return items, err
	}
	stock := p.Stock(size)
	for i := range items {
		if items[i].ProductID == productID && domain.NormalizeSize(items[i].Size) == domain.NormalizeSize(size) {
			if items[i].Quantity >= stock {
				return items, domain.ErrOutOfStock
			}
			items[i].Quantity++
			return items, nil
		}
	}
	if stock < 1 {
		return items, domain.ErrOutOfStock
	}
	return append(items, domain.CartItem{
		ProductID: productID,
		Name:      p.Name,
		Price:     p.PriceFor(size, c.Catalog.Now()),
		Image:     p.Image,
		Size:      size,
		Quantity:  1,
	}), nil
}

// UpdateQuantity sets a line's quantity, clamped by current stock.
func (c *Cart) UpdateQuantity(items []domain.CartItem, productID uuid.UUID, size string, qty int) ([]domain.CartItem, error) {
	if qty < 1 {
		return items, &domain.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	p, err := c.Catalog.Get(productID)
	if err != nil {
		return items, err
	}
	if qty > p.Stock(size) {
		return items, domain.ErrOutOfStock
	}
	for i := range items {
		if items[i].ProductID == productID && domain.NormalizeSize(items[i].Size) == domain.NormalizeSize(size) {
			items[i].Quantity = qty
			return items, nil
		}
	}
	return items, domain.ErrNotFound
}

// Remove drops the (productID, size) line.
func (c *Cart) Remove(items []domain.CartItem, productID uuid.UUID, size string) []domain.CartItem {
	out := items[:0]
	for _, it := range items {
		if it.ProductID == productID && domain.NormalizeSize(it.Size) == domain.NormalizeSize(size) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func CartTotal(items []domain.CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

func CartCount(items []domain.CartItem) int {
	var n int
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
