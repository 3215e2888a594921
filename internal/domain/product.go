package domain

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMen    Gender = "Men"
	GenderWomen  Gender = "Women"
	GenderUnisex Gender = "Unisex"
)

// ScentNotes is the fragrance pyramid shown on the detail page.
type ScentNotes struct {
	Top   string `gorm:"size:255" json:"top"`
	Heart string `gorm:"size:255" json:"heart"`
	Base  string `gorm:"size:255" json:"base"`
}

type Product struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string           `gorm:"size:180;not null" json:"name"`
	Price           float64          `gorm:"type:decimal(12,2)" json:"price"`
	Description     string           `gorm:"type:text" json:"description"`
	Image           string           `gorm:"size:255" json:"image"`
	Category        string           `gorm:"size:100" json:"category"`
	Gender          Gender           `gorm:"type:varchar(10);index" json:"gender"`
	Notes           ScentNotes       `gorm:"embedded;embeddedPrefix:notes_" json:"notes"`
	Origin          string           `gorm:"size:140" json:"origin"`
	IsSignature     bool             `gorm:"default:false;index" json:"isSignature"`
	DisplayOrder    int              `gorm:"column:display_order;index" json:"order"`
	IsHidden        bool             `gorm:"default:false" json:"isHidden"`
	Discount        *int             `json:"discount,omitempty"`
	DiscountEndDate *time.Time       `gorm:"column:discount_end_date" json:"discountEndDate,omitempty"`
	Variants        []ProductVariant `gorm:"constraint:OnDelete:CASCADE" json:"variants"`
	CreatedAt       time.Time        `json:"-"`
	UpdatedAt       time.Time        `json:"-"`
}

type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"-"`
	Size      string    `gorm:"size:40" json:"size"`
	Price     float64   `gorm:"type:decimal(12,2)" json:"price"`
	Quantity  int       `gorm:"type:int;default:0" json:"quantity"`
	CreatedAt time.Time `json:"-"`
}

// ReferenceSize is the bottle size whose variant price is the canonical
// displayed price when present.
const ReferenceSize = "100ml"

// NormalizeSize lowercases a size label and strips all whitespace, so
// "100 ML" and "100ml" compare equal.
func NormalizeSize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Variant returns the variant whose size matches label after normalization.
func (p *Product) Variant(size string) *ProductVariant {
	want := NormalizeSize(size)
	for i := range p.Variants {
		if NormalizeSize(p.Variants[i].Size) == want {
			return &p.Variants[i]
		}
	}
	return nil
}

// Stock reports the inventory count for a size, zero when the size is unknown.
func (p *Product) Stock(size string) int {
	if v := p.Variant(size); v != nil {
		return v.Quantity
	}
	return 0
}

// ListPrice is the undiscounted displayed price: the reference-size variant
// if present, otherwise the cheapest variant, otherwise the base price.
func (p *Product) ListPrice() float64 {
	if len(p.Variants) == 0 {
		return p.Price
	}
	min := p.Variants[0].Price
	for _, v := range p.Variants {
		if NormalizeSize(v.Size) == ReferenceSize {
			return v.Price
		}
		if v.Price < min {
			min = v.Price
		}
	}
	return min
}

// DiscountActive reports whether the discount applies at the given instant.
// A discount with no end date never expires.
func (p *Product) DiscountActive(now time.Time) bool {
	if p.Discount == nil || *p.Discount <= 0 {
		return false
	}
	if p.DiscountEndDate == nil {
		return true
	}
	return p.DiscountEndDate.After(now)
}

// ApplyDiscount returns floor(price*(100-pct)/100).
func ApplyDiscount(price float64, pct int) float64 {
	return math.Floor(price * float64(100-pct) / 100)
}

// DisplayPrice is the price every view must show: the list price with the
// discount applied when it is active at evaluation time. Never stored.
func (p *Product) DisplayPrice(now time.Time) float64 {
	price := p.ListPrice()
	if p.DiscountActive(now) {
		return ApplyDiscount(price, *p.Discount)
	}
	return price
}

// PriceFor prices one chosen size, falling back to the base price when the
// size is unknown, with the active discount applied. Same discount rule as
// DisplayPrice so grid, detail and cart never disagree.
func (p *Product) PriceFor(size string, now time.Time) float64 {
	price := p.Price
	if v := p.Variant(size); v != nil {
		price = v.Price
	}
	if p.DiscountActive(now) {
		return ApplyDiscount(price, *p.Discount)
	}
	return price
}

// SortByDisplayOrder sorts ascending by display order in place. The sort is
// stable: records with equal order keep the sequence the store returned them
// in.
func SortByDisplayOrder(list []Product) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].DisplayOrder < list[j].DisplayOrder
	})
}

// ReorderProducts rewrites each product's display order to its 0-based
// position in seq. Pure: it returns the renumbered sequence plus the subset
// whose order actually changed, and touches nothing else.
func ReorderProducts(seq []Product) (ordered, changed []Product) {
	ordered = make([]Product, len(seq))
	for i, p := range seq {
		if p.DisplayOrder != i {
			p.DisplayOrder = i
			changed = append(changed, p)
		}
		ordered[i] = p
	}
	return ordered, changed
}
