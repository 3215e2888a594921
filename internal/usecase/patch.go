package usecase

import (
	"strings"
	"time"

	"github.com/flavorzest/flavorzest/internal/domain"
)

// ProductPatch is a partial update. Nil pointers mean "leave as is"; the
// Clear flags null out the two optional columns, which a nil pointer cannot
// express. A non-nil Variants slice (even empty) replaces all variant rows.
type ProductPatch struct {
	Name             *string
	Price            *float64
	Description      *string
	Image            *string
	Category         *string
	Gender           *domain.Gender
	Notes            *domain.ScentNotes
	Origin           *string
	IsSignature      *bool
	IsHidden         *bool
	DisplayOrder     *int
	Discount         *int
	ClearDiscount    bool
	DiscountEndDate  *time.Time
	ClearDiscountEnd bool
	Variants         []domain.ProductVariant
}

func (p ProductPatch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &domain.ValidationError{Field: "name", Reason: "required"}
	}
	if p.Discount != nil && (*p.Discount < 0 || *p.Discount > 100) {
		return &domain.ValidationError{Field: "discount", Reason: "must be 0-100"}
	}
	for _, v := range p.Variants {
		if v.Quantity < 0 {
			return &domain.ValidationError{Field: "variants", Reason: "quantity must not be negative"}
		}
	}
	return nil
}

// fields builds the column map for the store. Variants are handled
// separately by the catalog.
func (p ProductPatch) fields() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Price != nil {
		m["price"] = *p.Price
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Image != nil {
		m["image"] = *p.Image
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Gender != nil {
		m["gender"] = *p.Gender
	}
	if p.Notes != nil {
		m["notes_top"] = p.Notes.Top
		m["notes_heart"] = p.Notes.Heart
		m["notes_base"] = p.Notes.Base
	}
	if p.Origin != nil {
		m["origin"] = *p.Origin
	}
	if p.IsSignature != nil {
		m["is_signature"] = *p.IsSignature
	}
	if p.IsHidden != nil {
		m["is_hidden"] = *p.IsHidden
	}
	if p.DisplayOrder != nil {
		m["display_order"] = *p.DisplayOrder
	}
	if p.Discount != nil {
		m["discount"] = *p.Discount
	} else if p.ClearDiscount {
		m["discount"] = nil
	}
	if p.DiscountEndDate != nil {
		m["discount_end_date"] = *p.DiscountEndDate
	} else if p.ClearDiscountEnd {
		m["discount_end_date"] = nil
	}
	return m
}
