package domain

import "time"

// DefaultHeroImage is shown until the admin picks one.
const DefaultHeroImage = "https://images.unsplash.com/photo-1615634260167-c8cdede054de?q=80&w=2560&auto=format&fit=crop"

// SiteSettings is a single-row table; ID is always 1.
type SiteSettings struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	HeroImage string    `gorm:"size:512" json:"heroImage"`
	UpdatedAt time.Time `json:"-"`
}
