package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationLowStock NotificationType = "low_stock"
	NotificationOrder    NotificationType = "order"
)

// LowStockThreshold is the quantity below which a variant raises an alert.
const LowStockThreshold = 5

// Notification uses a deterministic ID as dedup key so recomputing alerts
// from the product list never duplicates an existing one.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:160" json:"id"`
	Type      NotificationType `gorm:"type:varchar(20);index" json:"type"`
	Message   string           `gorm:"size:512" json:"message"`
	Read      bool             `gorm:"default:false" json:"read"`
	CreatedAt time.Time        `json:"timestamp"`
}

// LowStockKey dedups low-stock alerts per product and size.
func LowStockKey(productID uuid.UUID, size string) string {
	return fmt.Sprintf("stock-%s-%s", productID, NormalizeSize(size))
}

// LowStockAlerts derives one alert per variant under the threshold.
func LowStockAlerts(products []Product) []Notification {
	var out []Notification
	for _, p := range products {
		for _, v := range p.Variants {
			if v.Quantity >= LowStockThreshold {
				continue
			}
			out = append(out, Notification{
				ID:      LowStockKey(p.ID, v.Size),
				Type:    NotificationLowStock,
				Message: fmt.Sprintf("Low stock alert: %s (%s) has %d remaining.", p.Name, v.Size, v.Quantity),
			})
		}
	}
	return out
}
