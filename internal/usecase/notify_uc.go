package usecase

import (
	"context"

	"github.com/flavorzest/flavorzest/internal/domain"
)

// Notifier maintains the admin's low-stock alert feed. Alerts are recomputed
// from the full product list after catalog changes; the deterministic alert
// id (product + size) keeps recomputation from duplicating feed entries.
type Notifier struct {
	Repo domain.NotificationRepo
}

// Recompute derives low-stock alerts from products and stores the ones not
// seen before. Existing alerts keep their read state.
func (n *Notifier) Recompute(ctx context.Context, products []domain.Product) error {
	alerts := domain.LowStockAlerts(products)
	if len(alerts) == 0 {
		return nil
	}
	if err := n.Repo.SaveNew(ctx, alerts); err != nil {
		return &domain.StoreError{Op: "save notifications", Err: err}
	}
	return nil
}

// List returns the feed newest-first plus the unread count.
func (n *Notifier) List(ctx context.Context) ([]domain.Notification, int, error) {
	ns, err := n.Repo.List(ctx)
	if err != nil {
		return nil, 0, &domain.StoreError{Op: "select notifications", Err: err}
	}
	unread := 0
	for _, x := range ns {
		if !x.Read {
			unread++
		}
	}
	return ns, unread, nil
}

func (n *Notifier) MarkRead(ctx context.Context, id string) error {
	if err := n.Repo.MarkRead(ctx, id); err != nil {
		return &domain.StoreError{Op: "mark notification read", Err: err}
	}
	return nil
}

func (n *Notifier) Clear(ctx context.Context) error {
	if err := n.Repo.Clear(ctx); err != nil {
		return &domain.StoreError{Op: "clear notifications", Err: err}
	}
	return nil
}
