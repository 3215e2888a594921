package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flavorzest/flavorzest/internal/domain"
)

type NotificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) List(ctx context.Context) ([]domain.Notification, error) {
	var list []domain.Notification
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SaveNew inserts only the alerts whose id has not been seen; existing rows
// keep their read state untouched.
func (r *NotificationRepo) SaveNew(ctx context.Context, ns []domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	for i := range ns {
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = time.Now()
		}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ns).Error
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Notification{}).Error
}
