package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/flavorzest/flavorzest/internal/domain"
)

type SettingsRepo struct{ db *gorm.DB }

func NewSettingsRepo(db *gorm.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) Get(ctx context.Context) (*domain.SiteSettings, error) {
	var s domain.SiteSettings
	if err := r.db.WithContext(ctx).First(&s, "id = ?", 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepo) Update(ctx context.Context, fields map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.SiteSettings
		err := tx.First(&existing, "id = ?", 1).Error
		if err == nil {
			return tx.Model(&existing).Updates(fields).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row := domain.SiteSettings{ID: 1, HeroImage: domain.DefaultHeroImage}
			if v, ok := fields["hero_image"].(string); ok {
				row.HeroImage = v
			}
			return tx.Create(&row).Error
		}
		return err
	})
}
