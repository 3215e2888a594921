package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/flavorzest/flavorzest/internal/domain"
)

type Settings struct {
	Repo domain.SettingsRepo
}

// Get returns the site settings, falling back to defaults when nothing has
// been saved yet.
func (s *Settings) Get(ctx context.Context) (*domain.SiteSettings, error) {
	cfg, err := s.Repo.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.SiteSettings{ID: 1, HeroImage: domain.DefaultHeroImage}, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "select settings", Err: err}
	}
	if strings.TrimSpace(cfg.HeroImage) == "" {
		cfg.HeroImage = domain.DefaultHeroImage
	}
	return cfg, nil
}

type SettingsPatch struct {
	HeroImage *string `json:"heroImage"`
}

func (s *Settings) Update(ctx context.Context, patch SettingsPatch) error {
	fields := map[string]any{}
	if patch.HeroImage != nil {
		if strings.TrimSpace(*patch.HeroImage) == "" {
			return &domain.ValidationError{Field: "heroImage", Reason: "required"}
		}
		fields["hero_image"] = *patch.HeroImage
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.Repo.Update(ctx, fields); err != nil {
		return &domain.StoreError{Op: "update settings", Err: err}
	}
	return nil
}
