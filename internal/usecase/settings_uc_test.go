package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/flavorzest/flavorzest/internal/domain"
)

type fakeSettingsRepo struct {
	row       *domain.SiteSettings
	getErr    error
	updateErr error
	updated   map[string]any
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (*domain.SiteSettings, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.row == nil {
		return nil, domain.ErrNotFound
	}
	cp := *f.row
	return &cp, nil
}

func (f *fakeSettingsRepo) Update(ctx context.Context, fields map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = fields
	return nil
}

func TestSettingsGetDefaults(t *testing.T) {
	s := &Settings{Repo: &fakeSettingsRepo{}}
	cfg, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HeroImage != domain.DefaultHeroImage {
		t.Fatalf("expected default hero image, got %q", cfg.HeroImage)
	}

	// a saved row with an empty image also falls back
	s = &Settings{Repo: &fakeSettingsRepo{row: &domain.SiteSettings{ID: 1, HeroImage: "  "}}}
	cfg, err = s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HeroImage != domain.DefaultHeroImage {
		t.Fatalf("expected default hero image for blank row, got %q", cfg.HeroImage)
	}
}

func TestSettingsGetStoreFailure(t *testing.T) {
	s := &Settings{Repo: &fakeSettingsRepo{getErr: errors.New("down")}}
	if _, err := s.Get(context.Background()); !domain.IsStoreError(err) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSettingsUpdate(t *testing.T) {
	repo := &fakeSettingsRepo{}
	s := &Settings{Repo: repo}

	img := "https://cdn.example.com/hero.jpg"
	if err := s.Update(context.Background(), SettingsPatch{HeroImage: &img}); err != nil {
		t.Fatal(err)
	}
	if repo.updated["hero_image"] != img {
		t.Fatalf("hero_image not persisted: %v", repo.updated)
	}

	blank := "   "
	var ve *domain.ValidationError
	if err := s.Update(context.Background(), SettingsPatch{HeroImage: &blank}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// empty patch is a no-op, nothing reaches the repo
	repo.updated = nil
	if err := s.Update(context.Background(), SettingsPatch{}); err != nil {
		t.Fatal(err)
	}
	if repo.updated != nil {
		t.Fatal("empty patch must not call the repo")
	}
}

type fakeNotificationRepo struct {
	rows    map[string]domain.Notification
	order   []string
	listErr error
	saveErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: map[string]domain.Notification{}}
}

func (f *fakeNotificationRepo) List(ctx context.Context) ([]domain.Notification, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Notification, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.rows[id])
	}
	return out, nil
}

func (f *fakeNotificationRepo) SaveNew(ctx context.Context, ns []domain.Notification) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	for _, n := range ns {
		if _, ok := f.rows[n.ID]; ok {
			continue
		}
		f.rows[n.ID] = n
		f.order = append(f.order, n.ID)
	}
	return nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id string) error {
	n, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Read = true
	f.rows[id] = n
	return nil
}

func (f *fakeNotificationRepo) Clear(ctx context.Context) error {
	f.rows = map[string]domain.Notification{}
	f.order = nil
	return nil
}

func TestNotifierRecomputeDedups(t *testing.T) {
	repo := newFakeNotificationRepo()
	n := &Notifier{Repo: repo}
	ctx := context.Background()

	products := []domain.Product{{
		Name: "Aurum Elixir",
		Variants: []domain.ProductVariant{
			{Size: "5ml", Quantity: 1},
			{Size: "100ml", Quantity: 20},
		},
	}}
	if err := n.Recompute(ctx, products); err != nil {
		t.Fatal(err)
	}
	feed, unread, err := n.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 || unread != 1 {
		t.Fatalf("feed %d unread %d, want 1/1", len(feed), unread)
	}

	// reading the alert then recomputing must not resurrect or duplicate it
	if err := n.MarkRead(ctx, feed[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := n.Recompute(ctx, products); err != nil {
		t.Fatal(err)
	}
	feed, unread, err = n.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 {
		t.Fatalf("recompute duplicated the alert: %d entries", len(feed))
	}
	if unread != 0 {
		t.Fatalf("recompute reset the read flag: unread = %d", unread)
	}
}

func TestNotifierClear(t *testing.T) {
	repo := newFakeNotificationRepo()
	n := &Notifier{Repo: repo}
	ctx := context.Background()

	if err := n.Recompute(ctx, []domain.Product{{
		Name:     "X",
		Variants: []domain.ProductVariant{{Size: "5ml", Quantity: 0}},
	}}); err != nil {
		t.Fatal(err)
	}
	if err := n.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	feed, _, err := n.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 0 {
		t.Fatalf("expected empty feed, got %d", len(feed))
	}
}
