package app

import (
	"net/http"
	"os"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/flavorzest/flavorzest/internal/adapters/httpserver"
	"github.com/flavorzest/flavorzest/internal/adapters/repo/postgres"
	"github.com/flavorzest/flavorzest/internal/adapters/scraper"
	"github.com/flavorzest/flavorzest/internal/adapters/storage/localfs"
	"github.com/flavorzest/flavorzest/internal/domain"
	"github.com/flavorzest/flavorzest/internal/usecase"
)

type App struct {
	DB          *gorm.DB
	Catalog     *usecase.Catalog
	Cart        *usecase.Cart
	Settings    *usecase.Settings
	Notifier    *usecase.Notifier
	Storage     domain.BlobStore
	OAuthConfig *oauth2.Config

	mediaDir string
}

func NewApp(db *gorm.DB) (*App, error) {
	store := postgres.NewProductStore(db)
	settingsRepo := postgres.NewSettingsRepo(db)
	notifRepo := postgres.NewNotificationRepo(db)

	mediaDir := os.Getenv("MEDIA_DIR")
	if mediaDir == "" {
		mediaDir = "media"
	}
	bucket := os.Getenv("MEDIA_BUCKET")
	if bucket == "" {
		bucket = "products"
	}
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	_ = os.MkdirAll(mediaDir, 0o755)
	storage := localfs.New(mediaDir, bucket, baseURL+"/media")

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	catalog := usecase.NewCatalog(store, storage, bucket)

	a := &App{
		DB:          db,
		Catalog:     catalog,
		Cart:        &usecase.Cart{Catalog: catalog},
		Settings:    &usecase.Settings{Repo: settingsRepo},
		Notifier:    &usecase.Notifier{Repo: notifRepo},
		Storage:     storage,
		OAuthConfig: oauthCfg,
		mediaDir:    mediaDir,
	}
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.Catalog, a.Cart, a.Settings, a.Notifier, a.Storage, scraper.NewImageScraper(), a.OAuthConfig, a.mediaDir)
}

func (a *App) MigrateAndSeed() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.ProductVariant{}, &domain.SiteSettings{}, &domain.Notification{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("ALTER TABLE products ADD COLUMN IF NOT EXISTS is_hidden BOOLEAN DEFAULT false").Error
	_ = a.DB.Exec("UPDATE products SET is_hidden = false WHERE is_hidden IS NULL").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_display_order ON products(display_order)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_is_signature ON products(is_signature)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_product_variants_product_id ON product_variants(product_id)").Error

	var count int64
	if err := a.DB.Model(&domain.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		seedProducts(a.DB)
	}
	return nil
}

func intPtr(v int) *int { return &v }

func seedProducts(db *gorm.DB) {
	prods := []domain.Product{
		{
			ID:          uuid.New(),
			Name:        "The Midnight Oud",
			Price:       38500,
			Description: "A mysterious and captivating fragrance that blends the richness of agarwood with the warmth of spices.",
			Image:       "https://images.unsplash.com/photo-1594035910387-fea4779426e9?q=80&w=800&auto=format&fit=crop",
			Category:    "Unisex",
			Gender:      domain.GenderUnisex,
			Notes:       domain.ScentNotes{Top: "Bergamot, Saffron", Heart: "Rose, Oud Wood", Base: "Amber, Musk, Patchouli"},
			Origin:      "Dubai, UAE",
			IsSignature: true,
			Variants: []domain.ProductVariant{
				{ID: uuid.New(), Size: "5ml", Price: 4500, Quantity: 50},
				{ID: uuid.New(), Size: "10ml", Price: 8500, Quantity: 50},
				{ID: uuid.New(), Size: "100ml", Price: 38500, Quantity: 20},
			},
		},
		{
			ID:           uuid.New(),
			Name:         "Aurum Elixir",
			Price:        42000,
			Description:  "A radiant blend of golden amber and white florals, embodying elegance and grace.",
			Image:        "https://images.unsplash.com/photo-1541643600914-78b084683601?q=80&w=800&auto=format&fit=crop",
			Category:     "Women",
			Gender:       domain.GenderWomen,
			Notes:        domain.ScentNotes{Top: "Pear, Neroli", Heart: "Jasmine, Orange Blossom", Base: "Vanilla, Precious Woods"},
			Origin:       "Grasse, France",
			DisplayOrder: 1,
			Variants: []domain.ProductVariant{
				{ID: uuid.New(), Size: "5ml", Price: 5000, Quantity: 50},
				{ID: uuid.New(), Size: "10ml", Price: 9500, Quantity: 50},
				{ID: uuid.New(), Size: "100ml", Price: 42000, Quantity: 15},
			},
		},
		{
			ID:           uuid.New(),
			Name:         "Noir Intense",
			Price:        34500,
			Description:  "A bold and sophisticated scent for the modern man, featuring dark spices and leather.",
			Image:        "https://images.unsplash.com/photo-1523293188086-b589b9e54020?q=80&w=800&auto=format&fit=crop",
			Category:     "Men",
			Gender:       domain.GenderMen,
			Notes:        domain.ScentNotes{Top: "Black Pepper, Cardamom", Heart: "Leather, Tobacco", Base: "Vetiver, Tonka Bean"},
			Origin:       "London, UK",
			DisplayOrder: 2,
			Variants: []domain.ProductVariant{
				{ID: uuid.New(), Size: "5ml", Price: 4000, Quantity: 50},
				{ID: uuid.New(), Size: "10ml", Price: 7500, Quantity: 50},
				{ID: uuid.New(), Size: "100ml", Price: 34500, Quantity: 25},
			},
		},
		{
			ID:           uuid.New(),
			Name:         "Rose Royale",
			Price:        39900,
			Description:  "A tribute to the queen of flowers, this scent pairs velvety rose with a hint of citrus.",
			Image:        "https://images.unsplash.com/photo-1592945403244-b3fbafd7f539?q=80&w=800&auto=format&fit=crop",
			Category:     "Women",
			Gender:       domain.GenderWomen,
			Notes:        domain.ScentNotes{Top: "Mandarin, Lychee", Heart: "Damask Rose, Peony", Base: "White Musk, Cedar"},
			Origin:       "Grasse, France",
			DisplayOrder: 3,
			Discount:     intPtr(10),
			Variants: []domain.ProductVariant{
				{ID: uuid.New(), Size: "5ml", Price: 4800, Quantity: 40},
				{ID: uuid.New(), Size: "10ml", Price: 9000, Quantity: 40},
				{ID: uuid.New(), Size: "100ml", Price: 39900, Quantity: 18},
			},
		},
	}
	for i := range prods {
		for j := range prods[i].Variants {
			prods[i].Variants[j].ProductID = prods[i].ID
		}
		db.Create(&prods[i])
	}
}
