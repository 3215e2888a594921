package domain

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ProductStore is the persistence service as the catalog sees it: plain
// request/response calls, each treated as atomic on its own. Multi-row
// operations composed from these calls are not transactional.
type ProductStore interface {
	SelectAllProducts(ctx context.Context, withVariants bool) ([]Product, error)
	InsertProduct(ctx context.Context, p *Product) (uuid.UUID, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	InsertVariants(ctx context.Context, productID uuid.UUID, rows []ProductVariant) error
	DeleteVariants(ctx context.Context, productID uuid.UUID) error
	// ClearSignature unsets is_signature on every row that has it set.
	ClearSignature(ctx context.Context) error
}

// BlobStore holds product imagery.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (publicURL string, err error)
	Delete(ctx context.Context, objectKey string) error
}

// ObjectKeyFromURL derives a blob's object key from its public URL by the
// path convention .../<bucket>/<objectKey>. Empty when the URL does not
// point into the bucket.
func ObjectKeyFromURL(rawURL, bucket string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	marker := "/" + bucket + "/"
	if i := strings.Index(u.Path, marker); i >= 0 {
		return u.Path[i+len(marker):]
	}
	return ""
}

type SettingsRepo interface {
	Get(ctx context.Context) (*SiteSettings, error)
	Update(ctx context.Context, fields map[string]any) error
}

type NotificationRepo interface {
	List(ctx context.Context) ([]Notification, error)
	SaveNew(ctx context.Context, ns []Notification) error
	MarkRead(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
