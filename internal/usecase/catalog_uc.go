package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/flavorzest/flavorzest/internal/domain"
)

// Catalog is the single source of truth for the product list as the UI sees
// it. It keeps an in-memory snapshot sorted by display order and mediates
// every mutation through the product store, re-reading remote state after
// each write. Reads never touch the network.
//
// Multi-step writes (create, reorder) are sequences of independent store
// calls with no transaction or rollback around them; a failure partway
// leaves partial remote state and is reported, not compensated.
type Catalog struct {
	Store  domain.ProductStore
	Blobs  domain.BlobStore
	Bucket string
	Now    func() time.Time

	mu       sync.RWMutex
	products []domain.Product
}

func NewCatalog(store domain.ProductStore, blobs domain.BlobStore, bucket string) *Catalog {
	return &Catalog{Store: store, Blobs: blobs, Bucket: bucket, Now: time.Now}
}

// List returns the current snapshot, ascending by display order. Ties keep
// the order the store returned the rows in.
func (c *Catalog) List() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get returns the snapshot's copy of a product, or ErrNotFound.
func (c *Catalog) Get(id uuid.UUID) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.products {
		if c.products[i].ID == id {
			p := c.products[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// SignatureProduct returns the one product flagged as the signature scent,
// nil when none is. Plain scan; catalogs are small.
func (c *Catalog) SignatureProduct() *domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.products {
		if c.products[i].IsSignature {
			p := c.products[i]
			return &p
		}
	}
	return nil
}

// Refresh re-reads all products with their variants and replaces the
// snapshot wholesale. Fails soft: on error the previous snapshot stays.
func (c *Catalog) Refresh(ctx context.Context) error {
	rows, err := c.Store.SelectAllProducts(ctx, true)
	if err != nil {
		return &domain.StoreError{Op: "select products", Err: err}
	}
	domain.SortByDisplayOrder(rows)
	c.mu.Lock()
	c.products = rows
	c.mu.Unlock()
	return nil
}

// Create inserts the base product row to obtain an id, then the variant
// rows tagged with it. If the variant insert fails the product row stays: a
// known gap, surfaced to the caller. The new product is appended to the end
// of the display order.
func (c *Catalog) Create(ctx context.Context, draft *domain.Product) error {
	if err := validateDraft(draft); err != nil {
		return err
	}
	draft.DisplayOrder = c.nextOrder()
	id, err := c.Store.InsertProduct(ctx, draft)
	if err != nil {
		return &domain.StoreError{Op: "insert product", Err: err}
	}
	draft.ID = id
	if len(draft.Variants) > 0 {
		if err := c.Store.InsertVariants(ctx, id, draft.Variants); err != nil {
			return &domain.StoreError{Op: "insert variants", Err: err}
		}
	}
	return c.Refresh(ctx)
}

// Update applies a partial patch. Setting the signature flag first clears it
// everywhere else so at most one product ever carries it. A non-nil Variants
// slice replaces the product's variant rows wholesale: any variant omitted
// from the patch is deleted.
func (c *Catalog) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) error {
	if err := patch.validate(); err != nil {
		return err
	}
	if patch.IsSignature != nil && *patch.IsSignature {
		if err := c.Store.ClearSignature(ctx); err != nil {
			return &domain.StoreError{Op: "clear signature", Err: err}
		}
	}
	if fields := patch.fields(); len(fields) > 0 {
		if err := c.Store.UpdateProduct(ctx, id, fields); err != nil {
			return &domain.StoreError{Op: "update product", Err: err}
		}
	}
	if patch.Variants != nil {
		if err := c.Store.DeleteVariants(ctx, id); err != nil {
			return &domain.StoreError{Op: "delete variants", Err: err}
		}
		if len(patch.Variants) > 0 {
			if err := c.Store.InsertVariants(ctx, id, patch.Variants); err != nil {
				return &domain.StoreError{Op: "insert variants", Err: err}
			}
		}
	}
	return c.Refresh(ctx)
}

// Delete removes the product row (variants cascade at the store) after a
// best-effort delete of its image blob; blob failures are logged, never
// block the row delete. Local state drops the id without a full refresh.
func (c *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := c.Get(id)
	if err != nil {
		return err
	}
	if c.Blobs != nil && p.Image != "" {
		if key := domain.ObjectKeyFromURL(p.Image, c.Bucket); key != "" {
			if err := c.Blobs.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("product", id.String()).Str("key", key).Msg("image cleanup failed")
			}
		}
	}
	if err := c.Store.DeleteProduct(ctx, id); err != nil {
		return &domain.StoreError{Op: "delete product", Err: err}
	}
	c.mu.Lock()
	kept := c.products[:0]
	for _, q := range c.products {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	c.products = kept
	c.mu.Unlock()
	return nil
}

// Reorder renumbers display order to the 0-based position in seq, applies
// the new order locally right away, then persists one update per changed
// record, sequentially. A failure partway leaves the records before it
// renumbered; the error says how far it got and the snapshot is reconciled
// from the store.
func (c *Catalog) Reorder(ctx context.Context, seq []domain.Product) error {
	ordered, changed := domain.ReorderProducts(seq)

	c.mu.Lock()
	c.products = ordered
	c.mu.Unlock()

	for i, p := range changed {
		if err := c.Store.UpdateProduct(ctx, p.ID, map[string]any{"display_order": p.DisplayOrder}); err != nil {
			if rerr := c.Refresh(ctx); rerr != nil {
				log.Error().Err(rerr).Msg("reorder reconcile failed")
			}
			return &domain.StoreError{
				Op:  fmt.Sprintf("reorder (%d/%d updates applied)", i, len(changed)),
				Err: err,
			}
		}
	}
	return c.Refresh(ctx)
}

func (c *Catalog) nextOrder() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	next := 0
	for _, p := range c.products {
		if p.DisplayOrder >= next {
			next = p.DisplayOrder + 1
		}
	}
	return next
}

func validateDraft(p *domain.Product) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
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
