package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flavorzest/flavorzest/internal/domain"
)

type ProductStore struct{ db *gorm.DB }

func NewProductStore(db *gorm.DB) *ProductStore { return &ProductStore{db: db} }

func (s *ProductStore) SelectAllProducts(ctx context.Context, withVariants bool) ([]domain.Product, error) {
	var list []domain.Product
	q := s.db.WithContext(ctx).Order("display_order asc, created_at asc")
	if withVariants {
		q = q.Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") })
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ProductStore) InsertProduct(ctx context.Context, p *domain.Product) (uuid.UUID, error) {
	row := *p
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	// variant rows go through InsertVariants
	row.Variants = nil
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (s *ProductStore) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ProductStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&domain.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ProductStore) InsertVariants(ctx context.Context, productID uuid.UUID, rows []domain.ProductVariant) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		rows[i].ProductID = productID
		if rows[i].CreatedAt.IsZero() {
			// spacing keeps the insert order stable under created_at asc
			rows[i].CreatedAt = time.Now().Add(time.Duration(i) * time.Microsecond)
		}
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *ProductStore) DeleteVariants(ctx context.Context, productID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&domain.ProductVariant{}).Error
}

func (s *ProductStore) ClearSignature(ctx context.Context) error {
	return s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("is_signature = ?", true).Update("is_signature", false).Error
}
