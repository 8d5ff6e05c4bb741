package storage

import (
	"context"

	"github.com/iudanet/inventory/internal/models"
)

// ProductStorage defines interface for product persistence
// Все операции ограничены владельцем (ownerID)
type ProductStorage interface {
	// CreateProduct saves a new product
	CreateProduct(ctx context.Context, product *models.Product) error

	// ListProducts returns a page of owner's products, newest first, and the total count
	// filter.Page and filter.Limit must be normalized by the caller
	ListProducts(ctx context.Context, ownerID string, filter models.ProductFilter) ([]*models.Product, int64, error)

	// GetProduct returns owner's product by ID
	// Returns ErrProductNotFound if product doesn't exist or belongs to another user
	GetProduct(ctx context.Context, ownerID, productID string) (*models.Product, error)

	// UpdateProduct overwrites mutable fields of owner's product
	// Returns ErrProductNotFound if product doesn't exist or belongs to another user
	UpdateProduct(ctx context.Context, product *models.Product) error

	// DeleteProduct deletes owner's product
	// Returns ErrProductNotFound if product doesn't exist or belongs to another user
	DeleteProduct(ctx context.Context, ownerID, productID string) error
}
