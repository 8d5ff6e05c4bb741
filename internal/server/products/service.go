// Package products implements per-user product management.
package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/models"
	"github.com/iudanet/inventory/internal/server/storage"
)

const (
	// DefaultPage страница по умолчанию
	DefaultPage = 1
	// DefaultLimit размер страницы по умолчанию
	DefaultLimit = 10
	// MaxLimit максимальный размер страницы
	MaxLimit = 100

	// MsgProductNotFound товар не найден или принадлежит другому пользователю
	MsgProductNotFound = "Product not found"
)

// CreateInput данные нового товара
type CreateInput struct {
	Name        string
	Description string
	Price       float64
	Quantity    int64
}

// Page страница списка товаров
type Page struct {
	Products   []*models.Product
	Pagination models.Pagination
}

// Service управляет товарами пользователя
type Service struct {
	store  storage.ProductStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates product service
func NewService(logger *slog.Logger, store storage.ProductStorage) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Create сохраняет новый товар владельца
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*models.Product, error) {
	p := &models.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Quantity:    in.Quantity,
		CreatedBy:   ownerID,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create product: %w", err))
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("user_id", ownerID))

	return p, nil
}

// NormalizeFilter приводит page и limit к допустимым значениям
// page < 1 становится 1; limit вне 1..100 становится 10
// page ограничен так, что смещение (page-1)*limit не превышает MaxInt32
func NormalizeFilter(f models.ProductFilter) models.ProductFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		f.Limit = DefaultLimit
	}
	if maxPage := math.MaxInt32/f.Limit + 1; f.Page > maxPage {
		f.Page = maxPage
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// List возвращает страницу товаров владельца, новые первыми
func (s *Service) List(ctx context.Context, ownerID string, filter models.ProductFilter) (*Page, error) {
	filter = NormalizeFilter(filter)

	items, total, err := s.store.ListProducts(ctx, ownerID, filter)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list products: %w", err))
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page{
		Products: items,
		Pagination: models.Pagination{
			Total:      total,
			Page:       filter.Page,
			Limit:      filter.Limit,
			TotalPages: totalPages,
		},
	}, nil
}

// Update частично обновляет товар владельца
func (s *Service) Update(ctx context.Context, ownerID, productID string, upd models.ProductUpdate) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, ownerID, productID)
	if err != nil {
		return nil, s.mapError(err, "get product")
	}

	if upd.Name != nil {
		p.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		p.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, s.mapError(err, "update product")
	}

	return p, nil
}

// Delete удаляет товар владельца
func (s *Service) Delete(ctx context.Context, ownerID, productID string) error {
	if err := s.store.DeleteProduct(ctx, ownerID, productID); err != nil {
		return s.mapError(err, "delete product")
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", productID),
		slog.String("user_id", ownerID))

	return nil
}

func (s *Service) mapError(err error, op string) error {
	if errors.Is(err, storage.ErrProductNotFound) {
		return apperr.NotFound(MsgProductNotFound)
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}
