package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/models"
	"github.com/iudanet/inventory/internal/server/products"
	"github.com/iudanet/inventory/internal/validation"
	"github.com/iudanet/inventory/pkg/api"
)

// MsgProductDeleted ответ на удаление товара
const MsgProductDeleted = "Product deleted successfully"

// ProductService операции с товарами
type ProductService interface {
	Create(ctx context.Context, ownerID string, in products.CreateInput) (*models.Product, error)
	List(ctx context.Context, ownerID string, filter models.ProductFilter) (*products.Page, error)
	Update(ctx context.Context, ownerID, productID string, upd models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, ownerID, productID string) error
}

// ProductHandler обрабатывает запросы к /api/products
// Все маршруты требуют аутентификации
type ProductHandler struct {
	logger    *slog.Logger
	service   ProductService
	validator *validation.Validator
	errors    *ErrorWriter
}

// NewProductHandler создает handler товаров
func NewProductHandler(logger *slog.Logger, service ProductService, v *validation.Validator, errs *ErrorWriter) *ProductHandler {
	return &ProductHandler{
		logger:    logger,
		service:   service,
		validator: v,
		errors:    errs,
	}
}

// Create обрабатывает POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.CreateProductRequest
	if !bind(w, r, h.validator, h.errors, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), userID, products.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
	})
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.errors.sendJSON(w, api.ProductResponse{Success: true, Data: toAPIProduct(p)}, http.StatusCreated)
}

// List обрабатывает GET /api/products?page=&limit=&search=
// Некорректные page и limit заменяются значениями по умолчанию
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.service.List(r.Context(), userID, models.ProductFilter{
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	data := make([]*api.Product, 0, len(result.Products))
	for _, p := range result.Products {
		data = append(data, toAPIProduct(p))
	}

	h.errors.sendJSON(w, api.ProductListResponse{
		Success: true,
		Data:    data,
		Pagination: &api.Pagination{
			Total:      result.Pagination.Total,
			Page:       result.Pagination.Page,
			Limit:      result.Pagination.Limit,
			TotalPages: result.Pagination.TotalPages,
		},
	}, http.StatusOK)
}

// Update обрабатывает PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.UpdateProductRequest
	if !bind(w, r, h.validator, h.errors, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, r.PathValue("id"), models.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	})
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.errors.sendJSON(w, api.ProductResponse{Success: true, Data: toAPIProduct(p)}, http.StatusOK)
}

// Delete обрабатывает DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.errors.sendJSON(w, api.MessageResponse{Success: true, Message: MsgProductDeleted}, http.StatusOK)
}

func (h *ProductHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.errors.WriteError(w, r, apperr.Unauthorized(MsgLoginRequired))
	}
	return userID, ok
}

func toAPIProduct(p *models.Product) *api.Product {
	return &api.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
	}
}
