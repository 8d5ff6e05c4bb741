package api

import "time"

// Product представление товара
type Product struct {
	CreatedAt   time.Time `json:"createdAt"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int64     `json:"quantity"`
}

// CreateProductRequest запрос на создание товара
// Price и Quantity указатели, чтобы отличать отсутствие поля от нуля
type CreateProductRequest struct {
	Price       *float64 `json:"price" validate:"required,gt=0"`
	Quantity    *int64   `json:"quantity" validate:"required,gte=0"`
	Name        string   `json:"name" validate:"required,min=2"`
	Description string   `json:"description"`
}

// UpdateProductRequest запрос на частичное обновление товара
// nil поле не изменяется
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=2"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	Quantity    *int64   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
}

// Pagination описание страницы
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// ProductResponse ответ с одним товаром
type ProductResponse struct {
	Data    *Product `json:"data"`
	Success bool     `json:"success"`
}

// ProductListResponse ответ со страницей товаров
type ProductListResponse struct {
	Data       []*Product  `json:"data"`
	Pagination *Pagination `json:"pagination"`
	Success    bool        `json:"success"`
}
