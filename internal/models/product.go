package models

import "time"

// Product представляет товар, принадлежащий пользователю
type Product struct {
	CreatedAt   time.Time `json:"createdAt"`             // время создания
	ID          string    `json:"id"`                    // UUID товара
	Name        string    `json:"name"`                  // название
	Description string    `json:"description,omitempty"` // описание (опционально)
	CreatedBy   string    `json:"-"`                     // ID владельца
	Price       float64   `json:"price"`                 // цена, > 0
	Quantity    int64     `json:"quantity"`              // количество, >= 0
}

// ProductUpdate содержит поля для частичного обновления товара
// nil означает "не изменять"
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Quantity    *int64
}

// ProductFilter описывает параметры выборки списка товаров
type ProductFilter struct {
	Search string
	Page   int
	Limit  int
}

// Pagination описывает страницу результатов
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}
