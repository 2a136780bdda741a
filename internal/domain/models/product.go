package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category представляет категорию каталога
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
}

// Product представляет товар каталога.
// Остаток (Stock) никогда не бывает отрицательным.
type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Price        decimal.Decimal `db:"price" json:"price"`
	CategoryID   *int64          `db:"category_id" json:"category_id,omitempty"`
	CategoryName *string         `db:"category_name" json:"category_name,omitempty"`
	Stock        int             `db:"stock_quantity" json:"stock_quantity"`
	IsFeatured   bool            `db:"is_featured" json:"is_featured"`
	IsBestseller bool            `db:"is_bestseller" json:"is_bestseller"`
	IsNew        bool            `db:"is_new" json:"is_new"`
	Brand        string          `db:"brand" json:"brand"`
	Rating       decimal.Decimal `db:"rating" json:"rating"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// ProductFilter параметры выборки каталога
type ProductFilter struct {
	CategoryID *int64
	Featured   bool
	Bestseller bool
	New        bool
	Limit      int
	Offset     int
}
