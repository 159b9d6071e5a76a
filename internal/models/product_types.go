package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the model for the 'categories' table.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Product is the model for the 'products' table.
// Price is a fixed-point decimal; stock is never negative.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	CategoryID  *int64          `json:"-" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	Slug        string          `json:"slug" db:"slug"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// Joins (not columns; populated manually)
	Category *Category      `json:"category,omitempty" db:"-"`
	Images   []ProductImage `json:"images" db:"-"`
}

// ProductImage is the model for the 'product_images' table.
type ProductImage struct {
	ID        int64  `json:"id" db:"id"`
	ProductID int64  `json:"-" db:"product_id"`
	ImageURL  string `json:"image_url" db:"image_url"`
	IsPrimary bool   `json:"is_primary" db:"is_primary"`
}
