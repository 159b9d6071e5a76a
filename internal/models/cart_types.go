package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart defines the struct for the 'carts' table.
// A user owns exactly one cart; it is created lazily and survives
// checkout with its items removed.
type Cart struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"-" db:"user_id"`
	Items     []CartItem `json:"items" db:"-"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CartItem defines the struct for the 'cart_items' table.
// PriceSnapshot is the product's unit price captured when the line was
// first added; quantity updates leave it untouched.
type CartItem struct {
	ID            int64           `json:"id" db:"id"`
	CartID        int64           `json:"-" db:"cart_id"`
	ProductID     int64           `json:"-" db:"product_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot" db:"price_snapshot"`

	// Join (not a column; populated manually)
	Product *Product `json:"product,omitempty" db:"-"`
}
