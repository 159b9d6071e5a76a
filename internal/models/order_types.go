package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Checkout only ever produces PENDING; PAID and
// CANCELLED exist for later transitions handled elsewhere.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// Order is the model for the 'orders' table. Immutable after creation
// except for the status field.
type Order struct {
	ID           int64           `json:"id" db:"id"`
	UserID       int64           `json:"user_id" db:"user_id"`
	OrderNumber  string          `json:"order_number" db:"order_number"`
	Status       string          `json:"status" db:"status"`
	FullName     string          `json:"full_name" db:"full_name"`
	Phone        string          `json:"phone" db:"phone"`
	AddressLine1 string          `json:"address_line1" db:"address_line1"`
	City         string          `json:"city" db:"city"`
	Pincode      string          `json:"pincode" db:"pincode"`
	Subtotal     decimal.Decimal `json:"subtotal" db:"subtotal"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`

	Items []OrderItem `json:"items" db:"-"`
}

// OrderItem is the model for the 'order_items' table. A permanent
// historical record: quantity and price_snapshot are copied verbatim
// from the source cart line and never change.
type OrderItem struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       int64           `json:"order_id" db:"order_id"`
	ProductID     int64           `json:"product_id" db:"product_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot" db:"price_snapshot"`
}
