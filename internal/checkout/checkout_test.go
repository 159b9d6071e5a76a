package checkout

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/shopkart/shopkart-golang/internal/inventory"
	"github.com/shopkart/shopkart-golang/internal/models"
)

var validAddr = ShippingAddress{
	FullName:     "Ada Lovelace",
	Phone:        "555-0101",
	AddressLine1: "1 Analytical Row",
	City:         "Pune",
	Pincode:      "411001",
}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewService(db, inventory.NewGuard()), mock, func() { db.Close() }
}

func TestShippingAddressValidate(t *testing.T) {
	tests := []struct {
		name string
		addr ShippingAddress
		ok   bool
	}{
		{"complete", validAddr, true},
		{"missing full name", ShippingAddress{Phone: "p", AddressLine1: "a", City: "c", Pincode: "z"}, false},
		{"missing phone", ShippingAddress{FullName: "f", AddressLine1: "a", City: "c", Pincode: "z"}, false},
		{"missing address line", ShippingAddress{FullName: "f", Phone: "p", City: "c", Pincode: "z"}, false},
		{"missing city", ShippingAddress{FullName: "f", Phone: "p", AddressLine1: "a", Pincode: "z"}, false},
		{"missing pincode", ShippingAddress{FullName: "f", Phone: "p", AddressLine1: "a", City: "c"}, false},
		{"whitespace only", ShippingAddress{FullName: "  ", Phone: "p", AddressLine1: "a", City: "c", Pincode: "z"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.addr.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidAddress) {
				t.Fatalf("expected ErrInvalidAddress, got %v", err)
			}
		})
	}
}

func TestCheckoutInvalidAddressTouchesNothing(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	// No expectations scripted: any DB access would fail the test.
	_, err := svc.Checkout(context.Background(), 1, ShippingAddress{FullName: "Ada"})
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected DB activity: %v", err)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price_snapshot"}))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), 1, validAddr)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutLazilyCreatesCart(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO carts").
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price_snapshot"}))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), 1, validAddr)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutSuccess(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price_snapshot"}).
			AddRow(100, 5, 3, "10.00"))
	mock.ExpectQuery("SELECT name, stock, is_active FROM products").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "is_active"}).AddRow("Mug", 5, true))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(int64(1), sqlmock.AnyArg(), models.OrderStatusPending,
			validAddr.FullName, validAddr.Phone, validAddr.AddressLine1, validAddr.City, validAddr.Pincode,
			decimal.RequireFromString("30.00"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(77), int64(5), 3, decimal.RequireFromString("10.00")).
		WillReturnResult(sqlmock.NewResult(500, 1))
	mock.ExpectExec("UPDATE products SET stock = stock - ").
		WithArgs(3, int64(5), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), 1, validAddr)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if order.ID != 77 {
		t.Fatalf("expected order id 77, got %d", order.ID)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected status PENDING, got %s", order.Status)
	}
	if order.OrderNumber == "" {
		t.Fatal("expected an order number")
	}
	if !order.Subtotal.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("expected subtotal 30.00, got %s", order.Subtotal)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.ID != 500 || item.ProductID != 5 || item.Quantity != 3 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if !item.PriceSnapshot.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected snapshot 10.00, got %s", item.PriceSnapshot)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutSubtotalSumsAllLines(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price_snapshot"}).
			AddRow(100, 5, 2, "19.99").
			AddRow(101, 6, 1, "0.01"))
	mock.ExpectQuery("SELECT name, stock, is_active FROM products").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "is_active"}).AddRow("Mug", 2, true))
	mock.ExpectQuery("SELECT name, stock, is_active FROM products").
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "is_active"}).AddRow("Sticker", 9, true))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(int64(1), sqlmock.AnyArg(), models.OrderStatusPending,
			validAddr.FullName, validAddr.Phone, validAddr.AddressLine1, validAddr.City, validAddr.Pincode,
			decimal.RequireFromString("39.99"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(78, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(78), int64(5), 2, decimal.RequireFromString("19.99")).
		WillReturnResult(sqlmock.NewResult(501, 1))
	mock.ExpectExec("UPDATE products SET stock = stock - ").
		WithArgs(2, int64(5), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(78), int64(6), 1, decimal.RequireFromString("0.01")).
		WillReturnResult(sqlmock.NewResult(502, 1))
	mock.ExpectExec("UPDATE products SET stock = stock - ").
		WithArgs(1, int64(6), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), 1, validAddr)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !order.Subtotal.Equal(decimal.RequireFromString("39.99")) {
		t.Fatalf("expected subtotal 39.99, got %s", order.Subtotal)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutInsufficientStockAbortsBeforeAnyWrite(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	// Two lines; the second fails validation. Nothing may be written,
	// including for the first line that was individually fine.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price_snapshot"}).
			AddRow(100, 5, 1, "10.00").
			AddRow(101, 6, 3, "4.00"))
	mock.ExpectQuery("SELECT name, stock, is_active FROM products").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "is_active"}).AddRow("Mug", 5, true))
	mock.ExpectQuery("SELECT name, stock, is_active FROM products").
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "is_active"}).AddRow("Sticker", 2, true))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), 1, validAddr)

	var stockErr *inventory.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductName != "Sticker" {
		t.Fatalf("expected failing product Sticker, got %q", stockErr.ProductName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected writes: %v", err)
	}
}

func TestCheckoutReserveConflictRollsBackEverything(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	// Validation passes, but the guarded decrement finds stock already
	// taken by a concurrent checkout. The whole transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price_snapshot"}).
			AddRow(100, 5, 3, "10.00"))
	mock.ExpectQuery("SELECT name, stock, is_active FROM products").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "is_active"}).AddRow("Mug", 3, true))
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(79, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(503, 1))
	mock.ExpectExec("UPDATE products SET stock = stock - ").
		WithArgs(3, int64(5), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM products").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Mug"))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), 1, validAddr)

	var stockErr *inventory.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutRetriesDeadlockThenSucceeds(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	// First attempt deadlocks loading the cart lines; the retry runs a
	// fresh transaction and commits.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "price_snapshot"}).
			AddRow(100, 5, 1, "10.00"))
	mock.ExpectQuery("SELECT name, stock, is_active FROM products").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "is_active"}).AddRow("Mug", 5, true))
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(80, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(504, 1))
	mock.ExpectExec("UPDATE products SET stock = stock - ").
		WithArgs(1, int64(5), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), 1, validAddr)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if order.ID != 80 {
		t.Fatalf("expected order id 80, got %d", order.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutGivesUpAfterRepeatedDeadlocks(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	for i := 0; i < maxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM carts").
			WithArgs(int64(1)).
			WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
		mock.ExpectRollback()
	}

	_, err := svc.Checkout(context.Background(), 1, validAddr)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
