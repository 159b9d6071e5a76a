package checkout

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkart/shopkart-golang/internal/inventory"
	"github.com/shopkart/shopkart-golang/internal/models"
)

var (
	ErrInvalidAddress = errors.New("all address fields are required")
	ErrEmptyCart      = errors.New("cart is empty")
	// ErrConflict means concurrent checkouts kept invalidating each
	// other past the retry budget. The caller can safely retry.
	ErrConflict = errors.New("checkout conflicted with a concurrent transaction")
)

// maxAttempts bounds the in-process retry on deadlock/serialization
// failures before ErrConflict is surfaced.
const maxAttempts = 3

// ShippingAddress is the denormalized address copied onto the order.
type ShippingAddress struct {
	FullName     string
	Phone        string
	AddressLine1 string
	City         string
	Pincode      string
}

// Validate requires all five fields to be non-empty.
func (a ShippingAddress) Validate() error {
	for _, f := range []string{a.FullName, a.Phone, a.AddressLine1, a.City, a.Pincode} {
		if strings.TrimSpace(f) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

// Service converts a user's cart into an order as one all-or-nothing
// transaction: validate every line against live stock, compute the
// subtotal, materialize the order and its items, decrement stock, and
// empty the cart. Any failure rolls the whole thing back.
type Service struct {
	db    *sql.DB
	guard *inventory.Guard
}

func NewService(db *sql.DB, guard *inventory.Guard) *Service {
	return &Service{db: db, guard: guard}
}

// cartLine is one cart row loaded for checkout, in ascending item-id
// order so failures are reproducible across retries.
type cartLine struct {
	ItemID        int64
	ProductID     int64
	Quantity      int
	PriceSnapshot decimal.Decimal
}

// Checkout runs the checkout transaction for userID. Deadlocks and lock
// timeouts are retried with a fresh transaction; every other error is
// final.
func (s *Service) Checkout(ctx context.Context, userID int64, addr ShippingAddress) (*models.Order, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		order, err := s.checkoutOnce(ctx, userID, addr)
		if err == nil {
			return order, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		zap.L().Warn("checkout transaction conflict, retrying",
			zap.Int64("user_id", userID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	zap.L().Error("checkout gave up after repeated conflicts",
		zap.Int64("user_id", userID),
		zap.Error(lastErr))
	return nil, ErrConflict
}

func (s *Service) checkoutOnce(ctx context.Context, userID int64, addr ShippingAddress) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // safety net; no-op after Commit

	cartID, err := s.getOrCreateCartID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	// Lock the cart lines and their product rows for the duration of
	// the transaction. Ascending item id keeps the processing order,
	// and therefore any failure message, deterministic.
	lineQuery := `
		SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ?
		ORDER BY ci.id ASC
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, lineQuery, cartID)
	if err != nil {
		return nil, err
	}

	var lines []cartLine
	for rows.Next() {
		var line cartLine
		if err := rows.Scan(&line.ItemID, &line.ProductID, &line.Quantity, &line.PriceSnapshot); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Gate: every line must pass against current stock before anything
	// is written. A single failure aborts with no mutations.
	subtotal := decimal.Zero
	for _, line := range lines {
		if err := s.guard.Validate(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(line.PriceSnapshot.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	now := time.Now()
	order := &models.Order{
		UserID:       userID,
		OrderNumber:  uuid.NewString(),
		Status:       models.OrderStatusPending,
		FullName:     addr.FullName,
		Phone:        addr.Phone,
		AddressLine1: addr.AddressLine1,
		City:         addr.City,
		Pincode:      addr.Pincode,
		Subtotal:     subtotal,
		CreatedAt:    now,
	}

	orderQuery := `
		INSERT INTO orders (user_id, order_number, status, full_name, phone, address_line1, city, pincode, subtotal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, orderQuery,
		order.UserID, order.OrderNumber, order.Status,
		order.FullName, order.Phone, order.AddressLine1, order.City, order.Pincode,
		order.Subtotal, order.CreatedAt)
	if err != nil {
		return nil, err
	}
	order.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price_snapshot)
		VALUES (?, ?, ?, ?)`

	for _, line := range lines {
		result, err := tx.ExecContext(ctx, itemQuery,
			order.ID, line.ProductID, line.Quantity, line.PriceSnapshot)
		if err != nil {
			return nil, err
		}
		itemID, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:            itemID,
			OrderID:       order.ID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			PriceSnapshot: line.PriceSnapshot,
		})

		// Decrement stock. The guard re-checks at decrement time, so a
		// concurrent checkout that won the race aborts this one here.
		if err := s.guard.Reserve(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// getOrCreateCartID finds the user's cart or lazily creates one. The
// cart row itself survives checkout; only its items are removed.
func (s *Service) getOrCreateCartID(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var cartID int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO carts (user_id, updated_at) VALUES (?, ?)", userID, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// isRetryable reports whether the error is a MySQL deadlock (1213) or
// lock wait timeout (1205), both of which a fresh transaction may clear.
func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
