package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Validation errors. InsufficientStockError carries the product name so
// the HTTP boundary can name the offending product.
var (
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not active")
)

type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s", e.ProductName)
}

// Guard validates requested quantities against live stock and performs
// the atomic stock decrement at order confirmation. Every method runs
// on a caller-provided transaction; the guard never commits or rolls
// back itself.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// Validate reports whether qty units of the product can be sold right
// now: the product must exist, be active, and have at least qty in
// stock. The read uses the transaction's view, so inside a FOR UPDATE
// scope it sees locked rows.
func (g *Guard) Validate(ctx context.Context, tx *sql.Tx, productID int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	var (
		name     string
		stock    int
		isActive bool
	)
	query := "SELECT name, stock, is_active FROM products WHERE id = ?"
	err := tx.QueryRowContext(ctx, query, productID).Scan(&name, &stock, &isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}

	if !isActive {
		return ErrProductInactive
	}
	if qty > stock {
		return &InsufficientStockError{ProductName: name}
	}
	return nil
}

// Reserve decrements the product's stock by qty. The guard condition in
// the UPDATE re-checks stock at decrement time, so a validation that
// passed earlier cannot drive stock negative if a concurrent checkout
// got there first.
func (g *Guard) Reserve(ctx context.Context, tx *sql.Tx, productID int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
		qty, productID, qty)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the product vanished or stock dropped below qty since
		// validation. Re-read to tell the two apart.
		var name string
		err := tx.QueryRowContext(ctx, "SELECT name FROM products WHERE id = ?", productID).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		return &InsufficientStockError{ProductName: name}
	}
	return nil
}
