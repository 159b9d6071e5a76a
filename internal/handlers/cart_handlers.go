package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkart/shopkart-golang/internal/models"
)

//
// --- Cart Handlers (Authenticated) ---
//

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// getOrCreateCartID finds the user's cart or lazily creates one.
func (h *Handlers) getOrCreateCartID(q queryer, userID int64) (int64, error) {
	var cartID int64
	err := q.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	result, err := q.Exec("INSERT INTO carts (user_id, updated_at) VALUES (?, ?)", userID, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// loadCart assembles the cart payload: line items in ascending id order,
// each with its product nested.
func (h *Handlers) loadCart(cartID int64) (*models.Cart, error) {
	cart := &models.Cart{ID: cartID, Items: []models.CartItem{}}
	err := h.DB.QueryRow("SELECT user_id, updated_at FROM carts WHERE id = ?", cartID).
		Scan(&cart.UserID, &cart.UpdatedAt)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ci.id, ci.product_id, ci.quantity, ci.price_snapshot,
			p.id, p.name, p.slug, p.description, p.price, p.stock, p.is_active, p.created_at, p.updated_at,
			c.id, c.name, c.slug
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE ci.cart_id = ?
		ORDER BY ci.id`

	rows, err := h.DB.Query(query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CartItem
		var p models.Product
		var catID sql.NullInt64
		var catName, catSlug sql.NullString

		err := rows.Scan(
			&item.ID, &item.ProductID, &item.Quantity, &item.PriceSnapshot,
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt,
			&catID, &catName, &catSlug,
		)
		if err != nil {
			return nil, err
		}

		if catID.Valid {
			p.Category = &models.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
		}
		p.Images = []models.ProductImage{}
		item.CartID = cartID
		item.Product = &p
		cart.Items = append(cart.Items, item)
	}
	return cart, rows.Err()
}

// respondWithCart is the shared success response for all cart routes.
func (h *Handlers) respondWithCart(c *gin.Context, cartID int64) {
	cart, err := h.loadCart(cartID)
	if err != nil {
		zap.L().Error("cart load failed", zap.Int64("cart_id", cartID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// GetCart is the handler for GET /api/cart/.
func (h *Handlers) GetCart(c *gin.Context) {
	userID := c.GetInt64("userID")

	cartID, err := h.getOrCreateCartID(h.DB, userID)
	if err != nil {
		zap.L().Error("cart lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load cart"})
		return
	}
	h.respondWithCart(c, cartID)
}

type AddCartItemInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
	// Quantity defaults to 1 when omitted; an explicit non-positive
	// value is rejected.
	Quantity *int `json:"quantity"`
}

// AddCartItem is the handler for POST /api/cart/items/add/.
// An existing line for the same product merges quantities; the price
// snapshot from the original add is preserved.
func (h *Handlers) AddCartItem(c *gin.Context) {
	userID := c.GetInt64("userID")

	var input AddCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "product_id is required"})
		return
	}
	qty := 1
	if input.Quantity != nil {
		qty = *input.Quantity
	}
	if qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Quantity must be >= 1"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
		return
	}
	defer tx.Rollback()

	cartID, err := h.getOrCreateCartID(tx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
		return
	}

	var (
		price  decimal.Decimal
		stock  int
		active bool
	)
	err = tx.QueryRow("SELECT price, stock, is_active FROM products WHERE id = ?", input.ProductID).
		Scan(&price, &stock, &active)
	if err != nil || !active {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return
	}

	if qty > stock {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Not enough stock"})
		return
	}

	var itemID int64
	var existingQty int
	err = tx.QueryRow(
		"SELECT id, quantity FROM cart_items WHERE cart_id = ? AND product_id = ?",
		cartID, input.ProductID).Scan(&itemID, &existingQty)
	switch {
	case err == nil:
		newQty := existingQty + qty
		if newQty > stock {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Not enough stock"})
			return
		}
		// Quantity only; the snapshot stays what it was at first add.
		if _, err := tx.Exec("UPDATE cart_items SET quantity = ? WHERE id = ?", newQty, itemID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
			return
		}
	case errors.Is(err, sql.ErrNoRows):
		_, err := tx.Exec(
			"INSERT INTO cart_items (cart_id, product_id, quantity, price_snapshot) VALUES (?, ?, ?, ?)",
			cartID, input.ProductID, qty, price)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
		return
	}

	h.respondWithCart(c, cartID)
}

type UpdateCartItemInput struct {
	Quantity *int `json:"quantity"`
}

// UpdateCartItem is the handler for PATCH /api/cart/items/:item_id/.
// Quantity <= 0 removes the line. The price snapshot is never refreshed
// on quantity changes.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID := c.GetInt64("userID")
	itemID := c.Param("item_id")

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	cartID, err := h.getOrCreateCartID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load cart"})
		return
	}

	var currentQty, stock int
	err = h.DB.QueryRow(`
		SELECT ci.quantity, p.stock
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.id = ? AND ci.cart_id = ?`, itemID, cartID).Scan(&currentQty, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
		return
	}

	qty := currentQty
	if input.Quantity != nil {
		qty = *input.Quantity
	}

	if qty <= 0 {
		if _, err := h.DB.Exec("DELETE FROM cart_items WHERE id = ? AND cart_id = ?", itemID, cartID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
			return
		}
		h.respondWithCart(c, cartID)
		return
	}

	if qty > stock {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Not enough stock"})
		return
	}

	if _, err := h.DB.Exec("UPDATE cart_items SET quantity = ? WHERE id = ? AND cart_id = ?", qty, itemID, cartID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
		return
	}

	h.respondWithCart(c, cartID)
}

// DeleteCartItem is the handler for DELETE /api/cart/items/:item_id/delete/.
func (h *Handlers) DeleteCartItem(c *gin.Context) {
	userID := c.GetInt64("userID")
	itemID := c.Param("item_id")

	cartID, err := h.getOrCreateCartID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load cart"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM cart_items WHERE id = ? AND cart_id = ?", itemID, cartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update cart"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return
	}

	h.respondWithCart(c, cartID)
}
