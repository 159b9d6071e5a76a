package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopkart/shopkart-golang/internal/checkout"
	"github.com/shopkart/shopkart-golang/internal/inventory"
	"github.com/shopkart/shopkart-golang/internal/models"
)

//
// --- Order Handlers (Authenticated) ---
//

// GetMyOrders is the handler for GET /api/orders/.
// Orders come back newest first, each with its line items nested.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID := c.GetInt64("userID")

	query := `
		SELECT id, user_id, order_number, status, full_name, phone, address_line1, city, pincode, subtotal, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY id DESC`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		zap.L().Error("orders query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.UserID, &o.OrderNumber, &o.Status,
			&o.FullName, &o.Phone, &o.AddressLine1, &o.City, &o.Pincode,
			&o.Subtotal, &o.CreatedAt,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to scan order"})
			return
		}
		o.Items = []models.OrderItem{}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch orders"})
		return
	}

	for i := range orders {
		items, err := h.loadOrderItems(orders[i].ID)
		if err != nil {
			zap.L().Error("order items query failed", zap.Int64("order_id", orders[i].ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch orders"})
			return
		}
		orders[i].Items = items
	}

	c.JSON(http.StatusOK, orders)
}

func (h *Handlers) loadOrderItems(orderID int64) ([]models.OrderItem, error) {
	rows, err := h.DB.Query(
		"SELECT id, order_id, product_id, quantity, price_snapshot FROM order_items WHERE order_id = ? ORDER BY id",
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceSnapshot); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type CheckoutInput struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	Pincode      string `json:"pincode"`
}

// PostCheckout is the handler for POST /api/checkout/. The heavy
// lifting happens in the checkout service; this only maps its errors
// onto HTTP responses.
func (h *Handlers) PostCheckout(c *gin.Context) {
	userID := c.GetInt64("userID")

	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	order, err := h.Checkout.Checkout(c.Request.Context(), userID, checkout.ShippingAddress{
		FullName:     input.FullName,
		Phone:        input.Phone,
		AddressLine1: input.AddressLine1,
		City:         input.City,
		Pincode:      input.Pincode,
	})
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handlers) respondCheckoutError(c *gin.Context, err error) {
	var stockErr *inventory.InsufficientStockError

	switch {
	case errors.Is(err, checkout.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "All address fields are required"})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cart is empty"})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": stockErr.Error()})
	case errors.Is(err, inventory.ErrProductNotFound), errors.Is(err, inventory.ErrProductInactive):
		// Kept indistinct from stock failures at this boundary.
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Not enough stock"})
	case errors.Is(err, checkout.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"detail": "Checkout conflicted with another request, please retry"})
	default:
		zap.L().Error("checkout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Checkout failed"})
	}
}
