package handlers

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/shopkart/shopkart-golang/internal/checkout"
	"github.com/shopkart/shopkart-golang/internal/inventory"
)

// newTestEnv wires the handlers onto a router whose auth layer is
// replaced by a stub that authenticates everyone as user 1.
func newTestEnv(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	h := &Handlers{
		DB:       db,
		Checkout: checkout.NewService(db, inventory.NewGuard()),
	}

	router := gin.New()
	api := router.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Next()
	})
	api.GET("/cart/", h.GetCart)
	api.POST("/cart/items/add/", h.AddCartItem)
	api.PATCH("/cart/items/:item_id/", h.UpdateCartItem)
	api.DELETE("/cart/items/:item_id/delete/", h.DeleteCartItem)
	api.GET("/orders/", h.GetMyOrders)
	api.POST("/checkout/", h.PostCheckout)

	return router, mock, func() { db.Close() }
}
