package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/shopkart/shopkart-golang/internal/handlers"
	"github.com/shopkart/shopkart-golang/internal/middleware"
)

// CORSMiddleware allows the configured frontend origin to call the API
// with an Authorization header.
func CORSMiddleware() gin.HandlerFunc {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())

	api := router.Group("/api")
	{
		// --- Auth Routes (Public) ---
		api.POST("/auth/register/", h.Register)
		api.POST("/auth/login/", h.Login)
		api.POST("/auth/refresh/", h.Refresh)

		// --- Catalog Routes (Public) ---
		api.GET("/categories/", h.GetCategories)
		api.GET("/products/", h.GetProducts)
		api.GET("/products/:id/", h.GetProduct)

		// --- Protected Routes (Login Required) ---
		auth := api.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			auth.GET("/cart/", h.GetCart)
			auth.POST("/cart/items/add/", h.AddCartItem)
			auth.PATCH("/cart/items/:item_id/", h.UpdateCartItem)
			auth.DELETE("/cart/items/:item_id/delete/", h.DeleteCartItem)

			auth.GET("/orders/", h.GetMyOrders)
			auth.POST("/checkout/", h.PostCheckout)
		}
	}

	return router
}
