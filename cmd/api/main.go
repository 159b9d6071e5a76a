package main

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shopkart/shopkart-golang/internal/checkout"
	"github.com/shopkart/shopkart-golang/internal/database"
	"github.com/shopkart/shopkart-golang/internal/handlers"
	"github.com/shopkart/shopkart-golang/internal/inventory"
	"github.com/shopkart/shopkart-golang/internal/routes"
)

func main() {
	// 0. --- Logging ---
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 1. --- Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		zap.L().Warn("no .env file found, relying on system environment variables")
	}

	// 2. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		zap.L().Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 3. --- Application Setup ---
	app := &handlers.Handlers{
		DB:       db,
		Checkout: checkout.NewService(db, inventory.NewGuard()),
	}

	router := routes.SetupRouter(app)

	// 4. --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	zap.L().Info("starting shopkart API server", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}
