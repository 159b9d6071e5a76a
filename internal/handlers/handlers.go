package handlers

import (
	"database/sql"

	"github.com/shopkart/shopkart-golang/internal/checkout"
)

// Handlers holds all dependencies for the HTTP handlers.
type Handlers struct {
	DB       *sql.DB
	Checkout *checkout.Service
}
