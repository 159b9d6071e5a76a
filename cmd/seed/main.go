package main

import (
	"database/sql"
	"time"

	"github.com/gosimple/slug"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkart/shopkart-golang/internal/database"
)

type seedProduct struct {
	category    string
	name        string
	description string
	price       string
	stock       int
	imageURL    string
}

var seedProducts = []seedProduct{
	{"Mugs", "Classic Ceramic Mug", "350ml ceramic mug, dishwasher safe.", "10.00", 25, "https://picsum.photos/seed/mug/400"},
	{"Mugs", "Travel Tumbler", "Insulated 500ml tumbler with lid.", "18.50", 12, "https://picsum.photos/seed/tumbler/400"},
	{"Stationery", "Dot Grid Notebook", "A5 notebook, 180 pages.", "7.25", 40, "https://picsum.photos/seed/notebook/400"},
	{"Stationery", "Gel Pen Set", "Pack of 5 gel pens, 0.5mm.", "4.99", 60, "https://picsum.photos/seed/pens/400"},
	{"Apparel", "Logo T-Shirt", "100% cotton, unisex fit.", "15.00", 30, "https://picsum.photos/seed/tshirt/400"},
}

// Seeds the catalog with demo categories, products, and images.
// Intended for local development; it skips anything already present.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := godotenv.Load(); err != nil {
		zap.L().Warn("no .env file found, relying on system environment variables")
	}

	db, err := database.OpenDB()
	if err != nil {
		zap.L().Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	for _, sp := range seedProducts {
		categoryID, err := ensureCategory(db, sp.category)
		if err != nil {
			zap.L().Fatal("failed to ensure category", zap.String("category", sp.category), zap.Error(err))
		}

		productSlug := slug.Make(sp.name)
		var existing int64
		err = db.QueryRow("SELECT id FROM products WHERE slug = ?", productSlug).Scan(&existing)
		if err == nil {
			zap.L().Info("product already seeded", zap.String("slug", productSlug))
			continue
		}
		if err != sql.ErrNoRows {
			zap.L().Fatal("product lookup failed", zap.Error(err))
		}

		price := decimal.RequireFromString(sp.price)
		now := time.Now()
		result, err := db.Exec(`
			INSERT INTO products (category_id, name, slug, description, price, stock, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?)`,
			categoryID, sp.name, productSlug, sp.description, price, sp.stock, now, now)
		if err != nil {
			zap.L().Fatal("product insert failed", zap.String("name", sp.name), zap.Error(err))
		}
		productID, err := result.LastInsertId()
		if err != nil {
			zap.L().Fatal("product id lookup failed", zap.Error(err))
		}

		_, err = db.Exec(
			"INSERT INTO product_images (product_id, image_url, is_primary) VALUES (?, ?, TRUE)",
			productID, sp.imageURL)
		if err != nil {
			zap.L().Fatal("product image insert failed", zap.Error(err))
		}

		zap.L().Info("seeded product",
			zap.String("name", sp.name),
			zap.String("slug", productSlug),
			zap.String("price", price.StringFixed(2)),
			zap.Int("stock", sp.stock))
	}
}

func ensureCategory(db *sql.DB, name string) (int64, error) {
	categorySlug := slug.Make(name)

	var id int64
	err := db.QueryRow("SELECT id FROM categories WHERE slug = ?", categorySlug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := db.Exec("INSERT INTO categories (name, slug) VALUES (?, ?)", name, categorySlug)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
