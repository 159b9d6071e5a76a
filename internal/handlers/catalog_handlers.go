package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopkart/shopkart-golang/internal/models"
)

//
// --- Catalog Handlers (Public, read-only) ---
//

// GetCategories is the handler for GET /api/categories/.
func (h *Handlers) GetCategories(c *gin.Context) {
	rows, err := h.DB.Query("SELECT id, name, slug FROM categories ORDER BY id")
	if err != nil {
		zap.L().Error("categories query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch categories"})
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to scan category"})
			return
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// GetProducts is the handler for GET /api/products/.
// Products come back ordered by id with their category and images nested.
func (h *Handlers) GetProducts(c *gin.Context) {
	query := `
		SELECT p.id, p.name, p.slug, p.description, p.price, p.stock, p.is_active, p.created_at, p.updated_at,
			c.id, c.name, c.slug
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		ORDER BY p.id`

	rows, err := h.DB.Query(query)
	if err != nil {
		zap.L().Error("products query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to scan product"})
			return
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch products"})
		return
	}

	if err := h.attachImages(products); err != nil {
		zap.L().Error("product images query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct is the handler for GET /api/products/:id/.
func (h *Handlers) GetProduct(c *gin.Context) {
	query := `
		SELECT p.id, p.name, p.slug, p.description, p.price, p.stock, p.is_active, p.created_at, p.updated_at,
			c.id, c.name, c.slug
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?`

	row := h.DB.QueryRow(query, c.Param("id"))
	p, err := scanProductRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
			return
		}
		zap.L().Error("product query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch product"})
		return
	}

	products := []models.Product{*p}
	if err := h.attachImages(products); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, products[0])
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProductRow(row scanner) (*models.Product, error) {
	var p models.Product
	var catID sql.NullInt64
	var catName, catSlug sql.NullString

	err := row.Scan(
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
	return &p, nil
}

// attachImages populates Images for every product in the slice with a
// single query.
func (h *Handlers) attachImages(products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	rows, err := h.DB.Query(
		"SELECT id, product_id, image_url, is_primary FROM product_images ORDER BY product_id, id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.ImageURL, &img.IsPrimary); err != nil {
			return err
		}
		if p, ok := byID[img.ProductID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	return rows.Err()
}
