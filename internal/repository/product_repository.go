package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civic-connect/civic-api/internal/models"
)

const productColumns = `id, institution_id, institution_name, name, description, price, category, image_url, images, stock, condition, tags, location, contact_email, contact_phone, is_available, views, rating_average, rating_count, created_at, updated_at`

var productSorts = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"price":     "price",
	"name":      "name",
	"views":     "views",
	"rating":    "rating_average",
}

// ProductRepository provides database access for marketplace products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	const query = `INSERT INTO products (id, institution_id, institution_name, name, description, price, category, image_url, images, stock, condition, tags, location, contact_email, contact_phone, is_available, views, rating_average, rating_count, created_at, updated_at) VALUES (:id, :institution_id, :institution_name, :name, :description, :price, :category, :image_url, :images, :stock, :condition, :tags, :location, :contact_email, :contact_phone, :is_available, :views, :rating_average, :rating_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// FindByID returns a product by id.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &product, nil
}

// Update persists the mutable fields. Ratings change only through AddRating.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	const query = `UPDATE products SET name = :name, description = :description, price = :price, category = :category, image_url = :image_url, images = :images, stock = :stock, condition = :condition, tags = :tags, location = :location, contact_email = :contact_email, contact_phone = :contact_phone, is_available = :is_available, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete removes a product and, through the foreign key, its rating log.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementViews adds one view to the product.
func (r *ProductRepository) IncrementViews(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE products SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment product views: %w", err)
	}
	return nil
}

// AddRating appends to the rating log and folds the rating into the
// product's running average. The row is locked so concurrent ratings apply
// in sequence.
func (r *ProductRepository) AddRating(ctx context.Context, rating *models.ProductRating) (models.RatingSummary, error) {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("begin product rating tx: %w", err)
	}

	var current models.RatingSummary
	if err := tx.GetContext(ctx, &current, `SELECT rating_average AS average, rating_count AS count FROM products WHERE id = $1 FOR UPDATE`, rating.ProductID); err != nil {
		_ = tx.Rollback()
		if isMissing(err) {
			return models.RatingSummary{}, sql.ErrNoRows
		}
		return models.RatingSummary{}, fmt.Errorf("lock product rating: %w", err)
	}

	const insert = `INSERT INTO product_ratings (id, product_id, user_id, rating, created_at) VALUES (:id, :product_id, :user_id, :rating, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, rating); err != nil {
		_ = tx.Rollback()
		return models.RatingSummary{}, fmt.Errorf("insert product rating: %w", err)
	}

	next := models.RunningAverage(current, rating.Rating)
	if _, err := tx.ExecContext(ctx, `UPDATE products SET rating_average = $2, rating_count = $3, updated_at = $4 WHERE id = $1`, rating.ProductID, next.Average, next.Count, rating.CreatedAt); err != nil {
		_ = tx.Rollback()
		return models.RatingSummary{}, fmt.Errorf("update product rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.RatingSummary{}, fmt.Errorf("commit product rating tx: %w", err)
	}
	return next, nil
}

// List returns products matching the filter and the total match count.
func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	var conds conditions
	if filter.PublicOnly {
		conds.add("is_available = TRUE")
	}
	if filter.InstitutionID != "" {
		conds.add("institution_id = ?", filter.InstitutionID)
	}
	switch filter.Status {
	case models.ProductStatusAvailable:
		conds.add("is_available = TRUE")
	case models.ProductStatusSold:
		conds.add("is_available = FALSE")
	}
	if filter.Category != "" {
		conds.add("category = ?", filter.Category)
	}
	if filter.Condition != "" {
		conds.add("condition = ?", filter.Condition)
	}
	if filter.MinPrice != nil {
		conds.add("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conds.add("price <= ?", *filter.MaxPrice)
	}
	conds.contains(strings.TrimSpace(filter.Location), "location")
	conds.contains(strings.TrimSpace(filter.Search), "name", "description", "institution_name", "array_to_string(tags, ' ')")

	baseQuery := conds.apply(`FROM products WHERE 1=1`)
	listQuery := fmt.Sprintf("SELECT %s %s %s %s", productColumns, baseQuery,
		orderBy(filter.SortBy, filter.SortOrder, productSorts, "created_at"),
		paginate(filter.Limit, filter.Offset()))

	products := make([]models.Product, 0)
	if err := r.db.SelectContext(ctx, &products, listQuery, conds.args...); err != nil {
		if isMalformedID(err) {
			return products, 0, nil
		}
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	return products, total, nil
}

// Featured returns available products ordered by rating then views.
func (r *ProductRepository) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE is_available = TRUE ORDER BY rating_average DESC, views DESC LIMIT %d`, productColumns, limit)
	products := make([]models.Product, 0)
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	return products, nil
}

// Similar returns available products in the same category, excluding the product itself.
func (r *ProductRepository) Similar(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE category = $1 AND id <> $2 AND is_available = TRUE ORDER BY rating_average DESC, created_at DESC LIMIT %d`, productColumns, limit)
	products := make([]models.Product, 0)
	if err := r.db.SelectContext(ctx, &products, query, product.Category, product.ID); err != nil {
		return nil, fmt.Errorf("similar products: %w", err)
	}
	return products, nil
}
