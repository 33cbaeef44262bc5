package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civic-connect/civic-api/internal/models"
)

const reviewSelect = `SELECT r.id, r.target_user_id, r.author_id, au.name AS author_name, tu.name AS target_name, r.rating, r.comment, r.context, r.context_id, r.is_visible, r.response_text, r.responded_at, r.created_at, r.updated_at
FROM reviews r
JOIN users au ON au.id = r.author_id
JOIN users tu ON tu.id = r.target_user_id`

var reviewSorts = map[string]string{
	"createdAt": "r.created_at",
	"updatedAt": "r.updated_at",
	"rating":    "r.rating",
}

// ReviewRepository provides database access for user reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Exists reports whether author already reviewed target.
func (r *ReviewRepository) Exists(ctx context.Context, targetUserID, authorID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reviews WHERE target_user_id = $1 AND author_id = $2)`, targetUserID, authorID); err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return exists, nil
}

// Create inserts a review. A second review for the pair yields ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	const query = `INSERT INTO reviews (id, target_user_id, author_id, rating, comment, context, context_id, is_visible, created_at, updated_at) VALUES (:id, :target_user_id, :author_id, :rating, :comment, :context, :context_id, :is_visible, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// FindByID returns a review by id.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := r.db.GetContext(ctx, &review, reviewSelect+` WHERE r.id = $1`, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &review, nil
}

// List returns reviews filtered by target, author, rating and visibility.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	var conds conditions
	if filter.TargetUserID != "" {
		conds.add("r.target_user_id = ?", filter.TargetUserID)
	}
	if filter.AuthorID != "" {
		conds.add("r.author_id = ?", filter.AuthorID)
	}
	if filter.Rating > 0 {
		conds.add("r.rating = ?", filter.Rating)
	}
	if filter.VisibleOnly {
		conds.add("r.is_visible = TRUE")
	}

	where := conds.apply(` WHERE 1=1`)
	listQuery := fmt.Sprintf("%s%s %s %s", reviewSelect, where,
		orderBy(filter.SortBy, filter.SortOrder, reviewSorts, "r.created_at"),
		paginate(filter.Limit, filter.Offset()))

	reviews := make([]models.Review, 0)
	if err := r.db.SelectContext(ctx, &reviews, listQuery, conds.args...); err != nil {
		if isMalformedID(err) {
			return reviews, 0, nil
		}
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reviews r"+where, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}

// Recent returns the newest visible reviews.
func (r *ReviewRepository) Recent(ctx context.Context, limit int) ([]models.Review, error) {
	query := fmt.Sprintf("%s WHERE r.is_visible = TRUE ORDER BY r.created_at DESC LIMIT %d", reviewSelect, limit)
	reviews := make([]models.Review, 0)
	if err := r.db.SelectContext(ctx, &reviews, query); err != nil {
		return nil, fmt.Errorf("recent reviews: %w", err)
	}
	return reviews, nil
}

// Update persists the author-editable fields.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reviews SET rating = :rating, comment = :comment, context = :context, context_id = :context_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// SetResponse stores the target's reply.
func (r *ReviewRepository) SetResponse(ctx context.Context, id, text string, at time.Time) error {
	const query = `UPDATE reviews SET response_text = $2, responded_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, text, at); err != nil {
		return fmt.Errorf("set review response: %w", err)
	}
	return nil
}

// SetVisibility toggles whether the review counts towards the target's rating.
func (r *ReviewRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	const query = `UPDATE reviews SET is_visible = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, visible, time.Now().UTC()); err != nil {
		return fmt.Errorf("set review visibility: %w", err)
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// VisibleRatingCounts returns how many visible reviews of each star value target a user.
func (r *ReviewRepository) VisibleRatingCounts(ctx context.Context, targetUserID string) (map[int]int, error) {
	var rows []struct {
		Rating int `db:"rating"`
		Count  int `db:"count"`
	}
	const query = `SELECT rating, COUNT(*) AS count FROM reviews WHERE target_user_id = $1 AND is_visible = TRUE GROUP BY rating`
	if err := r.db.SelectContext(ctx, &rows, query, targetUserID); err != nil {
		if isMalformedID(err) {
			return map[int]int{}, nil
		}
		return nil, fmt.Errorf("review rating counts: %w", err)
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.Rating] = row.Count
	}
	return counts, nil
}
