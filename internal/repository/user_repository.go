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

const userColumns = `id, name, email, password_hash, role, status, language, institution_name, bio, location, phone, avatar, is_verified, last_login, created_at, updated_at`

var userSorts = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
	"lastLogin": "last_login",
}

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, name, email, password_hash, role, status, language, institution_name, bio, location, phone, avatar, is_verified, created_at, updated_at) VALUES (:id, :name, :email, :password_hash, :role, :status, :language, :institution_name, :bio, :location, :phone, :avatar, :is_verified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile persists the self-service profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, bio = :bio, location = :location, phone = :phone, language = :language, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateStatus sets the approval status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.ApprovalStatus) error {
	const query = `UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update user status", query, id, status, time.Now().UTC())
}

// UpdateRole sets the role.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	const query = `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update user role", query, id, role, time.Now().UTC())
}

// Delete removes the user. Owned jobs, products, applications and reviews
// go with it through foreign key cascades.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	return r.execOne(ctx, "delete user", query, id)
}

// execOne runs a single-row statement and reports sql.ErrNoRows when nothing matched.
func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var conds conditions
	if filter.Role != nil {
		conds.add("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		conds.add("status = ?", *filter.Status)
	}
	conds.contains(strings.TrimSpace(filter.Search), "name", "email")

	baseQuery := conds.apply(`FROM users WHERE 1=1`)
	listQuery := fmt.Sprintf("SELECT %s %s %s %s", userColumns, baseQuery,
		orderBy(filter.SortBy, filter.SortOrder, userSorts, "created_at"),
		paginate(filter.Limit, filter.Offset()))

	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, listQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Overview aggregates account counts; recent counts users created after since.
func (r *UserRepository) Overview(ctx context.Context, since time.Time) (*models.UserOverview, error) {
	const query = `SELECT
		COUNT(*) AS total_users,
		COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_users,
		COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved_users,
		COUNT(*) FILTER (WHERE role = 'INSTITUTION') AS institution_users,
		COUNT(*) FILTER (WHERE role = 'USER') AS regular_users,
		COUNT(*) FILTER (WHERE created_at >= $1) AS recent_users
	FROM users`
	var overview models.UserOverview
	if err := r.db.GetContext(ctx, &overview, query, since); err != nil {
		return nil, fmt.Errorf("user overview: %w", err)
	}
	return &overview, nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
