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

// applicationSelect projects the job and applicant onto each application.
const applicationSelect = `SELECT a.id, a.job_id, a.user_id, u.name AS user_name, u.email AS user_email, a.status, a.cover_letter, a.documents, a.feedback, a.rating, a.interview_date, a.interview_location, a.notes, a.applied_at, a.last_updated, j.title AS job_title, j.institution_id, j.institution_name
FROM applications a
JOIN jobs j ON j.id = a.job_id
JOIN users u ON u.id = a.user_id`

var applicationSorts = map[string]string{
	"appliedAt":   "a.applied_at",
	"createdAt":   "a.applied_at",
	"lastUpdated": "a.last_updated",
	"status":      "a.status",
}

const statusCounts = `COUNT(*) AS total,
	COUNT(*) FILTER (WHERE a.status = 'PENDING') AS pending,
	COUNT(*) FILTER (WHERE a.status = 'INTERVIEWING') AS interviewing,
	COUNT(*) FILTER (WHERE a.status = 'ACCEPTED') AS accepted,
	COUNT(*) FILTER (WHERE a.status = 'REJECTED') AS rejected`

// ApplicationRepository provides database access for job applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Exists reports whether the user already applied to the job.
func (r *ApplicationRepository) Exists(ctx context.Context, jobID, userID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND user_id = $2)`, jobID, userID); err != nil {
		return false, fmt.Errorf("check application: %w", err)
	}
	return exists, nil
}

// Create inserts the application and bumps the job's application counter in
// the same transaction. A second application for the pair yields ErrDuplicate.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.AppliedAt = now
	app.LastUpdated = now
	if app.Documents == nil {
		app.Documents = models.Documents{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin application tx: %w", err)
	}
	const insert = `INSERT INTO applications (id, job_id, user_id, status, cover_letter, documents, applied_at, last_updated) VALUES (:id, :job_id, :user_id, :status, :cover_letter, :documents, :applied_at, :last_updated)`
	if _, err := tx.NamedExecContext(ctx, insert, app); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create application: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET application_count = application_count + 1 WHERE id = $1`, app.JobID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("increment application count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit application tx: %w", err)
	}
	return nil
}

// FindByID returns an application with its job and applicant projections.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := r.db.GetContext(ctx, &app, applicationSelect+` WHERE a.id = $1`, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// List returns applications filtered by job, user and status.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	var conds conditions
	if filter.JobID != "" {
		conds.add("a.job_id = ?", filter.JobID)
	}
	if filter.UserID != "" {
		conds.add("a.user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		conds.add("a.status = ?", filter.Status)
	}

	where := conds.apply(` WHERE 1=1`)
	listQuery := fmt.Sprintf("%s%s %s %s", applicationSelect, where,
		orderBy(filter.SortBy, filter.SortOrder, applicationSorts, "a.applied_at"),
		paginate(filter.Limit, filter.Offset()))

	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, listQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications a"+where, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// ListByJob returns every application for a job, oldest first.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, applicationSelect+` WHERE a.job_id = $1 ORDER BY a.applied_at ASC`, jobID); err != nil {
		return nil, fmt.Errorf("list job applications: %w", err)
	}
	return apps, nil
}

// UpdateStatus persists the reviewer-controlled fields and stamps last_updated.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, app *models.Application) error {
	app.LastUpdated = time.Now().UTC()
	const query = `UPDATE applications SET status = :status, feedback = :feedback, interview_date = :interview_date, interview_location = :interview_location, notes = :notes, last_updated = :last_updated WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}

// UpdateRating stores the applicant's rating and stamps last_updated.
func (r *ApplicationRepository) UpdateRating(ctx context.Context, app *models.Application) error {
	app.LastUpdated = time.Now().UTC()
	const query = `UPDATE applications SET rating = $2, last_updated = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, app.ID, app.Rating, app.LastUpdated); err != nil {
		return fmt.Errorf("update application rating: %w", err)
	}
	return nil
}

// Delete removes an application. The job counter records submissions and is left unchanged.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StatsByUser counts a user's applications by status.
func (r *ApplicationRepository) StatsByUser(ctx context.Context, userID string) (*models.ApplicationStats, error) {
	var stats models.ApplicationStats
	if err := r.db.GetContext(ctx, &stats, `SELECT `+statusCounts+` FROM applications a WHERE a.user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("user application stats: %w", err)
	}
	return &stats, nil
}

// StatsByJob counts a job's applications by status.
func (r *ApplicationRepository) StatsByJob(ctx context.Context, jobID string) (*models.ApplicationStats, error) {
	var stats models.ApplicationStats
	if err := r.db.GetContext(ctx, &stats, `SELECT `+statusCounts+` FROM applications a WHERE a.job_id = $1`, jobID); err != nil {
		return nil, fmt.Errorf("job application stats: %w", err)
	}
	return &stats, nil
}

// StatsByInstitution counts applications across all of an institution's jobs.
func (r *ApplicationRepository) StatsByInstitution(ctx context.Context, institutionID string) (*models.ApplicationStats, error) {
	var stats models.ApplicationStats
	query := `SELECT ` + statusCounts + ` FROM applications a JOIN jobs j ON j.id = a.job_id WHERE j.institution_id = $1`
	if err := r.db.GetContext(ctx, &stats, query, institutionID); err != nil {
		return nil, fmt.Errorf("institution application stats: %w", err)
	}
	return &stats, nil
}
