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

const jobColumns = `id, institution_id, institution_name, title, description, category, required_documents, deadline, salary, location, employment_type, experience_level, skills, contact_email, contact_phone, is_active, views, application_count, created_at, updated_at`

var jobSorts = map[string]string{
	"createdAt":        "created_at",
	"updatedAt":        "updated_at",
	"deadline":         "deadline",
	"title":            "title",
	"views":            "views",
	"applicationCount": "application_count",
}

// JobRepository provides database access for job postings.
type JobRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db, now: time.Now}
}

// Create inserts a job.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := r.now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	const query = `INSERT INTO jobs (id, institution_id, institution_name, title, description, category, required_documents, deadline, salary, location, employment_type, experience_level, skills, contact_email, contact_phone, is_active, views, application_count, created_at, updated_at) VALUES (:id, :institution_id, :institution_name, :title, :description, :category, :required_documents, :deadline, :salary, :location, :employment_type, :experience_level, :skills, :contact_email, :contact_phone, :is_active, :views, :application_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	job.Expired = job.IsExpired(now)
	return nil
}

// FindByID returns a job by id with its expiry derived.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	var job models.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find job: %w", err)
	}
	job.Expired = job.IsExpired(r.now())
	return &job, nil
}

// Update persists the mutable fields. Ownership columns are never written.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = r.now().UTC()
	const query = `UPDATE jobs SET title = :title, description = :description, category = :category, required_documents = :required_documents, deadline = :deadline, salary = :salary, location = :location, employment_type = :employment_type, experience_level = :experience_level, skills = :skills, contact_email = :contact_email, contact_phone = :contact_phone, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	job.Expired = job.IsExpired(r.now())
	return nil
}

// Delete removes the job's applications and then the job in one transaction.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete job tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE job_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete job applications: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete job tx: %w", err)
	}
	return nil
}

// IncrementViews adds one view to the job.
func (r *JobRepository) IncrementViews(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE jobs SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment job views: %w", err)
	}
	return nil
}

// CountByInstitution returns how many jobs an institution owns.
func (r *JobRepository) CountByInstitution(ctx context.Context, institutionID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM jobs WHERE institution_id = $1`, institutionID); err != nil {
		return 0, fmt.Errorf("count institution jobs: %w", err)
	}
	return total, nil
}

// List returns jobs matching the filter and the total match count.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	now := r.now().UTC()
	var conds conditions
	if filter.PublicOnly {
		conds.add("is_active = TRUE")
		conds.add("deadline > ?", now)
	}
	if filter.InstitutionID != "" {
		conds.add("institution_id = ?", filter.InstitutionID)
	}
	switch filter.Status {
	case models.JobStatusActive:
		conds.add("is_active = TRUE")
		conds.add("deadline > ?", now)
	case models.JobStatusExpired:
		conds.add("deadline < ?", now)
	case models.JobStatusInactive:
		conds.add("is_active = FALSE")
	}
	if filter.Category != "" {
		conds.add("category = ?", filter.Category)
	}
	if filter.EmploymentType != "" {
		conds.add("employment_type = ?", filter.EmploymentType)
	}
	if filter.ExperienceLevel != "" {
		conds.add("experience_level = ?", filter.ExperienceLevel)
	}
	conds.contains(strings.TrimSpace(filter.Location), "location")
	conds.contains(strings.TrimSpace(filter.Search), "title", "description", "institution_name")

	baseQuery := conds.apply(`FROM jobs WHERE 1=1`)
	listQuery := fmt.Sprintf("SELECT %s %s %s %s", jobColumns, baseQuery,
		orderBy(filter.SortBy, filter.SortOrder, jobSorts, "created_at"),
		paginate(filter.Limit, filter.Offset()))

	jobs := make([]models.Job, 0)
	if err := r.db.SelectContext(ctx, &jobs, listQuery, conds.args...); err != nil {
		if isMalformedID(err) {
			return jobs, 0, nil
		}
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	for i := range jobs {
		jobs[i].Expired = jobs[i].IsExpired(now)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return jobs, total, nil
}
