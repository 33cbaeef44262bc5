package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

const defaultSalary = "Negotiable"

type jobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id string) (*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error)
}

type jobApplicationStats interface {
	StatsByJob(ctx context.Context, jobID string) (*models.ApplicationStats, error)
}

// JobService implements the job posting catalog.
type JobService struct {
	repo      jobRepository
	apps      jobApplicationStats
	validator *validator.Validate
	logger    *zap.Logger
	limits    ListLimits
	events    eventRecorder
	now       func() time.Time
}

// NewJobService creates a JobService.
func NewJobService(repo jobRepository, apps jobApplicationStats, validate *validator.Validate, logger *zap.Logger, limits ListLimits) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JobService{repo: repo, apps: apps, validator: validate, logger: logger, limits: limits, events: nopEvents{}, now: time.Now}
}

// WithEvents attaches a domain event recorder.
func (s *JobService) WithEvents(events eventRecorder) *JobService {
	if events != nil {
		s.events = events
	}
	return s
}

// Create posts a job for the calling institution. Ownership and display
// name come from the actor, never from the payload.
func (s *JobService) Create(ctx context.Context, actor *models.User, req dto.CreateJobRequest) (*models.Job, error) {
	if err := requireRole(actor, models.RoleInstitution); err != nil {
		return nil, err
	}
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid job payload")
	}

	job := &models.Job{
		InstitutionID:     actor.ID,
		InstitutionName:   actor.DisplayName(),
		Title:             strings.TrimSpace(req.Title),
		Description:       strings.TrimSpace(req.Description),
		Category:          req.Category,
		RequiredDocuments: req.RequiredDocuments,
		Deadline:          req.Deadline.UTC(),
		Salary:            req.Salary,
		Location:          strings.TrimSpace(req.Location),
		EmploymentType:    req.EmploymentType,
		ExperienceLevel:   req.ExperienceLevel,
		Skills:            req.Skills,
		ContactEmail:      req.ContactEmail,
		ContactPhone:      req.ContactPhone,
		IsActive:          true,
	}
	if job.Salary == "" {
		job.Salary = defaultSalary
	}
	if job.EmploymentType == "" {
		job.EmploymentType = models.EmploymentFullTime
	}
	if job.ExperienceLevel == "" {
		job.ExperienceLevel = models.ExperienceEntry
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create job")
	}
	s.events.RecordEvent("job_created")
	return job, nil
}

// List is the public listing: inactive and expired postings are hidden.
func (s *JobService) List(ctx context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	filter.PublicOnly = true
	filter.Status = ""
	return s.list(ctx, filter)
}

// ListByInstitution lists one institution's postings. Only the owner or an
// admin sees inactive and expired ones.
func (s *JobService) ListByInstitution(ctx context.Context, viewer *models.User, institutionID string, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	filter.InstitutionID = institutionID
	filter.Status = ""
	filter.PublicOnly = ownerOrAdmin(viewer, institutionID) != nil
	return s.list(ctx, filter)
}

// Mine lists the caller's own postings, optionally narrowed to active, expired or inactive.
func (s *JobService) Mine(ctx context.Context, actor *models.User, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleInstitution); err != nil {
		return nil, nil, err
	}
	switch filter.Status {
	case "", models.JobStatusActive, models.JobStatusExpired, models.JobStatusInactive:
	default:
		filter.Status = ""
	}
	filter.InstitutionID = actor.ID
	filter.PublicOnly = false
	return s.list(ctx, filter)
}

func (s *JobService) list(ctx context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	filter.ListParams = filter.ListParams.Normalize(s.limits.Jobs, s.limits.Max)
	jobs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list jobs")
	}
	return jobs, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Get returns a job. Authenticated viewers add one view; anonymous ones do not.
func (s *JobService) Get(ctx context.Context, viewer *models.User, id string) (*models.Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job")
	}
	if viewer != nil {
		if err := s.repo.IncrementViews(ctx, id); err != nil {
			s.logger.Warn("failed to increment job views", zap.String("job_id", id), zap.Error(err))
		} else {
			job.Views++
		}
	}
	return job, nil
}

// Update applies an allowlisted partial update for the owner or an admin.
func (s *JobService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateJobRequest) (*models.Job, error) {
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid job payload")
	}

	job, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		job.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		job.Category = *req.Category
	}
	if req.RequiredDocuments != nil {
		job.RequiredDocuments = req.RequiredDocuments
	}
	if req.Deadline != nil {
		job.Deadline = req.Deadline.UTC()
	}
	if req.Salary != nil {
		job.Salary = *req.Salary
	}
	if req.Location != nil {
		job.Location = strings.TrimSpace(*req.Location)
	}
	if req.EmploymentType != nil {
		job.EmploymentType = *req.EmploymentType
	}
	if req.ExperienceLevel != nil {
		job.ExperienceLevel = *req.ExperienceLevel
	}
	if req.Skills != nil {
		job.Skills = req.Skills
	}
	if req.ContactEmail != nil {
		job.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		job.ContactPhone = *req.ContactPhone
	}
	if req.IsActive != nil {
		job.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to update job")
	}
	return job, nil
}

// Delete removes the job and, with it, every application it received.
func (s *JobService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireApproved(actor); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrJobNotFound, "")
		}
		return appErrors.Internal(err, "failed to delete job")
	}
	s.events.RecordEvent("job_deleted")
	return nil
}

// Stats returns application counts by status plus views for the owner or an admin.
func (s *JobService) Stats(ctx context.Context, actor *models.User, id string) (*models.JobStats, error) {
	job, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.apps.StatsByJob(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load job statistics")
	}
	return &models.JobStats{ApplicationStats: *counts, Views: job.Views}, nil
}

// owned loads a job and checks the actor may manage it.
func (s *JobService) owned(ctx context.Context, actor *models.User, id string) (*models.Job, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job")
	}
	if err := ownerOrAdmin(actor, job.InstitutionID); err != nil {
		return nil, err
	}
	return job, nil
}
