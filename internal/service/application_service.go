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
	"github.com/civic-connect/civic-api/internal/repository"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

type applicationRepository interface {
	Exists(ctx context.Context, jobID, userID string) (bool, error)
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	UpdateStatus(ctx context.Context, app *models.Application) error
	UpdateRating(ctx context.Context, app *models.Application) error
	Delete(ctx context.Context, id string) error
	StatsByUser(ctx context.Context, userID string) (*models.ApplicationStats, error)
	StatsByInstitution(ctx context.Context, institutionID string) (*models.ApplicationStats, error)
}

type applicationJobLookup interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
	CountByInstitution(ctx context.Context, institutionID string) (int, error)
}

// ApplicationService runs the job application workflow.
type ApplicationService struct {
	repo      applicationRepository
	jobs      applicationJobLookup
	validator *validator.Validate
	logger    *zap.Logger
	limits    ListLimits
	events    eventRecorder
	now       func() time.Time
}

// NewApplicationService creates an ApplicationService.
func NewApplicationService(repo applicationRepository, jobs applicationJobLookup, validate *validator.Validate, logger *zap.Logger, limits ListLimits) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationService{repo: repo, jobs: jobs, validator: validate, logger: logger, limits: limits, events: nopEvents{}, now: time.Now}
}

// WithEvents attaches a domain event recorder.
func (s *ApplicationService) WithEvents(events eventRecorder) *ApplicationService {
	if events != nil {
		s.events = events
	}
	return s
}

// Apply submits the caller's application to an open job.
func (s *ApplicationService) Apply(ctx context.Context, actor *models.User, req dto.ApplyRequest) (*models.Application, error) {
	if err := requireRole(actor, models.RoleUser); err != nil {
		return nil, err
	}
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid application payload")
	}

	job, err := s.jobs.FindByID(ctx, req.JobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job")
	}
	if !job.IsActive {
		return nil, appErrors.Clone(appErrors.ErrJobNotFound, "job is no longer available")
	}
	now := s.now().UTC()
	if job.IsExpired(now) {
		return nil, appErrors.Clone(appErrors.ErrDeadlinePassed, "")
	}

	exists, err := s.repo.Exists(ctx, job.ID, actor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing application")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateApplication, "")
	}

	docs := make(models.Documents, 0, len(req.Documents))
	for _, d := range req.Documents {
		if d.UploadedAt.IsZero() {
			d.UploadedAt = now
		}
		docs = append(docs, d)
	}

	app := &models.Application{
		JobID:       job.ID,
		UserID:      actor.ID,
		UserName:    actor.Name,
		UserEmail:   actor.Email,
		Status:      models.ApplicationPending,
		CoverLetter: strings.TrimSpace(req.CoverLetter),
		Documents:   docs,
		JobTitle:    job.Title,
		// Projections for the response; the row only stores ids.
		InstitutionID:   job.InstitutionID,
		InstitutionName: job.InstitutionName,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateApplication, "")
		}
		return nil, appErrors.Internal(err, "failed to submit application")
	}

	s.events.RecordEvent("application_submitted")
	return app, nil
}

// Mine lists the caller's applications, optionally by status.
func (s *ApplicationService) Mine(ctx context.Context, actor *models.User, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleUser); err != nil {
		return nil, nil, err
	}
	filter.UserID = actor.ID
	filter.JobID = ""
	return s.list(ctx, filter)
}

// ListForJob lists a job's applications for its owner or an admin.
func (s *ApplicationService) ListForJob(ctx context.Context, actor *models.User, jobID string, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	if _, err := s.ownedJob(ctx, actor, jobID); err != nil {
		return nil, nil, err
	}
	filter.JobID = jobID
	filter.UserID = ""
	return s.list(ctx, filter)
}

func (s *ApplicationService) list(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	filter.ListParams = filter.ListParams.Normalize(s.limits.Applications, s.limits.Max)
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list applications")
	}
	return apps, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Get returns an application to the applicant, the job owner or an admin.
func (s *ApplicationService) Get(ctx context.Context, actor *models.User, id string) (*models.Application, error) {
	app, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != actor.ID && ownerOrAdmin(actor, app.InstitutionID) != nil {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "")
	}
	return app, nil
}

// UpdateStatus lets the job owner or an admin move an application to any status.
// No transition order is enforced.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor *models.User, id string, req dto.UpdateApplicationStatusRequest) (*models.Application, error) {
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	app, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := ownerOrAdmin(actor, app.InstitutionID); err != nil {
		return nil, err
	}

	app.Status = req.Status
	if req.Feedback != nil {
		app.Feedback = *req.Feedback
	}
	if req.InterviewDate != nil {
		at := req.InterviewDate.UTC()
		app.InterviewDate = &at
	}
	if req.InterviewLocation != nil {
		app.InterviewLocation = *req.InterviewLocation
	}
	if req.Notes != nil {
		app.Notes = *req.Notes
	}

	if err := s.repo.UpdateStatus(ctx, app); err != nil {
		return nil, appErrors.Internal(err, "failed to update application status")
	}
	s.events.RecordEvent("application_" + strings.ToLower(string(req.Status)))
	return app, nil
}

// Rate records the applicant's 1-5 rating of an accepted application.
func (s *ApplicationService) Rate(ctx context.Context, actor *models.User, id string, req dto.RateRequest) (*models.Application, error) {
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid rating payload")
	}
	app, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "only the applicant can rate this application")
	}
	if app.Status != models.ApplicationAccepted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only accepted applications can be rated")
	}

	rating := req.Rating
	app.Rating = &rating
	if err := s.repo.UpdateRating(ctx, app); err != nil {
		return nil, appErrors.Internal(err, "failed to rate application")
	}
	return app, nil
}

// Delete withdraws an application. Allowed for the applicant or an admin.
func (s *ApplicationService) Delete(ctx context.Context, actor *models.User, id string) error {
	app, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(actor, app.UserID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrApplicationNotFound, "")
		}
		return appErrors.Internal(err, "failed to delete application")
	}
	return nil
}

// UserStats counts the caller's applications by status.
func (s *ApplicationService) UserStats(ctx context.Context, actor *models.User) (*models.ApplicationStats, error) {
	if err := requireRole(actor, models.RoleUser); err != nil {
		return nil, err
	}
	stats, err := s.repo.StatsByUser(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load application statistics")
	}
	return stats, nil
}

// InstitutionStats counts applications across the caller's jobs.
func (s *ApplicationService) InstitutionStats(ctx context.Context, actor *models.User) (*models.InstitutionApplicationStats, error) {
	if err := requireRole(actor, models.RoleInstitution); err != nil {
		return nil, err
	}
	stats, err := s.repo.StatsByInstitution(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load application statistics")
	}
	jobs, err := s.jobs.CountByInstitution(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count jobs")
	}
	return &models.InstitutionApplicationStats{ApplicationStats: *stats, TotalJobs: jobs}, nil
}

func (s *ApplicationService) load(ctx context.Context, actor *models.User, id string) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrApplicationNotFound, "failed to load application")
	}
	return app, nil
}

func (s *ApplicationService) ownedJob(ctx context.Context, actor *models.User, jobID string) (*models.Job, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job")
	}
	if err := ownerOrAdmin(actor, job.InstitutionID); err != nil {
		return nil, err
	}
	return job, nil
}
