package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateStatus(ctx context.Context, id string, status models.ApprovalStatus) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	Delete(ctx context.Context, id string) error
	Overview(ctx context.Context, since time.Time) (*models.UserOverview, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ratingSource supplies a user's visible review aggregate.
type ratingSource interface {
	AverageRating(ctx context.Context, userID string) (models.RatingSummary, error)
}

// UserService handles account administration and public profiles.
type UserService struct {
	repo      userRepository
	ratings   ratingSource
	validator *validator.Validate
	logger    *zap.Logger
	limits    ListLimits
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, ratings ratingSource, validate *validator.Validate, logger *zap.Logger, limits ListLimits) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, ratings: ratings, validator: validate, logger: logger, limits: limits, now: time.Now}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	filter.ListParams = filter.ListParams.Normalize(s.limits.Users, s.limits.Max)
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Get returns a public profile with the user's visible rating.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	profile := &models.UserProfile{User: *user}
	if s.ratings != nil {
		rating, err := s.ratings.AverageRating(ctx, id)
		if err != nil {
			s.logger.Warn("failed to load user rating", zap.String("user_id", id), zap.Error(err))
		} else {
			profile.Rating = rating
		}
	}
	return profile, nil
}

// UpdateStatus approves or rejects an account.
func (s *UserService) UpdateStatus(ctx context.Context, actor *models.User, id string, req dto.UpdateUserStatusRequest, meta models.RequestMeta) (*models.User, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	old := user.Status

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, s.mutationError(err, "failed to update user status")
	}
	user.Status = req.Status

	s.audit(ctx, actor.ID, models.AuditActionStatusChange, id, meta,
		map[string]interface{}{"status": old}, map[string]interface{}{"status": req.Status})
	return user, nil
}

// UpdateRole reassigns an account's single role.
func (s *UserService) UpdateRole(ctx context.Context, actor *models.User, id string, req dto.UpdateUserRoleRequest, meta models.RequestMeta) (*models.User, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid role payload")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	old := user.Role

	if err := s.repo.UpdateRole(ctx, id, req.Role); err != nil {
		return nil, s.mutationError(err, "failed to update user role")
	}
	user.Role = req.Role

	s.audit(ctx, actor.ID, models.AuditActionRoleChange, id, meta,
		map[string]interface{}{"role": old}, map[string]interface{}{"role": req.Role})
	return user, nil
}

// Delete removes an account together with everything it owns.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string, meta models.RequestMeta) error {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return appErrors.Clone(appErrors.ErrSelfDelete, "")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mutationError(err, "failed to delete user")
	}

	s.audit(ctx, actor.ID, models.AuditActionUserDelete, id, meta,
		map[string]interface{}{"email": user.Email, "role": user.Role}, nil)
	return nil
}

// Overview aggregates account counts; "recent" covers the last seven days.
func (s *UserService) Overview(ctx context.Context) (*models.UserOverview, error) {
	overview, err := s.repo.Overview(ctx, s.now().UTC().AddDate(0, 0, -7))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load user overview")
	}
	return overview, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) mutationError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return appErrors.Internal(err, msg)
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID string, meta models.RequestMeta, oldValues, newValues map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}
