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

const (
	defaultRecentReviews = 5
	ratingCacheKeyPrefix = "ratings:user:"
)

type reviewRepository interface {
	Exists(ctx context.Context, targetUserID, authorID string) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id string) (*models.Review, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
	Recent(ctx context.Context, limit int) ([]models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	SetResponse(ctx context.Context, id, text string, at time.Time) error
	SetVisibility(ctx context.Context, id string, visible bool) error
	Delete(ctx context.Context, id string) error
	VisibleRatingCounts(ctx context.Context, targetUserID string) (map[int]int, error)
}

type reviewTargetLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type ratingCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReviewService manages user-to-user reviews and the derived reputation.
type ReviewService struct {
	repo      reviewRepository
	users     reviewTargetLookup
	cache     ratingCache
	validator *validator.Validate
	logger    *zap.Logger
	limits    ListLimits
	events    eventRecorder
	now       func() time.Time
}

// NewReviewService creates a ReviewService. cache may be nil.
func NewReviewService(repo reviewRepository, users reviewTargetLookup, cache ratingCache, validate *validator.Validate, logger *zap.Logger, limits ListLimits) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{repo: repo, users: users, cache: cache, validator: validate, logger: logger, limits: limits, events: nopEvents{}, now: time.Now}
}

// WithEvents attaches a domain event recorder.
func (s *ReviewService) WithEvents(events eventRecorder) *ReviewService {
	if events != nil {
		s.events = events
	}
	return s
}

// Create stores the caller's single review of another user.
func (s *ReviewService) Create(ctx context.Context, actor *models.User, req dto.CreateReviewRequest) (*models.Review, error) {
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	if req.TargetUserID == actor.ID {
		return nil, appErrors.Clone(appErrors.ErrSelfReview, "")
	}

	target, err := s.users.FindByID(ctx, req.TargetUserID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrTargetNotFound, "failed to load target user")
	}

	exists, err := s.repo.Exists(ctx, target.ID, actor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateReview, "")
	}

	review := &models.Review{
		TargetUserID: target.ID,
		TargetName:   target.Name,
		AuthorID:     actor.ID,
		AuthorName:   actor.Name,
		Rating:       req.Rating,
		Comment:      strings.TrimSpace(req.Comment),
		Context:      req.Context,
		ContextID:    req.ContextID,
		IsVisible:    true,
	}
	if review.Context == "" {
		review.Context = models.ContextGeneral
	}

	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateReview, "")
		}
		return nil, appErrors.Internal(err, "failed to create review")
	}

	s.forget(ctx, target.ID)
	s.events.RecordEvent("review_created")
	return review, nil
}

// Update lets the author revise rating and comment.
func (s *ReviewService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateReviewRequest) (*models.Review, error) {
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.AuthorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "only the author can edit this review")
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = strings.TrimSpace(*req.Comment)
	}
	if err := s.repo.Update(ctx, review); err != nil {
		return nil, appErrors.Internal(err, "failed to update review")
	}
	s.forget(ctx, review.TargetUserID)
	return review, nil
}

// Delete removes a review. Allowed for the author or an admin.
func (s *ReviewService) Delete(ctx context.Context, actor *models.User, id string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	review, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(actor, review.AuthorID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrReviewNotFound, "")
		}
		return appErrors.Internal(err, "failed to delete review")
	}
	s.forget(ctx, review.TargetUserID)
	return nil
}

// Respond stores the reviewed user's public reply.
func (s *ReviewService) Respond(ctx context.Context, actor *models.User, id string, req dto.ReviewResponseRequest) (*models.Review, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid response payload")
	}
	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.TargetUserID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "only the reviewed user can respond")
	}

	text := strings.TrimSpace(req.Text)
	at := s.now().UTC()
	if err := s.repo.SetResponse(ctx, id, text, at); err != nil {
		return nil, appErrors.Internal(err, "failed to save response")
	}
	review.ResponseText = &text
	review.RespondedAt = &at
	return review, nil
}

// SetVisibility hides or shows a review. Allowed for the reviewed user or an admin.
func (s *ReviewService) SetVisibility(ctx context.Context, actor *models.User, id string, req dto.ReviewVisibilityRequest) (*models.Review, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid visibility payload")
	}
	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownerOrAdmin(actor, review.TargetUserID); err != nil {
		return nil, err
	}
	if err := s.repo.SetVisibility(ctx, id, *req.IsVisible); err != nil {
		return nil, appErrors.Internal(err, "failed to update visibility")
	}
	review.IsVisible = *req.IsVisible
	s.forget(ctx, review.TargetUserID)
	return review, nil
}

// ListForUser returns a user's visible reviews with their aggregate rating.
func (s *ReviewService) ListForUser(ctx context.Context, userID string, filter models.ReviewFilter) ([]models.Review, *models.Pagination, models.RatingSummary, error) {
	filter.TargetUserID = userID
	filter.AuthorID = ""
	filter.VisibleOnly = true
	if filter.Rating < 1 || filter.Rating > 5 {
		filter.Rating = 0
	}
	reviews, pagination, err := s.list(ctx, filter)
	if err != nil {
		return nil, nil, models.RatingSummary{}, err
	}
	summary, err := s.AverageRating(ctx, userID)
	if err != nil {
		return nil, nil, models.RatingSummary{}, err
	}
	return reviews, pagination, summary, nil
}

// Mine lists the reviews the caller wrote, hidden ones included.
func (s *ReviewService) Mine(ctx context.Context, actor *models.User, filter models.ReviewFilter) ([]models.Review, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	filter.AuthorID = actor.ID
	filter.TargetUserID = ""
	filter.VisibleOnly = false
	return s.list(ctx, filter)
}

func (s *ReviewService) list(ctx context.Context, filter models.ReviewFilter) ([]models.Review, *models.Pagination, error) {
	filter.ListParams = filter.ListParams.Normalize(s.limits.Reviews, s.limits.Max)
	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list reviews")
	}
	return reviews, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Recent returns the newest visible reviews across all users.
func (s *ReviewService) Recent(ctx context.Context, limit int) ([]models.Review, error) {
	if limit <= 0 {
		limit = defaultRecentReviews
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}
	reviews, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recent reviews")
	}
	return reviews, nil
}

// Stats returns the visible average, count and per-star distribution.
func (s *ReviewService) Stats(ctx context.Context, userID string) (models.ReviewStats, error) {
	stats, _, err := s.CachedStats(ctx, userID)
	return stats, err
}

// CachedStats is Stats that also reports whether the cache served the result.
func (s *ReviewService) CachedStats(ctx context.Context, userID string) (models.ReviewStats, bool, error) {
	key := ratingCacheKeyPrefix + userID
	var cached models.ReviewStats
	if hit, _ := s.cacheGet(ctx, key, &cached); hit {
		return cached, true, nil
	}

	counts, err := s.repo.VisibleRatingCounts(ctx, userID)
	if err != nil {
		return models.ReviewStats{}, false, appErrors.Internal(err, "failed to compute rating")
	}
	stats := models.NewReviewStats(counts)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, stats, 0)
	}
	return stats, false, nil
}

// AverageRating is the mean of visible ratings rounded to one decimal; {0,0} when none.
func (s *ReviewService) AverageRating(ctx context.Context, userID string) (models.RatingSummary, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	return models.RatingSummary{Average: stats.Average, Count: stats.Count}, nil
}

func (s *ReviewService) load(ctx context.Context, id string) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrReviewNotFound, "failed to load review")
	}
	return review, nil
}

func (s *ReviewService) cacheGet(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	return s.cache.Get(ctx, key, dest)
}

// forget drops the cached aggregate of a user whose reviews changed.
func (s *ReviewService) forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ratingCacheKeyPrefix+userID); err != nil {
		s.logger.Warn("failed to invalidate rating cache", zap.String("user_id", userID), zap.Error(err))
	}
}
