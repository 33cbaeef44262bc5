package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	"github.com/civic-connect/civic-api/internal/repository"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

type mockReviewRepo struct {
	reviews     map[string]*models.Review
	seq         int
	countCalls  int
	lastFilter  models.ReviewFilter
	recentLimit int
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: map[string]*models.Review{}}
}

func (m *mockReviewRepo) Exists(ctx context.Context, targetUserID, authorID string) (bool, error) {
	for _, r := range m.reviews {
		if r.TargetUserID == targetUserID && r.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	for _, r := range m.reviews {
		if r.TargetUserID == review.TargetUserID && r.AuthorID == review.AuthorID {
			return repository.ErrDuplicate
		}
	}
	m.seq++
	review.ID = "r" + string(rune('0'+m.seq))
	stored := *review
	m.reviews[review.ID] = &stored
	return nil
}

func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*models.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (m *mockReviewRepo) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	m.lastFilter = filter
	var out []models.Review
	for _, r := range m.reviews {
		if filter.TargetUserID != "" && r.TargetUserID != filter.TargetUserID {
			continue
		}
		if filter.AuthorID != "" && r.AuthorID != filter.AuthorID {
			continue
		}
		if filter.VisibleOnly && !r.IsVisible {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockReviewRepo) Recent(ctx context.Context, limit int) ([]models.Review, error) {
	m.recentLimit = limit
	return []models.Review{}, nil
}

func (m *mockReviewRepo) Update(ctx context.Context, review *models.Review) error {
	stored := *review
	m.reviews[review.ID] = &stored
	return nil
}

func (m *mockReviewRepo) SetResponse(ctx context.Context, id, text string, at time.Time) error {
	m.reviews[id].ResponseText = &text
	m.reviews[id].RespondedAt = &at
	return nil
}

func (m *mockReviewRepo) SetVisibility(ctx context.Context, id string, visible bool) error {
	m.reviews[id].IsVisible = visible
	return nil
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.reviews[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.reviews, id)
	return nil
}

func (m *mockReviewRepo) VisibleRatingCounts(ctx context.Context, targetUserID string) (map[int]int, error) {
	m.countCalls++
	counts := map[int]int{}
	for _, r := range m.reviews {
		if r.TargetUserID == targetUserID && r.IsVisible {
			counts[r.Rating]++
		}
	}
	return counts, nil
}

type stubUserLookup map[string]*models.User

func (s stubUserLookup) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type reviewFixture struct {
	repo  *mockReviewRepo
	cache *fakeCacheRepo
	svc   *ReviewService
}

func newReviewFixture() reviewFixture {
	repo := newMockReviewRepo()
	users := stubUserLookup{
		"target": approvedInstitution("target"),
		"a":      approvedUser("a"),
		"b":      approvedUser("b"),
		"c":      approvedUser("c"),
	}
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewReviewService(repo, users, cache, dto.NewValidator(), nil, DefaultListLimits)
	return reviewFixture{repo: repo, cache: cacheRepo, svc: svc}
}

func reviewReq(target string, rating int) dto.CreateReviewRequest {
	return dto.CreateReviewRequest{TargetUserID: target, Rating: rating, Comment: "Reliable and responsive partner."}
}

func TestReviewCreateDefaultsAndVisibility(t *testing.T) {
	f := newReviewFixture()
	review, err := f.svc.Create(context.Background(), approvedUser("a"), reviewReq("target", 4))
	require.NoError(t, err)
	assert.Equal(t, models.ContextGeneral, review.Context)
	assert.True(t, review.IsVisible)
	assert.Equal(t, "a", review.AuthorID)
}

func TestReviewCreateRules(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, approvedUser("a"), reviewReq("a", 5))
	assert.True(t, errors.Is(err, appErrors.ErrSelfReview))

	_, err = f.svc.Create(ctx, approvedUser("a"), reviewReq("ghost", 5))
	assert.True(t, errors.Is(err, appErrors.ErrTargetNotFound))

	_, err = f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 6))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.repo.reviews)

	_, err = f.svc.Create(ctx, pendingUser("p"), reviewReq("target", 5))
	assert.True(t, errors.Is(err, appErrors.ErrNotApproved))

	_, err = f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 5))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 3))
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateReview))
}

func TestReviewAverageRating(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()

	summary, err := f.svc.AverageRating(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, models.RatingSummary{}, summary)

	for author, rating := range map[string]int{"a": 5, "b": 4, "c": 4} {
		_, err := f.svc.Create(ctx, approvedUser(author), reviewReq("target", rating))
		require.NoError(t, err)
	}

	summary, err = f.svc.AverageRating(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, 4.3, summary.Average)
	assert.Equal(t, 3, summary.Count)
}

func TestReviewAverageRatingIsCachedAndInvalidated(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 2))
	require.NoError(t, err)

	_, err = f.svc.AverageRating(ctx, "target")
	require.NoError(t, err)
	_, err = f.svc.AverageRating(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.countCalls)

	hidden := false
	_, err = f.svc.SetVisibility(ctx, approvedInstitution("target"), created.ID, dto.ReviewVisibilityRequest{IsVisible: &hidden})
	require.NoError(t, err)

	summary, err := f.svc.AverageRating(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.countCalls)
	assert.Equal(t, models.RatingSummary{}, summary)
}

func TestReviewStatsDistribution(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	for author, rating := range map[string]int{"a": 5, "b": 5, "c": 1} {
		_, err := f.svc.Create(ctx, approvedUser(author), reviewReq("target", rating))
		require.NoError(t, err)
	}

	stats, err := f.svc.Stats(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 3.7, stats.Average)
	assert.Equal(t, models.RatingDistribution{1: 1, 2: 0, 3: 0, 4: 0, 5: 2}, stats.Distribution)

	again, hit, err := f.svc.CachedStats(ctx, "target")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stats.Average, again.Average)
}

func TestReviewUpdateAuthorOnly(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 3))
	require.NoError(t, err)
	five := 5

	_, err = f.svc.Update(ctx, testAdmin, created.ID, dto.UpdateReviewRequest{Rating: &five})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	updated, err := f.svc.Update(ctx, approvedUser("a"), created.ID, dto.UpdateReviewRequest{Rating: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
}

func TestReviewDeleteAuthorOrAdmin(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	first, err := f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 3))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, approvedUser("b"), reviewReq("target", 3))
	require.NoError(t, err)

	err = f.svc.Delete(ctx, approvedInstitution("target"), first.ID)
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	require.NoError(t, f.svc.Delete(ctx, approvedUser("a"), first.ID))
	require.NoError(t, f.svc.Delete(ctx, testAdmin, second.ID))
	assert.Empty(t, f.repo.reviews)
}

func TestReviewRespondTargetOnly(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 3))
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, approvedUser("a"), created.ID, dto.ReviewResponseRequest{Text: "thanks"})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	_, err = f.svc.Respond(ctx, testAdmin, created.ID, dto.ReviewResponseRequest{Text: "thanks"})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	review, err := f.svc.Respond(ctx, approvedInstitution("target"), created.ID, dto.ReviewResponseRequest{Text: " Thank you! "})
	require.NoError(t, err)
	require.NotNil(t, review.Response())
	assert.Equal(t, "Thank you!", review.Response().Text)
}

func TestReviewVisibilityTargetOrAdmin(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 3))
	require.NoError(t, err)
	hidden := false

	_, err = f.svc.SetVisibility(ctx, approvedUser("a"), created.ID, dto.ReviewVisibilityRequest{IsVisible: &hidden})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	review, err := f.svc.SetVisibility(ctx, testAdmin, created.ID, dto.ReviewVisibilityRequest{IsVisible: &hidden})
	require.NoError(t, err)
	assert.False(t, review.IsVisible)

	_, err = f.svc.SetVisibility(ctx, testAdmin, created.ID, dto.ReviewVisibilityRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReviewListingScopes(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	_, err := f.svc.Create(ctx, approvedUser("a"), reviewReq("target", 4))
	require.NoError(t, err)

	reviews, pagination, summary, err := f.svc.ListForUser(ctx, "target", models.ReviewFilter{Rating: 9})
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	assert.True(t, f.repo.lastFilter.VisibleOnly)
	assert.Zero(t, f.repo.lastFilter.Rating)
	assert.Equal(t, 1, pagination.Total)
	assert.Equal(t, 4.0, summary.Average)

	mine, _, err := f.svc.Mine(ctx, approvedUser("a"), models.ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.False(t, f.repo.lastFilter.VisibleOnly)

	_, err = f.svc.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultRecentReviews, f.repo.recentLimit)
	_, err = f.svc.Recent(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, f.repo.recentLimit)
}
