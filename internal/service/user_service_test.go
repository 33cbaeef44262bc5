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
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.User
	lastFilter  models.UserFilter
	overviewArg time.Time
	deleted     []string
	auditLogs   []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, id string, status models.ApprovalStatus) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Status = status
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) Overview(ctx context.Context, since time.Time) (*models.UserOverview, error) {
	m.overviewArg = since
	return &models.UserOverview{TotalUsers: len(m.users)}, nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type stubRatings struct {
	summary models.RatingSummary
	err     error
}

func (s stubRatings) AverageRating(ctx context.Context, userID string) (models.RatingSummary, error) {
	return s.summary, s.err
}

var testAdmin = &models.User{ID: "admin", Role: models.RoleAdmin, Status: models.StatusApproved}

func newUserFixture() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{
		"admin": testAdmin,
		"inst":  {ID: "inst", Email: "inst@example.com", Role: models.RoleInstitution, Status: models.StatusPending},
	}}
}

func TestUserServiceListNormalizesPaging(t *testing.T) {
	repo := newUserFixture()
	svc := NewUserService(repo, nil, nil, nil, DefaultListLimits)

	_, pagination, err := svc.List(context.Background(), models.UserFilter{ListParams: models.ListParams{Limit: 500}})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastFilter.Limit)
	assert.Equal(t, 1, pagination.CurrentPage)
	assert.Equal(t, 2, pagination.Total)
	assert.Equal(t, 1, pagination.TotalPages)
}

func TestUserServiceGetIncludesRating(t *testing.T) {
	svc := NewUserService(newUserFixture(), stubRatings{summary: models.RatingSummary{Average: 4.5, Count: 2}}, nil, nil, DefaultListLimits)

	profile, err := svc.Get(context.Background(), "inst")
	require.NoError(t, err)
	assert.Equal(t, 4.5, profile.Rating.Average)
	assert.Equal(t, 2, profile.Rating.Count)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceGetToleratesRatingFailure(t *testing.T) {
	svc := NewUserService(newUserFixture(), stubRatings{err: errors.New("boom")}, nil, nil, DefaultListLimits)
	profile, err := svc.Get(context.Background(), "inst")
	require.NoError(t, err)
	assert.Zero(t, profile.Rating.Count)
}

func TestUserServiceUpdateStatus(t *testing.T) {
	repo := newUserFixture()
	svc := NewUserService(repo, nil, nil, nil, DefaultListLimits)

	user, err := svc.UpdateStatus(context.Background(), testAdmin, "inst", dto.UpdateUserStatusRequest{Status: models.StatusApproved}, models.RequestMeta{IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, user.Status)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionStatusChange, repo.auditLogs[0].Action)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(repo.auditLogs[0].OldValues))
}

func TestUserServiceUpdateStatusRequiresAdmin(t *testing.T) {
	svc := NewUserService(newUserFixture(), nil, nil, nil, DefaultListLimits)
	institution := &models.User{ID: "inst", Role: models.RoleInstitution, Status: models.StatusApproved}

	_, err := svc.UpdateStatus(context.Background(), institution, "inst", dto.UpdateUserStatusRequest{Status: models.StatusApproved}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}

func TestUserServiceUpdateRoleValidates(t *testing.T) {
	svc := NewUserService(newUserFixture(), nil, nil, nil, DefaultListLimits)

	_, err := svc.UpdateRole(context.Background(), testAdmin, "inst", dto.UpdateUserRoleRequest{Role: "SUPERADMIN"}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	user, err := svc.UpdateRole(context.Background(), testAdmin, "inst", dto.UpdateUserRoleRequest{Role: models.RoleUser}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestUserServiceDelete(t *testing.T) {
	repo := newUserFixture()
	svc := NewUserService(repo, nil, nil, nil, DefaultListLimits)

	err := svc.Delete(context.Background(), testAdmin, "admin", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrSelfDelete))

	require.NoError(t, svc.Delete(context.Background(), testAdmin, "inst", models.RequestMeta{}))
	assert.Equal(t, []string{"inst"}, repo.deleted)

	err = svc.Delete(context.Background(), testAdmin, "inst", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceOverviewUsesSevenDayWindow(t *testing.T) {
	repo := newUserFixture()
	svc := NewUserService(repo, nil, nil, nil, DefaultListLimits)
	fixed := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, overview.TotalUsers)
	assert.Equal(t, fixed.AddDate(0, 0, -7), repo.overviewArg)
}
