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

// mockApplicationRepo behaves like the table: (job_id, user_id) is unique and
// a successful insert bumps the job's counter.
type mockApplicationRepo struct {
	jobs       *mockJobRepo
	apps       map[string]*models.Application
	seq        int
	skipExists bool
	lastFilter models.ApplicationFilter
}

func newMockApplicationRepo(jobs *mockJobRepo) *mockApplicationRepo {
	return &mockApplicationRepo{jobs: jobs, apps: map[string]*models.Application{}}
}

func (m *mockApplicationRepo) Exists(ctx context.Context, jobID, userID string) (bool, error) {
	if m.skipExists {
		return false, nil
	}
	for _, a := range m.apps {
		if a.JobID == jobID && a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	for _, a := range m.apps {
		if a.JobID == app.JobID && a.UserID == app.UserID {
			return repository.ErrDuplicate
		}
	}
	m.seq++
	app.ID = "app-" + string(rune('0'+m.seq))
	stored := *app
	m.apps[app.ID] = &stored
	if j, ok := m.jobs.jobs[app.JobID]; ok {
		j.ApplicationCount++
	}
	return nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	if j, ok := m.jobs.jobs[a.JobID]; ok {
		clone.InstitutionID = j.InstitutionID
	}
	return &clone, nil
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	m.lastFilter = filter
	var out []models.Application
	for _, a := range m.apps {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.JobID != "" && a.JobID != filter.JobID {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockApplicationRepo) UpdateStatus(ctx context.Context, app *models.Application) error {
	stored := *app
	m.apps[app.ID] = &stored
	return nil
}

func (m *mockApplicationRepo) UpdateRating(ctx context.Context, app *models.Application) error {
	m.apps[app.ID].Rating = app.Rating
	return nil
}

func (m *mockApplicationRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.apps[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.apps, id)
	return nil
}

func (m *mockApplicationRepo) StatsByUser(ctx context.Context, userID string) (*models.ApplicationStats, error) {
	stats := &models.ApplicationStats{}
	for _, a := range m.apps {
		if a.UserID == userID {
			stats.Total++
			if a.Status == models.ApplicationPending {
				stats.Pending++
			}
		}
	}
	return stats, nil
}

func (m *mockApplicationRepo) StatsByInstitution(ctx context.Context, institutionID string) (*models.ApplicationStats, error) {
	return &models.ApplicationStats{Total: len(m.apps)}, nil
}

type applicationFixture struct {
	jobs *mockJobRepo
	apps *mockApplicationRepo
	svc  *ApplicationService
}

func newApplicationFixture(jobs ...*models.Job) applicationFixture {
	jobRepo := newMockJobRepo(jobs...)
	appRepo := newMockApplicationRepo(jobRepo)
	svc := NewApplicationService(appRepo, jobRepo, dto.NewValidator(), nil, DefaultListLimits)
	return applicationFixture{jobs: jobRepo, apps: appRepo, svc: svc}
}

func openJob(id, institutionID string) *models.Job {
	return &models.Job{ID: id, InstitutionID: institutionID, Title: "Teacher", IsActive: true, Deadline: time.Now().Add(24 * time.Hour)}
}

func TestApplicationWorkflowScenario(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	ctx := context.Background()
	instA := approvedInstitution("inst-a")
	userB := approvedUser("user-b")
	instC := approvedInstitution("inst-c")

	app, err := f.svc.Apply(ctx, userB, dto.ApplyRequest{JobID: "J", CoverLetter: "I teach maths."})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, 1, f.jobs.jobs["J"].ApplicationCount)

	app, err = f.svc.UpdateStatus(ctx, instA, app.ID, dto.UpdateApplicationStatusRequest{Status: models.ApplicationAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, app.Status)

	app, err = f.svc.Rate(ctx, userB, app.ID, dto.RateRequest{Rating: 5})
	require.NoError(t, err)
	require.NotNil(t, app.Rating)
	assert.Equal(t, 5, *app.Rating)

	_, err = f.svc.UpdateStatus(ctx, instC, app.ID, dto.UpdateApplicationStatusRequest{Status: models.ApplicationRejected})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}

func TestApplicationApplyDeadlinePassed(t *testing.T) {
	job := openJob("J", "inst-a")
	job.Deadline = time.Now().Add(-time.Hour)
	f := newApplicationFixture(job)

	_, err := f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "J"})
	assert.True(t, errors.Is(err, appErrors.ErrDeadlinePassed))
	assert.Empty(t, f.apps.apps)
	assert.Zero(t, f.jobs.jobs["J"].ApplicationCount)
}

func TestApplicationApplyMissingOrInactiveJob(t *testing.T) {
	inactive := openJob("J", "inst-a")
	inactive.IsActive = false
	f := newApplicationFixture(inactive)

	_, err := f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "J"})
	assert.True(t, errors.Is(err, appErrors.ErrJobNotFound))

	_, err = f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrJobNotFound))
}

func TestApplicationApplyDuplicate(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	user := approvedUser("u1")

	_, err := f.svc.Apply(context.Background(), user, dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)

	_, err = f.svc.Apply(context.Background(), user, dto.ApplyRequest{JobID: "J"})
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateApplication))
	assert.Equal(t, 1, f.jobs.jobs["J"].ApplicationCount)
}

func TestApplicationApplyDuplicateCaughtByConstraint(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	f.apps.skipExists = true
	user := approvedUser("u1")

	_, err := f.svc.Apply(context.Background(), user, dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)
	_, err = f.svc.Apply(context.Background(), user, dto.ApplyRequest{JobID: "J"})
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateApplication))
}

func TestApplicationCountMatchesSuccessfulApplies(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	for _, id := range []string{"u1", "u2", "u3", "u4"} {
		_, err := f.svc.Apply(context.Background(), approvedUser(id), dto.ApplyRequest{JobID: "J"})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, f.jobs.jobs["J"].ApplicationCount)
}

func TestApplicationApplyGate(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))

	_, err := f.svc.Apply(context.Background(), pendingUser("u1"), dto.ApplyRequest{JobID: "J"})
	assert.True(t, errors.Is(err, appErrors.ErrNotApproved))

	_, err = f.svc.Apply(context.Background(), approvedInstitution("inst-b"), dto.ApplyRequest{JobID: "J"})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}

func TestApplicationRateRequiresAccepted(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	user := approvedUser("u1")
	app, err := f.svc.Apply(context.Background(), user, dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)

	_, err = f.svc.Rate(context.Background(), user, app.ID, dto.RateRequest{Rating: 4})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	_, err = f.svc.Rate(context.Background(), approvedUser("u2"), app.ID, dto.RateRequest{Rating: 4})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}

func TestApplicationStatusTransitionsArePermissive(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	app, err := f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)

	for _, status := range []models.ApplicationStatus{models.ApplicationRejected, models.ApplicationPending, models.ApplicationAccepted} {
		updated, err := f.svc.UpdateStatus(context.Background(), testAdmin, app.ID, dto.UpdateApplicationStatusRequest{Status: status, Feedback: strPtr("noted")})
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		assert.Equal(t, "noted", updated.Feedback)
	}
}

func TestApplicationGetVisibility(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	app, err := f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)

	for _, actor := range []*models.User{approvedUser("u1"), approvedInstitution("inst-a"), testAdmin} {
		_, err := f.svc.Get(context.Background(), actor, app.ID)
		assert.NoError(t, err, actor.ID)
	}
	_, err = f.svc.Get(context.Background(), approvedUser("u2"), app.ID)
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}

func TestApplicationDelete(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	app, err := f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), approvedInstitution("inst-a"), app.ID)
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	require.NoError(t, f.svc.Delete(context.Background(), approvedUser("u1"), app.ID))
	err = f.svc.Delete(context.Background(), approvedUser("u1"), app.ID)
	assert.True(t, errors.Is(err, appErrors.ErrApplicationNotFound))
}

func TestApplicationListingScopes(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"))
	_, err := f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)

	apps, pagination, err := f.svc.Mine(context.Background(), approvedUser("u1"), models.ApplicationFilter{UserID: "someone-else"})
	require.NoError(t, err)
	assert.Len(t, apps, 1)
	assert.Equal(t, "u1", f.apps.lastFilter.UserID)
	assert.Equal(t, 1, pagination.TotalPages)

	_, _, err = f.svc.ListForJob(context.Background(), approvedInstitution("inst-b"), "J", models.ApplicationFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	apps, _, err = f.svc.ListForJob(context.Background(), approvedInstitution("inst-a"), "J", models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestApplicationStats(t *testing.T) {
	f := newApplicationFixture(openJob("J", "inst-a"), openJob("K", "inst-a"))
	_, err := f.svc.Apply(context.Background(), approvedUser("u1"), dto.ApplyRequest{JobID: "J"})
	require.NoError(t, err)

	userStats, err := f.svc.UserStats(context.Background(), approvedUser("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1, userStats.Pending)

	instStats, err := f.svc.InstitutionStats(context.Background(), approvedInstitution("inst-a"))
	require.NoError(t, err)
	assert.Equal(t, 2, instStats.TotalJobs)
	assert.Equal(t, 1, instStats.Total)
}
