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

type mockJobRepo struct {
	jobs       map[string]*models.Job
	lastFilter models.JobFilter
	viewCalls  int
	deleted    []string
	created    int
}

func newMockJobRepo(jobs ...*models.Job) *mockJobRepo {
	m := &mockJobRepo{jobs: map[string]*models.Job{}}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job) error {
	m.created++
	if job.ID == "" {
		job.ID = "job-new"
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepo) FindByID(ctx context.Context, id string) (*models.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *j
	return &clone, nil
}

func (m *mockJobRepo) Update(ctx context.Context, job *models.Job) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.jobs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.jobs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockJobRepo) IncrementViews(ctx context.Context, id string) error {
	m.viewCalls++
	if j, ok := m.jobs[id]; ok {
		j.Views++
	}
	return nil
}

func (m *mockJobRepo) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	m.lastFilter = filter
	var out []models.Job
	for _, j := range m.jobs {
		if filter.Category != "" && j.Category != filter.Category {
			continue
		}
		out = append(out, *j)
	}
	return out, len(out), nil
}

type stubJobStats struct {
	stats *models.ApplicationStats
}

func (s stubJobStats) StatsByJob(ctx context.Context, jobID string) (*models.ApplicationStats, error) {
	return s.stats, nil
}

func validJobRequest() dto.CreateJobRequest {
	return dto.CreateJobRequest{
		Title:        "Agronomy field officer",
		Description:  "Support cooperatives with soil testing.",
		Category:     models.CategoryAgriculture,
		Deadline:     time.Now().Add(24 * time.Hour),
		Location:     "Les Cayes",
		ContactEmail: "jobs@example.com",
	}
}

func newTestJobService(repo *mockJobRepo) *JobService {
	return NewJobService(repo, stubJobStats{stats: &models.ApplicationStats{Total: 3, Pending: 2, Accepted: 1}}, dto.NewValidator(), nil, DefaultListLimits)
}

func TestJobServiceCreateStampsOwnerAndDefaults(t *testing.T) {
	repo := newMockJobRepo()
	events := &recordedEvents{}
	svc := newTestJobService(repo).WithEvents(events)
	inst := approvedInstitution("inst-a")

	job, err := svc.Create(context.Background(), inst, validJobRequest())
	require.NoError(t, err)
	assert.Equal(t, "inst-a", job.InstitutionID)
	assert.Equal(t, "Institution inst-a", job.InstitutionName)
	assert.Equal(t, defaultSalary, job.Salary)
	assert.Equal(t, models.EmploymentFullTime, job.EmploymentType)
	assert.Equal(t, models.ExperienceEntry, job.ExperienceLevel)
	assert.True(t, job.IsActive)
	assert.Equal(t, []string{"job_created"}, events.events)
}

func TestJobServiceCreatePendingInstitutionIsNotApproved(t *testing.T) {
	repo := newMockJobRepo()
	svc := newTestJobService(repo)

	_, err := svc.Create(context.Background(), pendingInstitution("inst-x"), validJobRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotApproved))
	assert.Zero(t, repo.created)
}

func TestJobServiceCreateRequiresInstitutionRole(t *testing.T) {
	svc := newTestJobService(newMockJobRepo())

	_, err := svc.Create(context.Background(), approvedUser("u1"), validJobRequest())
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	_, err = svc.Create(context.Background(), testAdmin, validJobRequest())
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	_, err = svc.Create(context.Background(), nil, validJobRequest())
	assert.True(t, errors.Is(err, appErrors.ErrUnauthenticated))
}

func TestJobServiceCreateRejectsPastDeadline(t *testing.T) {
	svc := newTestJobService(newMockJobRepo())
	req := validJobRequest()
	req.Deadline = time.Now().Add(-time.Hour)

	_, err := svc.Create(context.Background(), approvedInstitution("inst-a"), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestJobServiceListIsAlwaysPublic(t *testing.T) {
	repo := newMockJobRepo()
	svc := newTestJobService(repo)

	_, pagination, err := svc.List(context.Background(), models.JobFilter{Status: models.JobStatusInactive})
	require.NoError(t, err)
	assert.True(t, repo.lastFilter.PublicOnly)
	assert.Empty(t, repo.lastFilter.Status)
	assert.Equal(t, 10, repo.lastFilter.Limit)
	assert.Equal(t, 10, pagination.Limit)
}

func TestJobServiceListByInstitutionVisibility(t *testing.T) {
	repo := newMockJobRepo()
	svc := newTestJobService(repo)

	_, _, err := svc.ListByInstitution(context.Background(), nil, "inst-a", models.JobFilter{})
	require.NoError(t, err)
	assert.True(t, repo.lastFilter.PublicOnly)
	assert.Equal(t, "inst-a", repo.lastFilter.InstitutionID)

	_, _, err = svc.ListByInstitution(context.Background(), approvedInstitution("inst-a"), "inst-a", models.JobFilter{})
	require.NoError(t, err)
	assert.False(t, repo.lastFilter.PublicOnly)

	_, _, err = svc.ListByInstitution(context.Background(), testAdmin, "inst-a", models.JobFilter{})
	require.NoError(t, err)
	assert.False(t, repo.lastFilter.PublicOnly)
}

func TestJobServiceMine(t *testing.T) {
	repo := newMockJobRepo()
	svc := newTestJobService(repo)

	_, _, err := svc.Mine(context.Background(), approvedInstitution("inst-a"), models.JobFilter{Status: models.JobStatusExpired})
	require.NoError(t, err)
	assert.Equal(t, "inst-a", repo.lastFilter.InstitutionID)
	assert.Equal(t, models.JobStatusExpired, repo.lastFilter.Status)
	assert.False(t, repo.lastFilter.PublicOnly)

	_, _, err = svc.Mine(context.Background(), approvedInstitution("inst-a"), models.JobFilter{Status: "bogus"})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.Status)

	_, _, err = svc.Mine(context.Background(), approvedUser("u1"), models.JobFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}

func TestJobServiceGetCountsOnlyAuthenticatedViews(t *testing.T) {
	repo := newMockJobRepo(&models.Job{ID: "j1", InstitutionID: "inst-a", Views: 4})
	svc := newTestJobService(repo)

	job, err := svc.Get(context.Background(), nil, "j1")
	require.NoError(t, err)
	assert.Equal(t, 4, job.Views)
	assert.Zero(t, repo.viewCalls)

	job, err = svc.Get(context.Background(), approvedUser("u1"), "j1")
	require.NoError(t, err)
	assert.Equal(t, 5, job.Views)
	assert.Equal(t, 1, repo.viewCalls)

	_, err = svc.Get(context.Background(), nil, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrJobNotFound))
}

func TestJobServiceUpdateOwnership(t *testing.T) {
	repo := newMockJobRepo(&models.Job{ID: "j1", InstitutionID: "inst-a", InstitutionName: "A", Title: "Old title", IsActive: true})
	svc := newTestJobService(repo)
	title := "New title here"
	inactive := false

	_, err := svc.Update(context.Background(), approvedInstitution("inst-b"), "j1", dto.UpdateJobRequest{Title: &title})
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	job, err := svc.Update(context.Background(), approvedInstitution("inst-a"), "j1", dto.UpdateJobRequest{Title: &title, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "New title here", job.Title)
	assert.False(t, job.IsActive)
	assert.Equal(t, "inst-a", job.InstitutionID)

	job, err = svc.Update(context.Background(), testAdmin, "j1", dto.UpdateJobRequest{IsActive: &[]bool{true}[0]})
	require.NoError(t, err)
	assert.True(t, job.IsActive)
}

func TestJobServiceDelete(t *testing.T) {
	repo := newMockJobRepo(&models.Job{ID: "j1", InstitutionID: "inst-a"})
	svc := newTestJobService(repo)

	err := svc.Delete(context.Background(), approvedInstitution("inst-b"), "j1")
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	require.NoError(t, svc.Delete(context.Background(), approvedInstitution("inst-a"), "j1"))
	assert.Equal(t, []string{"j1"}, repo.deleted)

	err = svc.Delete(context.Background(), approvedInstitution("inst-a"), "j1")
	assert.True(t, errors.Is(err, appErrors.ErrJobNotFound))
}

func TestJobServiceStats(t *testing.T) {
	repo := newMockJobRepo(&models.Job{ID: "j1", InstitutionID: "inst-a", Views: 12})
	svc := newTestJobService(repo)

	stats, err := svc.Stats(context.Background(), approvedInstitution("inst-a"), "j1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 12, stats.Views)

	_, err = svc.Stats(context.Background(), approvedUser("u1"), "j1")
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}

func (m *mockJobRepo) CountByInstitution(ctx context.Context, institutionID string) (int, error) {
	n := 0
	for _, j := range m.jobs {
		if j.InstitutionID == institutionID {
			n++
		}
	}
	return n, nil
}
