package service

import (
	"context"
	"net/http"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	"github.com/civic-connect/civic-api/internal/repository"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

func malformedIDDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func TestMalformedIDsSurfaceAsNotFound(t *testing.T) {
	db, mock := malformedIDDB(t)
	badUUID := &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}
	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT").WillReturnError(badUUID)
	}

	jobs := repository.NewJobRepository(db)
	apps := repository.NewApplicationRepository(db)
	users := repository.NewUserRepository(db)
	applicant := &models.User{ID: "u1", Role: models.RoleUser, Status: models.StatusApproved}

	jobSvc := NewJobService(jobs, apps, dto.NewValidator(), nil, DefaultListLimits)
	_, err := jobSvc.Get(context.Background(), nil, "not-a-uuid")
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, appErrors.ErrJobNotFound.Code, appErr.Code)

	appSvc := NewApplicationService(apps, jobs, dto.NewValidator(), nil, DefaultListLimits)
	_, err = appSvc.Apply(context.Background(), applicant, dto.ApplyRequest{JobID: "job-42"})
	assert.Equal(t, appErrors.ErrJobNotFound.Code, appErrors.FromError(err).Code)

	reviewSvc := NewReviewService(repository.NewReviewRepository(db), users, nil, dto.NewValidator(), nil, DefaultListLimits)
	_, err = reviewSvc.Create(context.Background(), applicant, dto.CreateReviewRequest{
		TargetUserID: "someone",
		Rating:       4,
		Comment:      "Reliable and on time every week.",
	})
	assert.Equal(t, appErrors.ErrTargetNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
