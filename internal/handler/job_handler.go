package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	"github.com/civic-connect/civic-api/pkg/response"
)

type jobService interface {
	Create(ctx context.Context, actor *models.User, req dto.CreateJobRequest) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error)
	ListByInstitution(ctx context.Context, viewer *models.User, institutionID string, filter models.JobFilter) ([]models.Job, *models.Pagination, error)
	Mine(ctx context.Context, actor *models.User, filter models.JobFilter) ([]models.Job, *models.Pagination, error)
	Get(ctx context.Context, viewer *models.User, id string) (*models.Job, error)
	Update(ctx context.Context, actor *models.User, id string, req dto.UpdateJobRequest) (*models.Job, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Stats(ctx context.Context, actor *models.User, id string) (*models.JobStats, error)
}

// JobHandler serves the job posting catalog.
type JobHandler struct {
	service jobService
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(svc jobService) *JobHandler {
	return &JobHandler{service: svc}
}

func jobFilter(c *gin.Context) models.JobFilter {
	return models.JobFilter{
		Category:        models.Category(strings.TrimSpace(c.Query("category"))),
		Location:        strings.TrimSpace(c.Query("location")),
		Search:          strings.TrimSpace(c.Query("search")),
		EmploymentType:  models.EmploymentType(strings.ToUpper(strings.TrimSpace(c.Query("employmentType")))),
		ExperienceLevel: models.ExperienceLevel(strings.ToUpper(strings.TrimSpace(c.Query("experienceLevel")))),
		Status:          strings.ToLower(strings.TrimSpace(c.Query("status"))),
		ListParams:      listParams(c),
	}
}

// List godoc
// @Summary List open jobs
// @Description Active, unexpired postings with filters, sorting and pagination
// @Tags Jobs
// @Produce json
// @Param category query string false "Category"
// @Param location query string false "Location substring"
// @Param search query string false "Matches title, description or institution"
// @Param employmentType query string false "FULL_TIME|PART_TIME|CONTRACT|VOLUNTEER"
// @Param experienceLevel query string false "ENTRY|MID|SENIOR|EXECUTIVE"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sortBy query string false "createdAt|deadline|title|views|applicationCount"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	jobs, pagination, err := h.service.List(c.Request.Context(), jobFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// ListByInstitution godoc
// @Summary Jobs of one institution
// @Tags Jobs
// @Produce json
// @Param institutionId path string true "Institution user ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/institution/{institutionId} [get]
func (h *JobHandler) ListByInstitution(c *gin.Context) {
	jobs, pagination, err := h.service.ListByInstitution(c.Request.Context(), currentUser(c), c.Param("institutionId"), jobFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Mine godoc
// @Summary The caller's own postings
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param status query string false "active|expired|inactive"
// @Success 200 {object} response.Envelope
// @Router /jobs/user/my-jobs [get]
func (h *JobHandler) Mine(c *gin.Context) {
	jobs, pagination, err := h.service.Mine(c.Request.Context(), currentUser(c), jobFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Get godoc
// @Summary Job detail
// @Description Authenticated views increment the view counter
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.service.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Create godoc
// @Summary Post a job
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateJobRequest true "Job payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 403 {object} response.ErrorEnvelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if !bindJSON(c, &req, "invalid job payload") {
		return
	}
	job, err := h.service.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "job created", job)
}

// Update godoc
// @Summary Update a job
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param payload body dto.UpdateJobRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /jobs/{id} [put]
func (h *JobHandler) Update(c *gin.Context) {
	var req dto.UpdateJobRequest
	if !bindJSON(c, &req, "invalid job payload") {
		return
	}
	job, err := h.service.Update(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "job updated", job)
}

// Delete godoc
// @Summary Delete a job
// @Tags Jobs
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 204
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Application counts for a job
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/stats [get]
func (h *JobHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
