package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	"github.com/civic-connect/civic-api/internal/service"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
	"github.com/civic-connect/civic-api/pkg/export"
	"github.com/civic-connect/civic-api/pkg/i18n"
	"github.com/civic-connect/civic-api/pkg/response"
)

type applicationService interface {
	Apply(ctx context.Context, actor *models.User, req dto.ApplyRequest) (*models.Application, error)
	Mine(ctx context.Context, actor *models.User, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error)
	ListForJob(ctx context.Context, actor *models.User, jobID string, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, actor *models.User, id string, req dto.UpdateApplicationStatusRequest) (*models.Application, error)
	Rate(ctx context.Context, actor *models.User, id string, req dto.RateRequest) (*models.Application, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	UserStats(ctx context.Context, actor *models.User) (*models.ApplicationStats, error)
	InstitutionStats(ctx context.Context, actor *models.User) (*models.InstitutionApplicationStats, error)
}

type applicantExporter interface {
	Applicants(ctx context.Context, actor *models.User, jobID string, format export.Format, lang models.Language) (*service.ExportFile, error)
}

// ApplicationHandler serves the application workflow.
type ApplicationHandler struct {
	service  applicationService
	exporter applicantExporter
}

// NewApplicationHandler constructs an ApplicationHandler. exporter may be nil.
func NewApplicationHandler(svc applicationService, exporter applicantExporter) *ApplicationHandler {
	return &ApplicationHandler{service: svc, exporter: exporter}
}

func applicationFilter(c *gin.Context) models.ApplicationFilter {
	return models.ApplicationFilter{
		Status:     models.ApplicationStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		ListParams: listParams(c),
	}
}

// Apply godoc
// @Summary Apply to a job
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ApplyRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, err := h.service.Apply(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "application submitted", app)
}

// Mine godoc
// @Summary The caller's applications
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING|INTERVIEWING|ACCEPTED|REJECTED"
// @Success 200 {object} response.Envelope
// @Router /applications/my-applications [get]
func (h *ApplicationHandler) Mine(c *gin.Context) {
	apps, pagination, err := h.service.Mine(c.Request.Context(), currentUser(c), applicationFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// ListForJob godoc
// @Summary Applications received by a job
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorEnvelope
// @Router /jobs/{id}/applications [get]
func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	apps, pagination, err := h.service.ListForJob(c.Request.Context(), currentUser(c), c.Param("id"), applicationFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// Export godoc
// @Summary Download a job's applicants
// @Tags Applications
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param format query string false "csv|pdf"
// @Param lang query string false "FR|KH"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 403 {object} response.ErrorEnvelope
// @Router /jobs/{id}/applications/export [get]
func (h *ApplicationHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	user := mustUser(c)
	if user == nil {
		return
	}
	format, ok := export.ParseFormat(c.Query("format"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	lang := user.Language
	if q := c.Query("lang"); q != "" {
		lang = i18n.ParseLanguage(q)
	}

	file, err := h.exporter.Applicants(c.Request.Context(), user, c.Param("id"), format, lang)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Get godoc
// @Summary Application detail
// @Description Visible to the applicant, the job owner and admins
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.service.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// UpdateStatus godoc
// @Summary Move an application to another status
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorEnvelope
// @Router /applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateApplicationStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "application updated", app)
}

// Rate godoc
// @Summary Rate the hiring experience
// @Description Only the applicant may rate, and only once accepted
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param payload body dto.RateRequest true "Rating 1..5"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Router /applications/{id}/rating [patch]
func (h *ApplicationHandler) Rate(c *gin.Context) {
	var req dto.RateRequest
	if !bindJSON(c, &req, "invalid rating payload") {
		return
	}
	app, err := h.service.Rate(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "rating recorded", app)
}

// Delete godoc
// @Summary Withdraw an application
// @Tags Applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 204
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UserStats godoc
// @Summary Application counts for the caller
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /applications/stats/user [get]
func (h *ApplicationHandler) UserStats(c *gin.Context) {
	stats, err := h.service.UserStats(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// InstitutionStats godoc
// @Summary Application counts across the caller's jobs
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /applications/stats/institution [get]
func (h *ApplicationHandler) InstitutionStats(c *gin.Context) {
	stats, err := h.service.InstitutionStats(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
