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

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	UpdateStatus(ctx context.Context, actor *models.User, id string, req dto.UpdateUserStatusRequest, meta models.RequestMeta) (*models.User, error)
	UpdateRole(ctx context.Context, actor *models.User, id string, req dto.UpdateUserRoleRequest, meta models.RequestMeta) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id string, meta models.RequestMeta) error
	Overview(ctx context.Context) (*models.UserOverview, error)
}

// UserHandler serves public profiles and the admin user directory.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description Admin listing with role, status and search filters
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param role query string false "ADMIN|INSTITUTION|USER"
// @Param status query string false "PENDING|APPROVED|REJECTED"
// @Param search query string false "Name or email substring"
// @Param sortBy query string false "Sort field"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorEnvelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := models.UserFilter{ListParams: listParams(c), Search: strings.TrimSpace(c.Query("search"))}
	if role := models.UserRole(strings.ToUpper(c.Query("role"))); role.Valid() {
		filter.Role = &role
	}
	switch status := models.ApprovalStatus(strings.ToUpper(c.Query("status"))); status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
		filter.Status = &status
	}

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user profile
// @Description Profile with visible review aggregate, for signed-in users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body dto.UpdateUserStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /users/{id}/status [patch]
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateUserStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	user, err := h.service.UpdateStatus(c.Request.Context(), currentUser(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "user status updated", user)
}

// UpdateRole godoc
// @Summary Change a user's role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body dto.UpdateUserRoleRequest true "New role"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Router /users/{id}/role [patch]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req dto.UpdateUserRoleRequest
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	user, err := h.service.UpdateRole(c.Request.Context(), currentUser(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "user role updated", user)
}

// Delete godoc
// @Summary Delete a user
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUser(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Overview godoc
// @Summary Account counts for the admin dashboard
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /users/stats/overview [get]
func (h *UserHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
