package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/middleware"
	"github.com/civic-connect/civic-api/internal/models"
	"github.com/civic-connect/civic-api/pkg/response"
)

type reviewService interface {
	Create(ctx context.Context, actor *models.User, req dto.CreateReviewRequest) (*models.Review, error)
	Update(ctx context.Context, actor *models.User, id string, req dto.UpdateReviewRequest) (*models.Review, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Respond(ctx context.Context, actor *models.User, id string, req dto.ReviewResponseRequest) (*models.Review, error)
	SetVisibility(ctx context.Context, actor *models.User, id string, req dto.ReviewVisibilityRequest) (*models.Review, error)
	ListForUser(ctx context.Context, userID string, filter models.ReviewFilter) ([]models.Review, *models.Pagination, models.RatingSummary, error)
	Mine(ctx context.Context, actor *models.User, filter models.ReviewFilter) ([]models.Review, *models.Pagination, error)
	Recent(ctx context.Context, limit int) ([]models.Review, error)
	CachedStats(ctx context.Context, userID string) (models.ReviewStats, bool, error)
}

// ReviewHandler serves user-to-user reviews.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(svc reviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// Create godoc
// @Summary Review a user
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	var req dto.CreateReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	review, err := h.service.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "review created", review)
}

// Update godoc
// @Summary Edit own review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Param payload body dto.UpdateReviewRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(c *gin.Context) {
	var req dto.UpdateReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	review, err := h.service.Update(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "review updated", review)
}

// Delete godoc
// @Summary Delete a review
// @Tags Reviews
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Success 204
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Respond godoc
// @Summary Answer a review about yourself
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Param payload body dto.ReviewResponseRequest true "Response text"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id}/response [patch]
func (h *ReviewHandler) Respond(c *gin.Context) {
	var req dto.ReviewResponseRequest
	if !bindJSON(c, &req, "invalid response payload") {
		return
	}
	review, err := h.service.Respond(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "response added", review)
}

// SetVisibility godoc
// @Summary Hide or show a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Param payload body dto.ReviewVisibilityRequest true "Visibility"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id}/visibility [patch]
func (h *ReviewHandler) SetVisibility(c *gin.Context) {
	var req dto.ReviewVisibilityRequest
	if !bindJSON(c, &req, "invalid visibility payload") {
		return
	}
	review, err := h.service.SetVisibility(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "visibility updated", review)
}

// ListForUser godoc
// @Summary Visible reviews about a user
// @Tags Reviews
// @Produce json
// @Param userId path string true "User ID"
// @Param rating query int false "Only this star rating"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reviews/user/{userId} [get]
// @Router /users/{userId}/reviews [get]
func (h *ReviewHandler) ListForUser(c *gin.Context) {
	filter := models.ReviewFilter{Rating: queryInt(c, "rating"), ListParams: listParams(c)}
	reviews, pagination, summary, err := h.service.ListForUser(c.Request.Context(), userIDParam(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination, map[string]interface{}{"rating": summary})
}

// Mine godoc
// @Summary Reviews written by the caller
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reviews/my-reviews [get]
func (h *ReviewHandler) Mine(c *gin.Context) {
	reviews, pagination, err := h.service.Mine(c.Request.Context(), currentUser(c), models.ReviewFilter{ListParams: listParams(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// Recent godoc
// @Summary Newest visible reviews
// @Tags Reviews
// @Produce json
// @Param limit query int false "How many, default 5"
// @Success 200 {object} response.Envelope
// @Router /reviews/recent [get]
func (h *ReviewHandler) Recent(c *gin.Context) {
	reviews, err := h.service.Recent(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}

// Stats godoc
// @Summary Rating aggregate for a user
// @Description Average, count and per-star distribution of visible reviews
// @Tags Reviews
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /reviews/stats/user/{userId} [get]
func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, hit, err := h.service.CachedStats(c.Request.Context(), userIDParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// userIDParam reads :userId, or :id when mounted under /users/:id.
func userIDParam(c *gin.Context) string {
	if id := c.Param("userId"); id != "" {
		return id
	}
	return c.Param("id")
}
