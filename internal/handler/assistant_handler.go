package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/pkg/response"
)

type assistantService interface {
	RefineJobDescription(ctx context.Context, req dto.RefineJobRequest) (*dto.RefineJobResponse, error)
	MatchJobs(ctx context.Context, req dto.MatchJobsRequest) (*dto.MatchJobsResponse, error)
}

// AssistantHandler exposes the text-generation helpers.
type AssistantHandler struct {
	service assistantService
}

// NewAssistantHandler constructs an AssistantHandler.
func NewAssistantHandler(svc assistantService) *AssistantHandler {
	return &AssistantHandler{service: svc}
}

// RefineJob godoc
// @Summary Polish a job description
// @Description Returns the original text with refined=false when the generator is unavailable
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RefineJobRequest true "Title and description"
// @Success 200 {object} response.Envelope
// @Router /assistant/refine-job [post]
func (h *AssistantHandler) RefineJob(c *gin.Context) {
	var req dto.RefineJobRequest
	if !bindJSON(c, &req, "invalid refine payload") {
		return
	}
	res, err := h.service.RefineJobDescription(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// MatchJobs godoc
// @Summary Score open jobs against a biography
// @Description Returns candidates unranked with ranked=false when the generator is unavailable
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.MatchJobsRequest true "Biography and optional job ids"
// @Success 200 {object} response.Envelope
// @Router /assistant/match-jobs [post]
func (h *AssistantHandler) MatchJobs(c *gin.Context) {
	var req dto.MatchJobsRequest
	if !bindJSON(c, &req, "invalid match payload") {
		return
	}
	res, err := h.service.MatchJobs(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
