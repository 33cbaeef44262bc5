package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civic-connect/civic-api/pkg/i18n"
	"github.com/civic-connect/civic-api/pkg/response"
)

// MetaHandler serves display labels for the closed enumerations.
type MetaHandler struct{}

// NewMetaHandler constructs a MetaHandler.
func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

// Labels godoc
// @Summary Display labels
// @Description Labels for roles, statuses, categories and other enumerations
// @Tags Meta
// @Produce json
// @Param lang query string false "FR|KH, defaults to the caller's language or FR"
// @Success 200 {object} response.Envelope
// @Router /meta/labels [get]
func (h *MetaHandler) Labels(c *gin.Context) {
	lang := i18n.ParseLanguage(c.Query("lang"))
	if c.Query("lang") == "" {
		if user := currentUser(c); user != nil && user.Language != "" {
			lang = user.Language
		}
	}
	response.JSON(c, http.StatusOK, i18n.Labels(lang), nil)
}
