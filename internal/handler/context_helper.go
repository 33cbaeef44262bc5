package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civic-connect/civic-api/internal/middleware"
	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
	"github.com/civic-connect/civic-api/pkg/response"
)

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// mustUser writes 401 and returns nil when the request is anonymous.
func mustUser(c *gin.Context) *models.User {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthenticated, ""))
	}
	return user
}

// bindJSON decodes the body, writing a 400 on malformed input.
func bindJSON(c *gin.Context, dest interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg))
		return false
	}
	return true
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// listParams reads page, limit, sortBy and sortOrder. Unparseable numbers fall
// back to the service defaults.
func listParams(c *gin.Context) models.ListParams {
	var p models.ListParams
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		p.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		p.Limit = limit
	}
	p.SortBy = strings.TrimSpace(c.Query("sortBy"))
	p.SortOrder = strings.TrimSpace(c.Query("sortOrder"))
	return p
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryInt(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	return v
}
