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

type productService interface {
	Create(ctx context.Context, actor *models.User, req dto.CreateProductRequest) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, *models.Pagination, error)
	ListByInstitution(ctx context.Context, viewer *models.User, institutionID string, filter models.ProductFilter) ([]models.Product, *models.Pagination, error)
	Mine(ctx context.Context, actor *models.User, filter models.ProductFilter) ([]models.Product, *models.Pagination, error)
	Featured(ctx context.Context) ([]models.Product, error)
	Similar(ctx context.Context, id string) ([]models.Product, error)
	Get(ctx context.Context, viewer *models.User, id string) (*models.Product, error)
	Update(ctx context.Context, actor *models.User, id string, req dto.UpdateProductRequest) (*models.Product, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Rate(ctx context.Context, actor *models.User, id string, req dto.RateRequest) (*models.Product, error)
}

// ProductHandler serves the marketplace.
type ProductHandler struct {
	service productService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(svc productService) *ProductHandler {
	return &ProductHandler{service: svc}
}

func productFilter(c *gin.Context) models.ProductFilter {
	return models.ProductFilter{
		Category:   models.Category(strings.TrimSpace(c.Query("category"))),
		Location:   strings.TrimSpace(c.Query("location")),
		Search:     strings.TrimSpace(c.Query("search")),
		Condition:  models.ProductCondition(strings.ToUpper(strings.TrimSpace(c.Query("condition")))),
		MinPrice:   queryFloat(c, "minPrice"),
		MaxPrice:   queryFloat(c, "maxPrice"),
		Status:     strings.ToLower(strings.TrimSpace(c.Query("status"))),
		ListParams: listParams(c),
	}
}

// List godoc
// @Summary List available products
// @Tags Products
// @Produce json
// @Param category query string false "Category"
// @Param location query string false "Location substring"
// @Param search query string false "Matches name, description, institution or tags"
// @Param condition query string false "NEW|LIKE_NEW|GOOD|FAIR|POOR"
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sortBy query string false "createdAt|price|name|views|rating"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	products, pagination, err := h.service.List(c.Request.Context(), productFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, pagination)
}

// ListByInstitution godoc
// @Summary Products of one institution
// @Tags Products
// @Produce json
// @Param institutionId path string true "Institution user ID"
// @Success 200 {object} response.Envelope
// @Router /products/institution/{institutionId} [get]
func (h *ProductHandler) ListByInstitution(c *gin.Context) {
	products, pagination, err := h.service.ListByInstitution(c.Request.Context(), currentUser(c), c.Param("institutionId"), productFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, pagination)
}

// Mine godoc
// @Summary The caller's own listings
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param status query string false "available|sold"
// @Success 200 {object} response.Envelope
// @Router /products/user/my-products [get]
func (h *ProductHandler) Mine(c *gin.Context) {
	products, pagination, err := h.service.Mine(c.Request.Context(), currentUser(c), productFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, pagination)
}

// Featured godoc
// @Summary Best rated available products
// @Tags Products
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /products/featured [get]
func (h *ProductHandler) Featured(c *gin.Context) {
	products, err := h.service.Featured(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, nil)
}

// Similar godoc
// @Summary Available products in the same category
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} response.Envelope
// @Router /products/{id}/similar [get]
func (h *ProductHandler) Similar(c *gin.Context) {
	products, err := h.service.Similar(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, nil)
}

// Get godoc
// @Summary Product detail
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.service.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, product, nil)
}

// Create godoc
// @Summary List a product
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateProductRequest true "Product payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 403 {object} response.ErrorEnvelope
// @Router /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindJSON(c, &req, "invalid product payload") {
		return
	}
	product, err := h.service.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "product created", product)
}

// Update godoc
// @Summary Update a product
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param payload body dto.UpdateProductRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	var req dto.UpdateProductRequest
	if !bindJSON(c, &req, "invalid product payload") {
		return
	}
	product, err := h.service.Update(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "product updated", product)
}

// Delete godoc
// @Summary Delete a product
// @Tags Products
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 204
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Rate godoc
// @Summary Rate a product
// @Description Appends to the rating log and folds the value into the running average
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param payload body dto.RateRequest true "Rating 1..5"
// @Success 200 {object} response.Envelope
// @Router /products/{id}/rating [patch]
func (h *ProductHandler) Rate(c *gin.Context) {
	var req dto.RateRequest
	if !bindJSON(c, &req, "invalid rating payload") {
		return
	}
	product, err := h.service.Rate(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "rating recorded", product)
}
