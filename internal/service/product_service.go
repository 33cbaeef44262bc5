package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

const (
	featuredProductsLimit = 8
	similarProductsLimit  = 6
)

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	AddRating(ctx context.Context, rating *models.ProductRating) (models.RatingSummary, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)
	Featured(ctx context.Context, limit int) ([]models.Product, error)
	Similar(ctx context.Context, product *models.Product, limit int) ([]models.Product, error)
}

// ProductService implements the marketplace catalog.
type ProductService struct {
	repo      productRepository
	validator *validator.Validate
	logger    *zap.Logger
	limits    ListLimits
	events    eventRecorder
}

// NewProductService creates a ProductService.
func NewProductService(repo productRepository, validate *validator.Validate, logger *zap.Logger, limits ListLimits) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProductService{repo: repo, validator: validate, logger: logger, limits: limits, events: nopEvents{}}
}

// WithEvents attaches a domain event recorder.
func (s *ProductService) WithEvents(events eventRecorder) *ProductService {
	if events != nil {
		s.events = events
	}
	return s
}

// Create lists a product for the calling institution.
func (s *ProductService) Create(ctx context.Context, actor *models.User, req dto.CreateProductRequest) (*models.Product, error) {
	if err := requireRole(actor, models.RoleInstitution); err != nil {
		return nil, err
	}
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid product payload")
	}

	product := &models.Product{
		InstitutionID:   actor.ID,
		InstitutionName: actor.DisplayName(),
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		Price:           *req.Price,
		Category:        req.Category,
		ImageURL:        req.ImageURL,
		Images:          req.Images,
		Stock:           1,
		Condition:       req.Condition,
		Tags:            req.Tags,
		Location:        strings.TrimSpace(req.Location),
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		IsAvailable:     true,
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if product.Condition == "" {
		product.Condition = models.ConditionGood
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, appErrors.Internal(err, "failed to create product")
	}
	s.events.RecordEvent("product_created")
	return product, nil
}

// List is the public listing: unavailable products are hidden.
func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, *models.Pagination, error) {
	filter.PublicOnly = true
	filter.Status = ""
	return s.list(ctx, filter)
}

// ListByInstitution lists one institution's products; sold ones only for the owner or an admin.
func (s *ProductService) ListByInstitution(ctx context.Context, viewer *models.User, institutionID string, filter models.ProductFilter) ([]models.Product, *models.Pagination, error) {
	filter.InstitutionID = institutionID
	filter.Status = ""
	filter.PublicOnly = ownerOrAdmin(viewer, institutionID) != nil
	return s.list(ctx, filter)
}

// Mine lists the caller's products, optionally narrowed to available or sold.
func (s *ProductService) Mine(ctx context.Context, actor *models.User, filter models.ProductFilter) ([]models.Product, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleInstitution); err != nil {
		return nil, nil, err
	}
	if filter.Status != models.ProductStatusAvailable && filter.Status != models.ProductStatusSold {
		filter.Status = ""
	}
	filter.InstitutionID = actor.ID
	filter.PublicOnly = false
	return s.list(ctx, filter)
}

func (s *ProductService) list(ctx context.Context, filter models.ProductFilter) ([]models.Product, *models.Pagination, error) {
	filter.ListParams = filter.ListParams.Normalize(s.limits.Products, s.limits.Max)
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		filter.MinPrice, filter.MaxPrice = filter.MaxPrice, filter.MinPrice
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list products")
	}
	return products, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Featured returns the best rated available products.
func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.Featured(ctx, featuredProductsLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load featured products")
	}
	return products, nil
}

// Similar returns available products sharing the category of id.
func (s *ProductService) Similar(ctx context.Context, id string) ([]models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrProductNotFound, "failed to load product")
	}
	products, err := s.repo.Similar(ctx, product, similarProductsLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load similar products")
	}
	return products, nil
}

// Get returns a product, counting the view only for authenticated callers.
func (s *ProductService) Get(ctx context.Context, viewer *models.User, id string) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrProductNotFound, "failed to load product")
	}
	if viewer != nil {
		if err := s.repo.IncrementViews(ctx, id); err != nil {
			s.logger.Warn("failed to increment product views", zap.String("product_id", id), zap.Error(err))
		} else {
			product.Views++
		}
	}
	return product, nil
}

// Update applies an allowlisted partial update for the owner or an admin.
func (s *ProductService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateProductRequest) (*models.Product, error) {
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid product payload")
	}
	product, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.Images != nil {
		product.Images = req.Images
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Condition != nil {
		product.Condition = *req.Condition
	}
	if req.Tags != nil {
		product.Tags = req.Tags
	}
	if req.Location != nil {
		product.Location = strings.TrimSpace(*req.Location)
	}
	if req.ContactEmail != nil {
		product.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		product.ContactPhone = *req.ContactPhone
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, appErrors.Internal(err, "failed to update product")
	}
	return product, nil
}

// Delete removes a product. Its rating log goes with it.
func (s *ProductService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireApproved(actor); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrProductNotFound, "")
		}
		return appErrors.Internal(err, "failed to delete product")
	}
	return nil
}

// Rate records a 1-5 rating and folds it into the product's running average.
// Owners may not rate their own products.
func (s *ProductService) Rate(ctx context.Context, actor *models.User, id string, req dto.RateRequest) (*models.Product, error) {
	if err := requireApproved(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid rating payload")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrProductNotFound, "failed to load product")
	}
	if product.OwnedBy(actor.ID) {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "you cannot rate your own product")
	}

	summary, err := s.repo.AddRating(ctx, &models.ProductRating{ProductID: id, UserID: actor.ID, Rating: req.Rating})
	if err != nil {
		return nil, lookupError(err, appErrors.ErrProductNotFound, "failed to rate product")
	}
	product.RatingAverage = summary.Average
	product.RatingCount = summary.Count
	s.events.RecordEvent("product_rated")
	return product, nil
}

func (s *ProductService) owned(ctx context.Context, actor *models.User, id string) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrProductNotFound, "failed to load product")
	}
	if err := ownerOrAdmin(actor, product.InstitutionID); err != nil {
		return nil, err
	}
	return product, nil
}
