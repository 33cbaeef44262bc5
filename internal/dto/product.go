package dto

import "github.com/civic-connect/civic-api/internal/models"

// CreateProductRequest is the payload for listing a product.
type CreateProductRequest struct {
	Name         string                  `json:"name" validate:"required,min=2,max=200"`
	Description  string                  `json:"description" validate:"required,min=10,max=1000"`
	Price        *float64                `json:"price" validate:"required,gte=0"`
	Category     models.Category         `json:"category" validate:"required,oneof=Education Business Health Technology Agriculture Government NGOs"`
	ImageURL     string                  `json:"imageUrl" validate:"required,url"`
	Images       []string                `json:"images" validate:"omitempty,max=10,dive,url"`
	Stock        *int                    `json:"stock" validate:"omitempty,gte=0"`
	Condition    models.ProductCondition `json:"condition" validate:"omitempty,oneof=NEW LIKE_NEW GOOD FAIR POOR"`
	Tags         []string                `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	Location     string                  `json:"location" validate:"required,min=2,max=200"`
	ContactEmail string                  `json:"contactEmail" validate:"required,email"`
	ContactPhone string                  `json:"contactPhone" validate:"omitempty,max=30"`
}

// UpdateProductRequest lists the fields an owner or admin may change. Nil means unchanged.
type UpdateProductRequest struct {
	Name         *string                  `json:"name" validate:"omitempty,min=2,max=200"`
	Description  *string                  `json:"description" validate:"omitempty,min=10,max=1000"`
	Price        *float64                 `json:"price" validate:"omitempty,gte=0"`
	Category     *models.Category         `json:"category" validate:"omitempty,oneof=Education Business Health Technology Agriculture Government NGOs"`
	ImageURL     *string                  `json:"imageUrl" validate:"omitempty,url"`
	Images       []string                 `json:"images" validate:"omitempty,max=10,dive,url"`
	Stock        *int                     `json:"stock" validate:"omitempty,gte=0"`
	Condition    *models.ProductCondition `json:"condition" validate:"omitempty,oneof=NEW LIKE_NEW GOOD FAIR POOR"`
	Tags         []string                 `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	Location     *string                  `json:"location" validate:"omitempty,min=2,max=200"`
	ContactEmail *string                  `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string                  `json:"contactPhone" validate:"omitempty,max=30"`
	IsAvailable  *bool                    `json:"isAvailable"`
}

// RateRequest carries a 1-5 star rating.
type RateRequest struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}
