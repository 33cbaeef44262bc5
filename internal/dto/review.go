package dto

import "github.com/civic-connect/civic-api/internal/models"

// CreateReviewRequest is the payload for reviewing another user.
type CreateReviewRequest struct {
	TargetUserID string               `json:"targetUserId" validate:"required"`
	Rating       int                  `json:"rating" validate:"required,gte=1,lte=5"`
	Comment      string               `json:"comment" validate:"required,min=10,max=1000"`
	Context      models.ReviewContext `json:"context" validate:"omitempty,oneof=JOB_APPLICATION PRODUCT_PURCHASE GENERAL"`
	ContextID    *string              `json:"contextId" validate:"omitempty,max=64"`
}

// UpdateReviewRequest lets the author revise rating and comment.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,min=10,max=1000"`
}

// ReviewResponseRequest is the target's reply.
type ReviewResponseRequest struct {
	Text string `json:"text" validate:"required,min=1,max=500"`
}

// ReviewVisibilityRequest toggles visibility.
type ReviewVisibilityRequest struct {
	IsVisible *bool `json:"isVisible" validate:"required"`
}
