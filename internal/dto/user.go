package dto

import "github.com/civic-connect/civic-api/internal/models"

// UpdateUserStatusRequest sets an account's approval status.
type UpdateUserStatusRequest struct {
	Status models.ApprovalStatus `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// UpdateUserRoleRequest sets an account's role.
type UpdateUserRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=ADMIN INSTITUTION USER"`
}
