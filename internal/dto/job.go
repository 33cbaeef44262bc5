package dto

import (
	"time"

	"github.com/civic-connect/civic-api/internal/models"
)

// CreateJobRequest is the payload for posting a job. Ownership fields are
// always taken from the authenticated institution.
type CreateJobRequest struct {
	Title             string                 `json:"title" validate:"required,min=5,max=200"`
	Description       string                 `json:"description" validate:"required,min=10,max=2000"`
	Category          models.Category        `json:"category" validate:"required,oneof=Education Business Health Technology Agriculture Government NGOs"`
	RequiredDocuments []string               `json:"requiredDocuments" validate:"omitempty,max=20,dive,min=1,max=200"`
	Deadline          time.Time              `json:"deadline" validate:"future"`
	Salary            string                 `json:"salary" validate:"omitempty,max=100"`
	Location          string                 `json:"location" validate:"required,min=2,max=200"`
	EmploymentType    models.EmploymentType  `json:"employmentType" validate:"omitempty,oneof=FULL_TIME PART_TIME CONTRACT VOLUNTEER"`
	ExperienceLevel   models.ExperienceLevel `json:"experienceLevel" validate:"omitempty,oneof=ENTRY MID SENIOR EXECUTIVE"`
	Skills            []string               `json:"skills" validate:"omitempty,max=30,dive,min=1,max=100"`
	ContactEmail      string                 `json:"contactEmail" validate:"required,email"`
	ContactPhone      string                 `json:"contactPhone" validate:"omitempty,max=30"`
}

// UpdateJobRequest lists the fields an owner or admin may change. Nil means unchanged.
type UpdateJobRequest struct {
	Title             *string                 `json:"title" validate:"omitempty,min=5,max=200"`
	Description       *string                 `json:"description" validate:"omitempty,min=10,max=2000"`
	Category          *models.Category        `json:"category" validate:"omitempty,oneof=Education Business Health Technology Agriculture Government NGOs"`
	RequiredDocuments []string                `json:"requiredDocuments" validate:"omitempty,max=20,dive,min=1,max=200"`
	Deadline          *time.Time              `json:"deadline"`
	Salary            *string                 `json:"salary" validate:"omitempty,max=100"`
	Location          *string                 `json:"location" validate:"omitempty,min=2,max=200"`
	EmploymentType    *models.EmploymentType  `json:"employmentType" validate:"omitempty,oneof=FULL_TIME PART_TIME CONTRACT VOLUNTEER"`
	ExperienceLevel   *models.ExperienceLevel `json:"experienceLevel" validate:"omitempty,oneof=ENTRY MID SENIOR EXECUTIVE"`
	Skills            []string                `json:"skills" validate:"omitempty,max=30,dive,min=1,max=100"`
	ContactEmail      *string                 `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone      *string                 `json:"contactPhone" validate:"omitempty,max=30"`
	IsActive          *bool                   `json:"isActive"`
}
