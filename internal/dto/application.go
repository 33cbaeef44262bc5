package dto

import (
	"time"

	"github.com/civic-connect/civic-api/internal/models"
)

// ApplyRequest submits an application to a job.
type ApplyRequest struct {
	JobID       string                       `json:"jobId" validate:"required"`
	CoverLetter string                       `json:"coverLetter" validate:"omitempty,max=2000"`
	Documents   []models.ApplicationDocument `json:"documents" validate:"omitempty,max=10,dive"`
}

// UpdateApplicationStatusRequest is sent by the job owner or an admin.
type UpdateApplicationStatusRequest struct {
	Status            models.ApplicationStatus `json:"status" validate:"required,oneof=PENDING INTERVIEWING ACCEPTED REJECTED"`
	Feedback          *string                  `json:"feedback" validate:"omitempty,max=1000"`
	InterviewDate     *time.Time               `json:"interviewDate"`
	InterviewLocation *string                  `json:"interviewLocation" validate:"omitempty,max=200"`
	Notes             *string                  `json:"notes" validate:"omitempty,max=500"`
}
