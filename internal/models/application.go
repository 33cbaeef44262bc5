package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

// Any status may be set from any other by the job owner or an admin; the
// PENDING → INTERVIEWING → ACCEPTED|REJECTED order is conventional only.
const (
	ApplicationPending      ApplicationStatus = "PENDING"
	ApplicationInterviewing ApplicationStatus = "INTERVIEWING"
	ApplicationAccepted     ApplicationStatus = "ACCEPTED"
	ApplicationRejected     ApplicationStatus = "REJECTED"
)

// ApplicationStatuses lists all statuses in lifecycle order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationPending,
	ApplicationInterviewing,
	ApplicationAccepted,
	ApplicationRejected,
}

// ApplicationDocument is an opaque reference to an uploaded file.
type ApplicationDocument struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url" validate:"required,url"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Documents is stored as a JSONB array.
type Documents []ApplicationDocument

// Value implements driver.Valuer.
func (d Documents) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *Documents) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Documents{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("documents: unsupported type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// Application links one user to one job. (job_id, user_id) is unique.
type Application struct {
	ID                string            `db:"id" json:"id"`
	JobID             string            `db:"job_id" json:"jobId"`
	UserID            string            `db:"user_id" json:"userId"`
	UserName          string            `db:"user_name" json:"userName"`
	Status            ApplicationStatus `db:"status" json:"status"`
	CoverLetter       string            `db:"cover_letter" json:"coverLetter"`
	Documents         Documents         `db:"documents" json:"documents"`
	Feedback          string            `db:"feedback" json:"feedback"`
	Rating            *int              `db:"rating" json:"rating"`
	InterviewDate     *time.Time        `db:"interview_date" json:"interviewDate"`
	InterviewLocation string            `db:"interview_location" json:"interviewLocation"`
	Notes             string            `db:"notes" json:"notes"`
	AppliedAt         time.Time         `db:"applied_at" json:"appliedAt"`
	LastUpdated       time.Time         `db:"last_updated" json:"lastUpdated"`

	// Read-time projections of the referenced job and applicant.
	JobTitle        string `db:"job_title" json:"jobTitle,omitempty"`
	InstitutionID   string `db:"institution_id" json:"institutionId,omitempty"`
	InstitutionName string `db:"institution_name" json:"institutionName,omitempty"`
	UserEmail       string `db:"user_email" json:"userEmail,omitempty"`
}

// ApplicationFilter captures listing predicates for applications.
type ApplicationFilter struct {
	JobID  string
	UserID string
	Status ApplicationStatus
	ListParams
}

// ApplicationStats counts applications by status.
type ApplicationStats struct {
	Total        int `db:"total" json:"total"`
	Pending      int `db:"pending" json:"pending"`
	Interviewing int `db:"interviewing" json:"interviewing"`
	Accepted     int `db:"accepted" json:"accepted"`
	Rejected     int `db:"rejected" json:"rejected"`
}

// InstitutionApplicationStats adds the number of jobs an institution owns.
type InstitutionApplicationStats struct {
	ApplicationStats
	TotalJobs int `db:"total_jobs" json:"totalJobs"`
}
