package models

import (
	"time"

	"github.com/lib/pq"
)

// Category is the closed set of sectors shared by jobs and products.
type Category string

const (
	CategoryEducation   Category = "Education"
	CategoryBusiness    Category = "Business"
	CategoryHealth      Category = "Health"
	CategoryTechnology  Category = "Technology"
	CategoryAgriculture Category = "Agriculture"
	CategoryGovernment  Category = "Government"
	CategoryNGOs        Category = "NGOs"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryEducation,
	CategoryBusiness,
	CategoryHealth,
	CategoryTechnology,
	CategoryAgriculture,
	CategoryGovernment,
	CategoryNGOs,
}

// EmploymentType of a job posting.
type EmploymentType string

const (
	EmploymentFullTime  EmploymentType = "FULL_TIME"
	EmploymentPartTime  EmploymentType = "PART_TIME"
	EmploymentContract  EmploymentType = "CONTRACT"
	EmploymentVolunteer EmploymentType = "VOLUNTEER"
)

// ExperienceLevel expected by a job posting.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "ENTRY"
	ExperienceMid       ExperienceLevel = "MID"
	ExperienceSenior    ExperienceLevel = "SENIOR"
	ExperienceExecutive ExperienceLevel = "EXECUTIVE"
)

// Job status filters available to the owning institution.
const (
	JobStatusActive   = "active"
	JobStatusExpired  = "expired"
	JobStatusInactive = "inactive"
)

// Job is a posting owned by exactly one institution.
type Job struct {
	ID                string          `db:"id" json:"id"`
	InstitutionID     string          `db:"institution_id" json:"institutionId"`
	InstitutionName   string          `db:"institution_name" json:"institutionName"`
	Title             string          `db:"title" json:"title"`
	Description       string          `db:"description" json:"description"`
	Category          Category        `db:"category" json:"category"`
	RequiredDocuments pq.StringArray  `db:"required_documents" json:"requiredDocuments"`
	Deadline          time.Time       `db:"deadline" json:"deadline"`
	Salary            string          `db:"salary" json:"salary"`
	Location          string          `db:"location" json:"location"`
	EmploymentType    EmploymentType  `db:"employment_type" json:"employmentType"`
	ExperienceLevel   ExperienceLevel `db:"experience_level" json:"experienceLevel"`
	Skills            pq.StringArray  `db:"skills" json:"skills"`
	ContactEmail      string          `db:"contact_email" json:"contactEmail"`
	ContactPhone      string          `db:"contact_phone" json:"contactPhone"`
	IsActive          bool            `db:"is_active" json:"isActive"`
	Views             int             `db:"views" json:"views"`
	ApplicationCount  int             `db:"application_count" json:"applicationCount"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`

	// Expired is derived from the deadline on read and never stored.
	Expired bool `db:"-" json:"isExpired"`
}

// IsExpired reports whether the deadline has passed at now.
func (j *Job) IsExpired(now time.Time) bool {
	return j.Deadline.Before(now)
}

// OwnedBy reports whether userID owns the job.
func (j *Job) OwnedBy(userID string) bool {
	return j.InstitutionID == userID
}

// JobFilter captures the listing predicates for jobs.
type JobFilter struct {
	Category        Category
	Location        string
	Search          string
	EmploymentType  EmploymentType
	ExperienceLevel ExperienceLevel
	InstitutionID   string
	// Status is honoured only for the owner's own listing.
	Status string
	// PublicOnly hides inactive and expired postings.
	PublicOnly bool
	ListParams
}

// JobStats summarises the applications received by a job.
type JobStats struct {
	ApplicationStats
	Views int `json:"views"`
}
