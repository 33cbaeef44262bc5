package dto

// RefineJobRequest asks the assistant to polish a job description.
type RefineJobRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
}

// RefineJobResponse carries the refined text. Refined is false when the
// original description was passed through unchanged.
type RefineJobResponse struct {
	Description string `json:"description"`
	Refined     bool   `json:"refined"`
}

// MatchJobsRequest asks which open jobs fit a biography. Without JobIDs the
// most recent open jobs are considered.
type MatchJobsRequest struct {
	Bio    string   `json:"bio" validate:"required,min=10,max=2000"`
	JobIDs []string `json:"jobIds" validate:"omitempty,max=50,dive,required"`
}

// JobMatch is one scored candidate job.
type JobMatch struct {
	JobID      string  `json:"jobId"`
	Title      string  `json:"title"`
	MatchScore float64 `json:"matchScore"`
	Reason     string  `json:"reason"`
}

// MatchJobsResponse lists matches best first. Ranked is false when the
// candidates are returned in their original order without scores.
type MatchJobsResponse struct {
	Matches []JobMatch `json:"matches"`
	Ranked  bool       `json:"ranked"`
}
