package models

import (
	"encoding/json"
	"math"
	"time"
)

// ReviewContext tags the interaction that prompted a review.
type ReviewContext string

const (
	ContextJobApplication  ReviewContext = "JOB_APPLICATION"
	ContextProductPurchase ReviewContext = "PRODUCT_PURCHASE"
	ContextGeneral         ReviewContext = "GENERAL"
)

// Review links an author to a target user. (target_user_id, author_id) is
// unique and the two ids never match.
type Review struct {
	ID           string        `db:"id" json:"id"`
	TargetUserID string        `db:"target_user_id" json:"targetUserId"`
	AuthorID     string        `db:"author_id" json:"authorId"`
	AuthorName   string        `db:"author_name" json:"authorName"`
	Rating       int           `db:"rating" json:"rating"`
	Comment      string        `db:"comment" json:"comment"`
	Context      ReviewContext `db:"context" json:"context"`
	ContextID    *string       `db:"context_id" json:"contextId,omitempty"`
	IsVisible    bool          `db:"is_visible" json:"isVisible"`
	ResponseText *string       `db:"response_text" json:"-"`
	RespondedAt  *time.Time    `db:"responded_at" json:"-"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`

	TargetName string `db:"target_name" json:"targetName,omitempty"`
}

// ReviewResponse is the target's public reply to a review.
type ReviewResponse struct {
	Text        string    `json:"text"`
	RespondedAt time.Time `json:"respondedAt"`
}

// Response returns the reply, if any.
func (r Review) Response() *ReviewResponse {
	if r.ResponseText == nil {
		return nil
	}
	resp := &ReviewResponse{Text: *r.ResponseText}
	if r.RespondedAt != nil {
		resp.RespondedAt = *r.RespondedAt
	}
	return resp
}

// MarshalJSON nests the flat response columns under "response".
func (r Review) MarshalJSON() ([]byte, error) {
	type plain Review
	return json.Marshal(struct {
		plain
		Response *ReviewResponse `json:"response,omitempty"`
	}{plain: plain(r), Response: r.Response()})
}

// ReviewFilter captures listing predicates for reviews.
type ReviewFilter struct {
	TargetUserID string
	AuthorID     string
	Rating       int
	VisibleOnly  bool
	ListParams
}

// RatingSummary is an average rating together with the number of ratings.
type RatingSummary struct {
	Average float64 `db:"average" json:"average"`
	Count   int     `db:"count" json:"count"`
}

// RoundRating rounds to one decimal place, half away from zero.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// AverageOf computes the rounded mean of ratings; {0,0} when empty.
func AverageOf(ratings []int) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return RatingSummary{
		Average: RoundRating(float64(sum) / float64(len(ratings))),
		Count:   len(ratings),
	}
}

// RatingDistribution counts visible reviews per star value.
type RatingDistribution map[int]int

// ReviewStats aggregates a user's visible reviews.
type ReviewStats struct {
	Average      float64            `json:"average"`
	Count        int                `json:"count"`
	Distribution RatingDistribution `json:"distribution"`
}

// NewReviewStats builds stats from per-rating counts, filling missing stars with zero.
func NewReviewStats(counts map[int]int) ReviewStats {
	dist := RatingDistribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	total, sum := 0, 0
	for rating, n := range counts {
		if rating < 1 || rating > 5 {
			continue
		}
		dist[rating] = n
		total += n
		sum += rating * n
	}
	stats := ReviewStats{Count: total, Distribution: dist}
	if total > 0 {
		stats.Average = RoundRating(float64(sum) / float64(total))
	}
	return stats
}
