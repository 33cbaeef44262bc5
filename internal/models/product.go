package models

import (
	"time"

	"github.com/lib/pq"
)

// ProductCondition describes the wear of a listed product.
type ProductCondition string

const (
	ConditionNew     ProductCondition = "NEW"
	ConditionLikeNew ProductCondition = "LIKE_NEW"
	ConditionGood    ProductCondition = "GOOD"
	ConditionFair    ProductCondition = "FAIR"
	ConditionPoor    ProductCondition = "POOR"
)

// Product status filters available to the owning institution.
const (
	ProductStatusAvailable = "available"
	ProductStatusSold      = "sold"
)

// Product is a marketplace listing owned by exactly one institution.
type Product struct {
	ID              string           `db:"id" json:"id"`
	InstitutionID   string           `db:"institution_id" json:"institutionId"`
	InstitutionName string           `db:"institution_name" json:"institutionName"`
	Name            string           `db:"name" json:"name"`
	Description     string           `db:"description" json:"description"`
	Price           float64          `db:"price" json:"price"`
	Category        Category         `db:"category" json:"category"`
	ImageURL        string           `db:"image_url" json:"imageUrl"`
	Images          pq.StringArray   `db:"images" json:"images"`
	Stock           int              `db:"stock" json:"stock"`
	Condition       ProductCondition `db:"condition" json:"condition"`
	Tags            pq.StringArray   `db:"tags" json:"tags"`
	Location        string           `db:"location" json:"location"`
	ContactEmail    string           `db:"contact_email" json:"contactEmail"`
	ContactPhone    string           `db:"contact_phone" json:"contactPhone"`
	IsAvailable     bool             `db:"is_available" json:"isAvailable"`
	Views           int              `db:"views" json:"views"`
	RatingAverage   float64          `db:"rating_average" json:"ratingAverage"`
	RatingCount     int              `db:"rating_count" json:"ratingCount"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether userID owns the product.
func (p *Product) OwnedBy(userID string) bool {
	return p.InstitutionID == userID
}

// Rating returns the product's running aggregate.
func (p *Product) Rating() RatingSummary {
	return RatingSummary{Average: p.RatingAverage, Count: p.RatingCount}
}

// ProductRating is one immutable entry of the product rating log.
type ProductRating struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"productId"`
	UserID    string    `db:"user_id" json:"userId"`
	Rating    int       `db:"rating" json:"rating"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RunningAverage folds one more rating into an aggregate using the count
// before the increment: (avg*count + r) / (count+1).
func RunningAverage(current RatingSummary, rating int) RatingSummary {
	total := current.Average*float64(current.Count) + float64(rating)
	count := current.Count + 1
	return RatingSummary{Average: total / float64(count), Count: count}
}

// ProductFilter captures the listing predicates for products.
type ProductFilter struct {
	Category      Category
	Location      string
	Search        string
	Condition     ProductCondition
	MinPrice      *float64
	MaxPrice      *float64
	InstitutionID string
	// Status is honoured only for the owner's own listing.
	Status string
	// PublicOnly hides unavailable products.
	PublicOnly bool
	ListParams
}
