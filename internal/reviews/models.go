package reviews

import "time"

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Product context for per-user listings.
	ProductName string `json:"product_name,omitempty"`
	ProductSlug string `json:"product_slug,omitempty"`
}

type NewReview struct {
	ProductID string  `json:"product_id" validate:"required"`
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Comment   *string `json:"comment" validate:"omitempty,max=2000"`
}

type UpdateReview struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// Stats is derived from the live review rows on every product listing.
type Stats struct {
	TotalReviews  int         `json:"total_reviews"`
	AverageRating float64     `json:"average_rating"`
	Distribution  map[int]int `json:"rating_distribution"`
}

type Page struct {
	Reviews    []Review `json:"reviews"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Stats      Stats    `json:"stats"`
}
