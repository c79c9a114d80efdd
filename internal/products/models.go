package products

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	CategoryID  *string   `json:"category_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Images        []Image  `json:"images,omitempty"`
	AverageRating *float64 `json:"average_rating,omitempty"`
	ReviewCount   int      `json:"review_count"`
}

type Image struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	IsPrimary bool      `json:"is_primary"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type NewProduct struct {
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       int64   `json:"price" validate:"required,min=0"`
	Stock       int     `json:"stock" validate:"min=0"`
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid4"`
}

type UpdateProduct struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Price       *int64  `json:"price" validate:"omitempty,min=0"`
	Stock       *int    `json:"stock" validate:"omitempty,min=0"`
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid4"`
}

type NewImage struct {
	URL       string `json:"url" validate:"required,url"`
	AltText   string `json:"alt_text" validate:"max=200"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder int    `json:"sort_order" validate:"min=0"`
}

// Filters narrows product listings.
type Filters struct {
	Search     string
	CategoryID string
	MinPrice   *int64
	MaxPrice   *int64
	InStock    bool
	SortBy     string // price_asc, price_desc, name, newest
	Page       int
	Limit      int
}
