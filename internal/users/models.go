package users

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser is the registration payload.
type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=20"`
}

// UpdateProfile carries optional profile edits; nil fields stay untouched.
type UpdateProfile struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Phone *string `json:"phone" validate:"omitempty,max=20"`
}
