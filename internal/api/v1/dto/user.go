package dto

import "time"

// UserCreateDTO is used for incoming create requests
type UserCreateDTO struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"required,email"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID            string    `json:"user_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	HasLifetimeAccess bool      `json:"has_lifetime_access"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
