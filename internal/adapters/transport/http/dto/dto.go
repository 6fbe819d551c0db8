package dto

import "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"

type SignupDTO struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"     validate:"required"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Success bool             `json:"success"`
	User    model.PublicUser `json:"user"`
	Message string           `json:"message"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RefreshResponse struct {
	Message string `json:"message"`
}
