package model

import (
	"github.com/google/uuid"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser is what the user repository receives on signup; the repository
// hashes Password before persisting.
type NewUser struct {
	Name     string
	Email    string
	Password string
}

// PublicUser is the projection returned to clients.
type PublicUser struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	UserID       uuid.UUID
}

type AccessToken struct {
	Token  string
	TTL    time.Duration
	UserID uuid.UUID
}

// AuthResult is produced by signup and login.
type AuthResult struct {
	User   User
	Tokens TokenPair
}
