package repo

//go:generate mockgen -destination=mocks/mock_repo.go -package=mocks . UserRepo,SessionRepo

import (
	"context"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"time"
)

// UserRepo owns user records. CreateUser hashes the password and must reject
// a duplicate email atomically with ErrAlreadyExists.
type UserRepo interface {
	CreateUser(ctx context.Context, u model.NewUser) (model.User, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	ComparePassword(ctx context.Context, u model.User, plaintext string) (bool, error)
}

// SessionRepo keeps the single valid refresh token per user.
type SessionRepo interface {
	Put(ctx context.Context, userID uuid.UUID, refreshToken string, ttl time.Duration) error

	// Get returns ErrNotFound when no record exists or it has expired.
	Get(ctx context.Context, userID uuid.UUID) (string, error)

	// Delete is idempotent.
	Delete(ctx context.Context, userID uuid.UUID) error
}
