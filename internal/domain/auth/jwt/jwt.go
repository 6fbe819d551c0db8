package jwt

import (
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

type JWTUtil interface {
	IssueTokens(userID uuid.UUID) (model.TokenPair, error)
	IssueAccessToken(userID uuid.UUID) (model.AccessToken, error)
	ValidateAccessToken(token string) (claims AccessClaims, err error)
	ValidateRefreshToken(token string) (claims RefreshClaims, err error)
}
