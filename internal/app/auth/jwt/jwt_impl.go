package jwt

import (
	"errors"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

type JwtUtilImpl struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	now           func() time.Time
}

func NewJWTUtil(cfg *config.Config) (*JwtUtilImpl, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, customErrors.WrapInternal(errors.New("token secret is empty"), "NewJWTUtil")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, customErrors.WrapInternal(errors.New("access and refresh secrets are equal"), "NewJWTUtil")
	}

	return &JwtUtilImpl{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		now:           time.Now,
	}, nil
}

func (j *JwtUtilImpl) registered(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if j.audience != "" {
		rc.Audience = jwt.ClaimStrings{j.audience}
	}
	return rc
}

func (j *JwtUtilImpl) IssueAccessToken(userID uuid.UUID) (model.AccessToken, error) {
	claims := jwt2.AccessClaims{
		RegisteredClaims: j.registered(userID, j.now(), jwt2.AccessTokenTTL),
		UserID:           userID.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return model.AccessToken{}, customErrors.WrapInternal(err, "sign access token")
	}

	return model.AccessToken{Token: signed, TTL: jwt2.AccessTokenTTL, UserID: userID}, nil
}

func (j *JwtUtilImpl) issueRefreshToken(userID uuid.UUID) (string, error) {
	claims := jwt2.RefreshClaims{
		RegisteredClaims: j.registered(userID, j.now(), jwt2.RefreshTokenTTL),
		UserID:           userID.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", customErrors.WrapInternal(err, "sign refresh token")
	}
	return signed, nil
}

func (j *JwtUtilImpl) IssueTokens(userID uuid.UUID) (model.TokenPair, error) {
	at, err := j.IssueAccessToken(userID)
	if err != nil {
		return model.TokenPair{}, err
	}
	rt, err := j.issueRefreshToken(userID)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  at.Token,
		RefreshToken: rt,
		AccessTTL:    jwt2.AccessTokenTTL,
		RefreshTTL:   jwt2.RefreshTokenTTL,
		UserID:       userID,
	}, nil
}

func (j *JwtUtilImpl) parse(raw string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return customErrors.ErrInvalidToken
	}
	return nil
}

func (j *JwtUtilImpl) ValidateAccessToken(raw string) (jwt2.AccessClaims, error) {
	var claims jwt2.AccessClaims
	if err := j.parse(raw, &claims, j.accessSecret); err != nil {
		return jwt2.AccessClaims{}, err
	}
	if claims.UserID == "" {
		return jwt2.AccessClaims{}, customErrors.ErrInvalidToken
	}
	return claims, nil
}

func (j *JwtUtilImpl) ValidateRefreshToken(raw string) (jwt2.RefreshClaims, error) {
	var claims jwt2.RefreshClaims
	if err := j.parse(raw, &claims, j.refreshSecret); err != nil {
		return jwt2.RefreshClaims{}, err
	}
	if claims.UserID == "" {
		return jwt2.RefreshClaims{}, customErrors.ErrInvalidToken
	}
	return claims, nil
}
