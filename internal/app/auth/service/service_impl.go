package service

import (
	"context"
	"errors"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/repo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	msgFillAllFields  = "Fill all the fields"
	msgNoRefreshToken = "No refresh token provided"
	msgInvalidRefresh = "Invalid refresh token"
)

type authService struct {
	userRepo    repo.UserRepo
	sessionRepo repo.SessionRepo
	jwtUtil     jwt.JWTUtil
	v           *validator.Validate
}

type Service interface {
	Signup(context.Context, dto.SignupDTO) (model.AuthResult, error)
	Login(context.Context, dto.LoginDTO) (model.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (model.AccessToken, error)
	Authenticate(ctx context.Context, accessToken string) (model.User, error)
}

func New(
	ur repo.UserRepo,
	sr repo.SessionRepo,
	jm jwt.JWTUtil,
	v *validator.Validate,
) Service {
	return &authService{
		userRepo: ur, sessionRepo: sr, jwtUtil: jm, v: v,
	}
}

func (a *authService) Signup(ctx context.Context, in dto.SignupDTO) (model.AuthResult, error) {
	if err := a.v.Struct(in); err != nil {
		return model.AuthResult{}, customErrors.NewInvalidArgument(msgFillAllFields)
	}

	_, err := a.userRepo.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return model.AuthResult{}, customErrors.ErrAlreadyExists
	case !errors.Is(err, customErrors.ErrNotFound):
		return model.AuthResult{}, customErrors.WrapInternal(err, "Signup")
	}

	user, err := a.userRepo.CreateUser(ctx, model.NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		// lost the race against a concurrent signup with the same email
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.AuthResult{}, customErrors.ErrAlreadyExists
		}
		return model.AuthResult{}, customErrors.WrapInternal(err, "Signup")
	}

	return a.startSession(ctx, user)
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (model.AuthResult, error) {
	if err := a.v.Struct(in); err != nil {
		return model.AuthResult{}, customErrors.NewInvalidArgument(msgFillAllFields)
	}

	user, err := a.userRepo.GetUserByEmail(ctx, in.Email)
	switch {
	// unknown email and wrong password are indistinguishable to the caller
	case errors.Is(err, customErrors.ErrNotFound):
		return model.AuthResult{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.AuthResult{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := a.userRepo.ComparePassword(ctx, user, in.Password)
	if err != nil {
		return model.AuthResult{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return model.AuthResult{}, customErrors.ErrInvalidCredentials
	}

	return a.startSession(ctx, user)
}

// startSession issues a token pair and makes its refresh token the only
// valid one for the user.
func (a *authService) startSession(ctx context.Context, user model.User) (model.AuthResult, error) {
	pair, err := a.jwtUtil.IssueTokens(user.ID)
	if err != nil {
		return model.AuthResult{}, customErrors.WrapInternal(err, "IssueTokens")
	}

	if err = a.sessionRepo.Put(ctx, user.ID, pair.RefreshToken, pair.RefreshTTL); err != nil {
		return model.AuthResult{}, customErrors.WrapInternal(err, "StoreRefresh")
	}

	return model.AuthResult{User: user, Tokens: pair}, nil
}

// Logout never fails on a missing, expired or forged refresh token: the
// client is treated as already logged out.
func (a *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}

	if err := a.sessionRepo.Delete(ctx, uid); err != nil {
		return customErrors.WrapInternal(err, "Logout")
	}
	return nil
}

// Refresh issues a new access token only; the refresh token and its session
// record are left as they are.
func (a *authService) Refresh(ctx context.Context, refreshToken string) (model.AccessToken, error) {
	if refreshToken == "" {
		return model.AccessToken{}, customErrors.NewInvalidToken(msgNoRefreshToken)
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(refreshToken)
	if err != nil {
		if customErrors.IsInvalidToken(err) {
			return model.AccessToken{}, customErrors.NewInvalidToken(msgInvalidRefresh)
		}
		return model.AccessToken{}, customErrors.WrapInternal(err, "Refresh")
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return model.AccessToken{}, customErrors.NewInvalidToken(msgInvalidRefresh)
	}

	stored, err := a.sessionRepo.Get(ctx, uid)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.AccessToken{}, customErrors.NewInvalidToken(msgInvalidRefresh)
	case err != nil:
		return model.AccessToken{}, customErrors.WrapInternal(err, "Refresh")
	}
	if stored != refreshToken {
		return model.AccessToken{}, customErrors.NewInvalidToken(msgInvalidRefresh)
	}

	at, err := a.jwtUtil.IssueAccessToken(uid)
	if err != nil {
		return model.AccessToken{}, customErrors.WrapInternal(err, "IssueAccessToken")
	}
	return at, nil
}

func (a *authService) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	if accessToken == "" {
		return model.User{}, customErrors.ErrInvalidToken
	}

	claims, err := a.jwtUtil.ValidateAccessToken(accessToken)
	if err != nil {
		return model.User{}, customErrors.ErrInvalidToken
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return model.User{}, customErrors.ErrInvalidToken
	}

	user, err := a.userRepo.GetUserByID(ctx, uid)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.ErrNotFound
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "Authenticate")
	}
	return user, nil
}
