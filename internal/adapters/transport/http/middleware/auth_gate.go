package middleware

import (
	"context"
	"net/http"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/cookie"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userKey = "user"

const (
	msgNoAccessToken      = "Unauthorized - No access token provided"
	msgInvalidAccessToken = "Unauthorized - Invalid access token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.User, error)
}

// AuthGate admits requests carrying a valid access cookie and stores the
// caller's public profile in the context for downstream handlers.
func AuthGate(auth Authenticator, cookies *cookie.Transport, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := cookies.ReadAccess(c)
		if !ok {
			abort(c, http.StatusUnauthorized, msgNoAccessToken)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
		case customErrors.IsInvalidToken(err), customErrors.IsNotFound(err):
			abort(c, http.StatusUnauthorized, msgInvalidAccessToken)
			return
		default:
			log.Error("auth gate", zap.Error(err))
			abort(c, http.StatusInternalServerError, "Server error")
			return
		}

		c.Set(userKey, user.Public())
		c.Next()
	}
}

// CurrentUser returns the profile stored by AuthGate.
func CurrentUser(c *gin.Context) (model.PublicUser, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return model.PublicUser{}, false
	}
	u, ok := v.(model.PublicUser)
	return u, ok
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.MessageResponse{Success: false, Message: msg})
}
