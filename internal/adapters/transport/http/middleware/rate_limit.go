package middleware

import (
	"net/http"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimitPerIP keys on c.ClientIP, which is the socket peer unless the
// engine trusts the forwarding proxy.
func RateLimitPerIP(l *ratelimit.PerKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.MessageResponse{
				Success: false,
				Message: "Too many requests",
			})
			return
		}
		c.Next()
	}
}
