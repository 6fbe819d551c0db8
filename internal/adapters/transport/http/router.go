package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/health"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Handler          *Handler
	Health           *health.Checker
	Limiter          *ratelimit.PerKey
	Gatherer         prometheus.Gatherer
	AllowedOrigins   []string
	AllowCredentials bool
	// TrustedProxies lists the proxies whose X-Forwarded-For is honoured.
	// Empty means the client IP is always the socket peer.
	TrustedProxies   []string
	Log              *zap.Logger
}

func NewRouter(d RouterDeps) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Log))
	if d.Limiter != nil {
		router.Use(middleware.RateLimitPerIP(d.Limiter))
	}
	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: d.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := d.Handler
	auth := router.Group("/api/auth")
	auth.POST("/sign-up", h.Signup)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/refresh-token", h.Refresh)
	auth.GET("/profile", middleware.AuthGate(h.svc, h.cookies, d.Log), h.Profile)

	if d.Health != nil {
		router.GET("/health", func(c *gin.Context) {
			rep := d.Health.Check(c.Request.Context())
			status := http.StatusOK
			if !rep.Healthy {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"status": rep, "time": time.Now().Unix()})
		})
	}
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	return router, nil
}
