package http

import (
	"net/http"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/cookie"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/middleware"
	appsvc "github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/service"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	lg "github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgServerError        = "Server error"
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidBody        = "Fill all the fields"
	msgUserCreated        = "User created successfully"
	msgUserLoggedIn       = "User logged in successfully"
	msgLoggedOut          = "Logged out successfully"
	msgTokenRefreshed     = "Token refreshed successfully"
	msgUserNotFound       = "User not found"
)

type Handler struct {
	svc     appsvc.Service
	cookies *cookie.Transport
	metrics *metrics.AuthMetrics
	log     *zap.Logger
}

func NewHandler(svc appsvc.Service, cookies *cookie.Transport, m *metrics.AuthMetrics, log *zap.Logger) *Handler {
	return &Handler{svc: svc, cookies: cookies, metrics: m, log: log}
}

func (h *Handler) Signup(c *gin.Context) {
	var body dto.SignupDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, metrics.EventSignup, customErrors.NewInvalidArgument(msgInvalidBody))
		return
	}
	h.log.Info("/sign-up", lg.Email(body.Email))

	res, err := h.svc.Signup(c.Request.Context(), body)
	if err != nil {
		h.fail(c, metrics.EventSignup, err)
		return
	}

	h.cookies.Write(c, res.Tokens)
	h.metrics.Record(metrics.EventSignup, metrics.OutcomeSuccess)
	c.JSON(http.StatusCreated, dto.AuthResponse{
		Success: true,
		User:    res.User.Public(),
		Message: msgUserCreated,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, metrics.EventLogin, customErrors.NewInvalidArgument(msgInvalidBody))
		return
	}
	h.log.Info("/login", lg.Email(body.Email))

	res, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		h.fail(c, metrics.EventLogin, err)
		return
	}

	h.cookies.Write(c, res.Tokens)
	h.metrics.Record(metrics.EventLogin, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, dto.AuthResponse{
		Success: true,
		User:    res.User.Public(),
		Message: msgUserLoggedIn,
	})
}

// Logout clears the cookies whatever the outcome of the session delete.
func (h *Handler) Logout(c *gin.Context) {
	rt, _ := h.cookies.ReadRefresh(c)
	err := h.svc.Logout(c.Request.Context(), rt)
	h.cookies.Clear(c)
	if err != nil {
		h.fail(c, metrics.EventLogout, err)
		return
	}

	h.metrics.Record(metrics.EventLogout, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, dto.MessageResponse{Success: true, Message: msgLoggedOut})
}

func (h *Handler) Refresh(c *gin.Context) {
	rt, _ := h.cookies.ReadRefresh(c)
	at, err := h.svc.Refresh(c.Request.Context(), rt)
	if err != nil {
		h.fail(c, metrics.EventRefresh, err)
		return
	}

	h.cookies.WriteAccess(c, at)
	h.metrics.Record(metrics.EventRefresh, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, dto.RefreshResponse{Message: msgTokenRefreshed})
}

func (h *Handler) Profile(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, metrics.EventProfile, customErrors.ErrInternal)
		return
	}
	h.metrics.Record(metrics.EventProfile, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, u)
}

func (h *Handler) fail(c *gin.Context, event string, err error) {
	status, msg := handleError(err)
	if status == http.StatusInternalServerError {
		h.metrics.Record(event, metrics.OutcomeError)
		_ = c.Error(err)
	} else {
		h.metrics.Record(event, metrics.OutcomeRejected)
	}
	c.JSON(status, dto.MessageResponse{Success: false, Message: msg})
}

// handleError maps service errors to a status and a message that is safe to
// show the client.
func handleError(err error) (int, string) {
	switch {
	case customErrors.IsInvalidArgument(err):
		msg := customErrors.Message(err, customErrors.ErrInvalidArgument)
		if msg == "" {
			msg = msgInvalidBody
		}
		return http.StatusBadRequest, msg
	case customErrors.IsAlreadyExists(err):
		return http.StatusBadRequest, msgUserExists
	case customErrors.IsInvalidCredentials(err):
		return http.StatusBadRequest, msgInvalidCredentials
	case customErrors.IsInvalidToken(err):
		msg := customErrors.Message(err, customErrors.ErrInvalidToken)
		if msg == "" {
			msg = "Unauthorized"
		}
		return http.StatusUnauthorized, msg
	case customErrors.IsNotFound(err):
		return http.StatusNotFound, msgUserNotFound
	default:
		return http.StatusInternalServerError, msgServerError
	}
}
