package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/db/postgres"
	sessionRedis "github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/db/redis"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/adapters/transport/http/cookie"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/shop-service/internal/app/auth/service"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	authjwt "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/config"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/health"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/metrics"
	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/ratelimit"
	"github.com/alexedwards/argon2id"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

type testEnv struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
}

func newEnv(t *testing.T, opts ...func(*RouterDeps)) testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&postgres.UserRecord{}))

	params := &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	users := postgres.NewPostgresUserRepo(db, password.NewHasher("pepper", params))

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	sessions := sessionRedis.NewRedisSessionRepo(client)

	util, err := jwt.NewJWTUtil(&config.Config{AccessTokenSecret: "a-secret", RefreshTokenSecret: "r-secret"})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	svc := appsvc.New(users, sessions, util, validator.New())
	h := NewHandler(svc, cookie.New(false, ""), m, zap.NewNop())

	deps := RouterDeps{
		Handler:  h,
		Health:   health.NewChecker(time.Second).Add("redis", sessions).Add("users", users),
		Gatherer: reg,
		Log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(&deps)
	}
	router, err := NewRouter(deps)
	require.NoError(t, err)
	return testEnv{router: router, mr: mr}
}

func (e testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func cookiesOf(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range (&http.Response{Header: w.Header()}).Cookies() {
		out[c.Name] = c
	}
	return out
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

const annSignup = `{"name":"Ann","email":"ann@example.com","password":"secret"}`

func TestSignup(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/auth/sign-up", annSignup)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "User created successfully", body["message"])
	user := body["user"].(map[string]any)
	require.NotEmpty(t, user["_id"])
	require.Equal(t, "Ann", user["name"])
	require.Equal(t, "ann@example.com", user["email"])
	require.Equal(t, "customer", user["role"])
	require.NotContains(t, w.Body.String(), "secret")
	require.NotContains(t, w.Body.String(), "argon2id")

	ck := cookiesOf(w)
	require.NotEmpty(t, ck[cookie.AccessTokenName].Value)
	require.NotEmpty(t, ck[cookie.RefreshTokenName].Value)
	require.Equal(t, 672, ck[cookie.RefreshTokenName].MaxAge/ck[cookie.AccessTokenName].MaxAge)
	require.True(t, e.mr.Exists("refresh_token:"+user["_id"].(string)))
}

func TestSignup_Rejections(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		name, body, msg string
	}{
		{"missing name", `{"email":"a@x.com","password":"pw"}`, "Fill all the fields"},
		{"empty", `{}`, "Fill all the fields"},
		{"malformed", `{"email":`, "Fill all the fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/api/auth/sign-up", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			require.Equal(t, false, body["success"])
			require.Equal(t, tc.msg, body["message"])
			require.Empty(t, cookiesOf(w))
		})
	}
}

func TestSignup_Duplicate(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/auth/sign-up", annSignup).Code)

	w := e.do(http.MethodPost, "/api/auth/sign-up", annSignup)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "User already exists", decode(t, w)["message"])
	require.Empty(t, cookiesOf(w))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/auth/sign-up", annSignup).Code)

	w := e.do(http.MethodPost, "/api/auth/login", `{"email":"ann@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, "User logged in successfully", body["message"])

	ck := cookiesOf(w)
	id := body["user"].(map[string]any)["_id"].(string)
	stored, err := e.mr.Get("refresh_token:" + id)
	require.NoError(t, err)
	require.Equal(t, ck[cookie.RefreshTokenName].Value, stored)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/auth/sign-up", annSignup).Code)

	wrongPwd := e.do(http.MethodPost, "/api/auth/login", `{"email":"ann@example.com","password":"nope"}`)
	unknown := e.do(http.MethodPost, "/api/auth/login", `{"email":"bob@example.com","password":"secret"}`)

	for _, w := range []*httptest.ResponseRecorder{wrongPwd, unknown} {
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "Invalid email or password", decode(t, w)["message"])
		require.Empty(t, cookiesOf(w))
	}
	require.Equal(t, wrongPwd.Body.String(), unknown.Body.String())
}

func TestRefresh(t *testing.T) {
	e := newEnv(t)
	signup := e.do(http.MethodPost, "/api/auth/sign-up", annSignup)
	rt := cookiesOf(signup)[cookie.RefreshTokenName]

	w := e.do(http.MethodPost, "/api/auth/refresh-token", "", rt)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Token refreshed successfully", decode(t, w)["message"])

	ck := cookiesOf(w)
	require.Len(t, ck, 1)
	require.NotEmpty(t, ck[cookie.AccessTokenName].Value)
	require.Equal(t, 900, ck[cookie.AccessTokenName].MaxAge)
}

func TestRefresh_Rejections(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/auth/refresh-token", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "No refresh token provided", decode(t, w)["message"])

	w = e.do(http.MethodPost, "/api/auth/refresh-token", "",
		&http.Cookie{Name: cookie.RefreshTokenName, Value: "tampered.token.value"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid refresh token", decode(t, w)["message"])
	require.Empty(t, cookiesOf(w))
}

func TestRefresh_StaleAfterLogin(t *testing.T) {
	e := newEnv(t)
	first := cookiesOf(e.do(http.MethodPost, "/api/auth/sign-up", annSignup))[cookie.RefreshTokenName]
	login := e.do(http.MethodPost, "/api/auth/login", `{"email":"ann@example.com","password":"secret"}`)
	second := cookiesOf(login)[cookie.RefreshTokenName]

	w := e.do(http.MethodPost, "/api/auth/refresh-token", "", first)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid refresh token", decode(t, w)["message"])

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/auth/refresh-token", "", second).Code)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	rt := cookiesOf(e.do(http.MethodPost, "/api/auth/sign-up", annSignup))[cookie.RefreshTokenName]

	for i := 0; i < 2; i++ {
		w := e.do(http.MethodPost, "/api/auth/logout", "", rt)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		require.Equal(t, true, body["success"])
		require.Equal(t, "Logged out successfully", body["message"])

		ck := cookiesOf(w)
		require.Len(t, ck, 2)
		for _, c := range ck {
			require.Empty(t, c.Value)
			require.Equal(t, -1, c.MaxAge)
		}
	}

	w := e.do(http.MethodPost, "/api/auth/refresh-token", "", rt)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_WithoutCookie(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, cookiesOf(w), 2)
}

func TestLogout_StoreDownStillClearsCookies(t *testing.T) {
	e := newEnv(t)
	rt := cookiesOf(e.do(http.MethodPost, "/api/auth/sign-up", annSignup))[cookie.RefreshTokenName]
	e.mr.Close()

	w := e.do(http.MethodPost, "/api/auth/logout", "", rt)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Server error", decode(t, w)["message"])
	require.NotContains(t, w.Body.String(), "refused")
	require.Len(t, cookiesOf(w), 2)
}

func TestProfile(t *testing.T) {
	e := newEnv(t)
	at := cookiesOf(e.do(http.MethodPost, "/api/auth/sign-up", annSignup))[cookie.AccessTokenName]

	w := e.do(http.MethodGet, "/api/auth/profile", "", at)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, "ann@example.com", body["email"])
	require.NotContains(t, body, "password")

	w = e.do(http.MethodGet, "/api/auth/profile", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Unauthorized - No access token provided", decode(t, w)["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/auth/sign-up", annSignup)

	w := e.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(),
		`shop_auth_events_total{event="signup",outcome="success"} 1`))

	e.mr.Close()
	w = e.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRefresh_Expired(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/api/auth/sign-up", annSignup)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["user"].(map[string]any)["_id"].(string)

	issued := time.Now().Add(-authjwt.RefreshTokenTTL - time.Hour)
	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, authjwt.RefreshClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  gojwt.NewNumericDate(issued),
			ExpiresAt: gojwt.NewNumericDate(issued.Add(authjwt.RefreshTokenTTL)),
		},
		UserID: id,
	}).SignedString([]byte("r-secret"))
	require.NoError(t, err)
	require.NoError(t, e.mr.Set("refresh_token:"+id, expired))

	w = e.do(http.MethodPost, "/api/auth/refresh-token", "",
		&http.Cookie{Name: cookie.RefreshTokenName, Value: expired})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid refresh token", decode(t, w)["message"])
	require.NotContains(t, cookiesOf(w), cookie.AccessTokenName)
}

func limitedEnv(t *testing.T, proxies ...string) testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l, err := ratelimit.New(ctx, 1, 1, 100, time.Hour)
	require.NoError(t, err)
	return newEnv(t, func(d *RouterDeps) {
		d.Limiter = l
		d.TrustedProxies = proxies
	})
}

// allowedFrom sends n requests from remoteAddr, each with its own
// X-Forwarded-For, and counts those that got past the limiter.
func allowedFrom(e testEnv, remoteAddr string, n int) int {
	allowed := 0
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		if w.Code != http.StatusTooManyRequests {
			allowed++
		}
	}
	return allowed
}

func TestRateLimit_ForwardedForIgnoredByDefault(t *testing.T) {
	e := limitedEnv(t)
	require.Equal(t, 1, allowedFrom(e, "10.0.0.1:1234", 20))
}

func TestRateLimit_ForwardedForFromTrustedProxy(t *testing.T) {
	e := limitedEnv(t, "10.0.0.1")
	require.Equal(t, 20, allowedFrom(e, "10.0.0.1:1234", 20))
	// an untrusted peer cannot pick its own bucket
	require.Equal(t, 1, allowedFrom(e, "10.0.0.2:1234", 20))
}

func TestNewRouter_BadTrustedProxy(t *testing.T) {
	_, err := NewRouter(RouterDeps{TrustedProxies: []string{"not-an-ip"}, Log: zap.NewNop()})
	require.Error(t, err)
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{customErrors.NewInvalidArgument("Fill all the fields"), http.StatusBadRequest, "Fill all the fields"},
		{customErrors.ErrAlreadyExists, http.StatusBadRequest, "User already exists"},
		{customErrors.ErrInvalidCredentials, http.StatusBadRequest, "Invalid email or password"},
		{customErrors.NewInvalidToken("Invalid refresh token"), http.StatusUnauthorized, "Invalid refresh token"},
		{customErrors.ErrNotFound, http.StatusNotFound, "User not found"},
		{customErrors.WrapInternal(http.ErrServerClosed, "x"), http.StatusInternalServerError, "Server error"},
	}
	for _, tc := range cases {
		status, msg := handleError(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.msg, msg)
	}
}
