package cookie

import (
	"net/http"
	"time"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"

	path = "/"
)

// Transport carries auth tokens in HttpOnly, SameSite=Strict cookies.
// Secure is set only in production so local development works over plain HTTP.
type Transport struct {
	secure bool
	domain string
}

func New(production bool, domain string) *Transport {
	return &Transport{secure: production, domain: domain}
}

func seconds(d time.Duration) int { return int(d / time.Second) }

func (t *Transport) set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, path, t.domain, t.secure, true)
}

// Write sets both token cookies with lifetimes matching the token TTLs.
func (t *Transport) Write(c *gin.Context, pair model.TokenPair) {
	t.set(c, AccessTokenName, pair.AccessToken, seconds(pair.AccessTTL))
	t.set(c, RefreshTokenName, pair.RefreshToken, seconds(pair.RefreshTTL))
}

func (t *Transport) WriteAccess(c *gin.Context, at model.AccessToken) {
	t.set(c, AccessTokenName, at.Token, seconds(at.TTL))
}

// Clear expires both cookies; clearing absent cookies is harmless.
func (t *Transport) Clear(c *gin.Context) {
	t.set(c, AccessTokenName, "", -1)
	t.set(c, RefreshTokenName, "", -1)
}

func read(c *gin.Context, name string) (string, bool) {
	v, err := c.Cookie(name)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (t *Transport) ReadRefresh(c *gin.Context) (string, bool) {
	return read(c, RefreshTokenName)
}

func (t *Transport) ReadAccess(c *gin.Context) (string, bool) {
	return read(c, AccessTokenName)
}
