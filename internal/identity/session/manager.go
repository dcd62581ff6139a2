package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/vendora/internal/config"
)

const (
	DefaultCookieName = "vendora_session"
	CartCookieName    = "vendora_cart"
)

// Manager manages the auth session cookie and the anonymous cart cookie.
type Manager struct {
	cookieName string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

// EnsureCartKey returns the anonymous cart session key, minting a cookie
// for first-time shoppers.
func (m *Manager) EnsureCartKey(c *gin.Context) string {
	key, err := c.Cookie(CartCookieName)
	if err == nil && strings.TrimSpace(key) != "" {
		return key
	}
	key = uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CartCookieName, key, int((30 * 24 * time.Hour).Seconds()), "/", "", m.secure, true)
	return key
}

// ClearCartKey drops the anonymous cart cookie, used after a login merge.
func (m *Manager) ClearCartKey(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CartCookieName, "", -1, "/", "", m.secure, true)
}
