package sessionware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-syr-auth"
)

const DefaultCookieName = "session"

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	// Secure should be true outside local development
	Secure bool
	MaxAge time.Duration
}

func (cc CookieConfig) withDefaults() CookieConfig {
	if cc.Name == "" {
		cc.Name = DefaultCookieName
	}
	if cc.Path == "" {
		cc.Path = "/"
	}
	if cc.MaxAge <= 0 {
		cc.MaxAge = auth.DefaultSessionTTL
	}
	return cc
}

// SetSessionCookie writes token as an HttpOnly, SameSite=Strict cookie
func SetSessionCookie(c *fiber.Ctx, cc CookieConfig, token string) {
	cc = cc.withDefaults()
	c.Cookie(&fiber.Cookie{
		Name:     cc.Name,
		Value:    token,
		Path:     cc.Path,
		Domain:   cc.Domain,
		MaxAge:   int(cc.MaxAge.Seconds()),
		Expires:  time.Now().Add(cc.MaxAge),
		Secure:   cc.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie on the client
func ClearSessionCookie(c *fiber.Ctx, cc CookieConfig) {
	cc = cc.withDefaults()
	c.Cookie(&fiber.Cookie{
		Name:     cc.Name,
		Value:    "",
		Path:     cc.Path,
		Domain:   cc.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   cc.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
