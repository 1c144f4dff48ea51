// Package csrf rejects cross site state changing requests that ride on the
// session cookie. Requests authenticated by an Authorization header carry
// no ambient credentials and pass through.
package csrf

import (
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-syr-auth/middleware/sessionware"
)

var (
	ErrOriginMissing  = errors.New("CSRF origin missing")
	ErrOriginMismatch = errors.New("CSRF origin mismatch")
)

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(*fiber.Ctx) bool

	// AllowedOrigins lists scheme://host[:port] values accepted besides the
	// request's own origin
	AllowedOrigins []string

	// CookieName is the session cookie. Requests without it are not checked.
	CookieName string

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// ErrorHandler defines the error handler
	ErrorHandler func(*fiber.Ctx, error) error
}

// ConfigDefault is the default config
var ConfigDefault = Config{
	CookieName:  sessionware.DefaultCookieName,
	SafeMethods: []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace},
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "CSRF_REJECTED",
				"message": err.Error(),
			},
		})
	},
}

// New creates a new CSRF middleware
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		if slices.Contains(cfg.SafeMethods, strings.ToUpper(c.Method())) {
			return c.Next()
		}

		if c.Cookies(cfg.CookieName) == "" {
			return c.Next()
		}

		if err := checkOrigin(c, cfg); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return c.Next()
	}
}

func checkOrigin(c *fiber.Ctx, cfg Config) error {
	origin := c.Get(fiber.HeaderOrigin)
	if origin == "" {
		// older clients send only a referer
		referer := c.Get(fiber.HeaderReferer)
		if referer == "" {
			return ErrOriginMissing
		}
		u, err := url.Parse(referer)
		if err != nil || u.Host == "" {
			return ErrOriginMismatch
		}
		origin = u.Scheme + "://" + u.Host
	}

	origin = normalizeOrigin(origin)
	if origin == normalizeOrigin(c.BaseURL()) {
		return nil
	}
	if slices.Contains(cfg.AllowedOrigins, origin) {
		return nil
	}
	return ErrOriginMismatch
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.CookieName == "" {
		cfg.CookieName = ConfigDefault.CookieName
	}
	if len(cfg.SafeMethods) == 0 {
		cfg.SafeMethods = ConfigDefault.SafeMethods
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ConfigDefault.ErrorHandler
	}

	allowed := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = normalizeOrigin(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	cfg.AllowedOrigins = allowed

	return cfg
}
