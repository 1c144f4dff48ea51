package sessionware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-syr-auth"
)

const (
	DefaultContextKey = "principal"
	defaultAuthScheme = "Bearer"
)

var ErrMissingOrMalformed = errors.New("missing or malformed session token")

// ValidationListener runs after a session resolves. Returning an error
// drops the request back to anonymous.
type ValidationListener func(c *fiber.Ctx, principal *auth.Principal) error

type Config struct {
	Filter func(*fiber.Ctx) bool
	// Validator resolves tokens to principals. Required.
	Validator auth.SessionValidator
	// TokenLookup lists carriers in order, e.g. "cookie:session,header:Authorization"
	TokenLookup string
	AuthScheme  string
	ContextKey  string
	Cookie      CookieConfig

	ValidationListeners []ValidationListener
	Logger              auth.Logger
}

// New returns the gateway middleware. Requests are either fully resolved
// to a live session or passed on as anonymous; it never rejects.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		token, carrier := ExtractToken(c, extractors)
		if token == "" {
			return c.Next()
		}

		principal, err := cfg.Validator.ValidateSession(c.UserContext(), token)
		if err != nil {
			// store trouble says nothing about the cookie, keep it
			cfg.Logger.Error("session validation failed", "error", err)
			return c.Next()
		}

		if principal == nil {
			if carrier == CarrierCookie {
				ClearSessionCookie(c, cfg.Cookie)
			}
			return c.Next()
		}

		if err := cfg.runValidationListeners(c, principal); err != nil {
			cfg.Logger.Debug("validation listener rejected session", "error", err)
			return c.Next()
		}

		c.Locals(cfg.ContextKey, principal)
		c.SetUserContext(auth.WithPrincipal(c.UserContext(), principal))

		return c.Next()
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validator == nil {
		panic("AUTH: session middleware configuration: Validator is required.")
	}

	if cfg.TokenLookup == "" {
		cookieName := cfg.Cookie.Name
		if cookieName == "" {
			cookieName = DefaultCookieName
		}
		cfg.TokenLookup = "cookie:" + cookieName + ",header:" + fiber.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.Logger == nil {
		_, cfg.Logger = auth.ResolveLogger("auth.sessionware", nil, nil)
	}

	cfg.Cookie = cfg.Cookie.withDefaults()

	return cfg
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, principal *auth.Principal) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, principal); err != nil {
			return err
		}
	}
	return nil
}

// PrincipalFrom returns the principal stored by the gateway
func PrincipalFrom(c *fiber.Ctx, contextKey ...string) (*auth.Principal, bool) {
	key := DefaultContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}
	p, ok := c.Locals(key).(*auth.Principal)
	if ok && p != nil {
		return p, true
	}
	return auth.PrincipalFromContext(c.UserContext())
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth(contextKey ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFrom(c, contextKey...); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    auth.TextCodeUnauthenticated,
					"message": "authentication required",
				},
			})
		}
		return c.Next()
	}
}

// RequireRole rejects principals below minRole with 403
func RequireRole(minRole auth.Role, contextKey ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c, contextKey...)
		if !ok {
			return RequireAuth(contextKey...)(c)
		}
		if !p.Role.IsAtLeast(minRole) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "FORBIDDEN",
					"message": "insufficient role",
				},
			})
		}
		return c.Next()
	}
}

// SecurityHeaders sets the response headers every route carries
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderXFrameOptions, "DENY")
		c.Set(fiber.HeaderXXSSProtection, "1; mode=block")
		return c.Next()
	}
}

// Carrier identifies where a token was found
type Carrier int

const (
	CarrierNone Carrier = iota
	CarrierCookie
	CarrierHeader
	CarrierQuery
)

// Extractor pulls a token from one carrier
type Extractor struct {
	carrier Carrier
	extract func(c *fiber.Ctx) (string, error)
}

// ExtractToken returns the first token found and its carrier
func ExtractToken(c *fiber.Ctx, extractors []Extractor) (string, Carrier) {
	for _, ex := range extractors {
		raw, err := ex.extract(c)
		if raw != "" && err == nil {
			return raw, ex.carrier
		}
	}
	return "", CarrierNone
}

// GetExtractors parses a lookup such as "cookie:session,header:Authorization"
func GetExtractors(tokenLookup string, authSchemes ...string) []Extractor {
	extractors := make([]Extractor, 0)

	authScheme := defaultAuthScheme
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch source {
		case "header":
			extractors = append(extractors, Extractor{CarrierHeader, tokenFromHeader(name, authScheme)})
		case "cookie":
			extractors = append(extractors, Extractor{CarrierCookie, tokenFromCookie(name)})
		case "query":
			extractors = append(extractors, Extractor{CarrierQuery, tokenFromQuery(name)})
		}
	}

	return extractors
}

func tokenFromHeader(header, authScheme string) func(c *fiber.Ctx) (string, error) {
	authScheme = strings.TrimSpace(authScheme)
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrMissingOrMalformed
	}
}

func tokenFromCookie(name string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromQuery(param string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}
