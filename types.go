package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the structured logger used across the package. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// PasswordHasher hashes and verifies credentials
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, password string) bool
}

// TokenService signs and verifies bearer credentials
type TokenService interface {
	Issue(claims Claims, ttl time.Duration) (string, error)
	Verify(token string) (*SessionClaims, bool)
}

// SessionValidator resolves a bearer token to a live principal. A nil
// principal with a nil error means the request is anonymous.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*Principal, error)
}

// RateLimiter reports whether another attempt for key is allowed
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() string
	GetTokenTTL() time.Duration
	GetSessionTTL() time.Duration
	GetDIDDomain() string
}

// Principal is the identity attached to an authenticated request
type Principal struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	DID       string    `json:"did,omitempty"`
	SessionID uuid.UUID `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   *Profile  `json:"profile,omitempty"`
}

// IsAdmin reports whether the principal carries the admin role
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// defLogger writes plain lines to stdout. Debug lines are dropped unless
// debug is set.
type defLogger struct {
	out   io.Writer
	debug bool
}

// NewDefaultLogger returns the plain text logger used when no logger is
// configured. A nil out writes to stdout.
func NewDefaultLogger(out io.Writer, debug bool) Logger {
	return defLogger{out: out, debug: debug}
}

func (d defLogger) Debug(msg string, args ...any) {
	if !d.debug {
		return
	}
	d.write("[DBG] AUTH ", msg, args)
}

func (d defLogger) Info(msg string, args ...any) {
	d.write("[INF] AUTH ", msg, args)
}

func (d defLogger) Warn(msg string, args ...any) {
	d.write("[WRN] AUTH ", msg, args)
}

func (d defLogger) Error(msg string, args ...any) {
	d.write("[ERR] AUTH ", msg, args)
}

func (d defLogger) write(prefix, msg string, args []any) {
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprint(out, prefix+line(msg, args))
}

func line(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteByte('\n')
	return b.String()
}

type defProvider struct {
	logger Logger
}

func (p defProvider) GetLogger(string) Logger {
	return p.logger
}

// ResolveLogger returns a provider and a named logger. The provider wins
// when it returns a logger for name, then the explicit logger, then the
// package default.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if l := provider.GetLogger(name); l != nil {
			return provider, l
		}
	}

	if logger == nil {
		logger = defLogger{}
	}

	return defProvider{logger: logger}, logger
}

func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
