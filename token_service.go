package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultIssuer is the iss claim of every token
	DefaultIssuer = "syr"
	// DefaultAudience is the aud claim of every token
	DefaultAudience = "syr-api"
	// DefaultTokenTTL is the token lifetime when none is given
	DefaultTokenTTL = 7 * 24 * time.Hour
	// MinSigningKeyLength is the shortest accepted HMAC secret
	MinSigningKeyLength = 32
)

// JWTTokenService implements the TokenService interface with HS256
type JWTTokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   string
	now        func() time.Time
	logger     Logger
}

var _ TokenService = (*JWTTokenService)(nil)

// TokenServiceOption configures a JWTTokenService
type TokenServiceOption func(*JWTTokenService)

// WithTokenIssuer overrides the iss claim
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if issuer != "" {
			ts.issuer = issuer
		}
	}
}

// WithTokenAudience overrides the aud claim
func WithTokenAudience(audience string) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if audience != "" {
			ts.audience = audience
		}
	}
}

// WithTokenTTL sets the default lifetime
func WithTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if ttl > 0 {
			ts.ttl = ttl
		}
	}
}

// WithTokenClock sets the time source used for iat, exp and validation
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, opts ...TokenServiceOption) (*JWTTokenService, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, goerrors.New(
			fmt.Sprintf("signing key must be at least %d bytes", MinSigningKeyLength),
			goerrors.CategoryInternal,
		).WithTextCode(TextCodeInternal)
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	ts := &JWTTokenService{
		signingKey: key,
		ttl:        DefaultTokenTTL,
		issuer:     DefaultIssuer,
		audience:   DefaultAudience,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// NewTokenServiceFromConfig creates a token service from Config
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*JWTTokenService, error) {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		WithTokenIssuer(cfg.GetIssuer()),
		WithTokenAudience(cfg.GetAudience()),
		WithTokenTTL(cfg.GetTokenTTL()),
		WithTokenLogger(logger),
	)
}

// TTL returns the default token lifetime
func (ts *JWTTokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs claims. A non positive ttl uses the configured default.
func (ts *JWTTokenService) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = ts.ttl
	}

	now := ts.now()
	sc := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   claims.UserID,
			Audience:  jwt.ClaimStrings{ts.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      claims.UserID,
		Name:     claims.Username,
		UserRole: claims.Role,
		SID:      claims.SessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sc)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", internalError(err, "failed to sign JWT")
	}

	return signed, nil
}

// Verify parses and validates a token. Every failure yields (nil, false).
func (ts *JWTTokenService) Verify(tokenString string) (*SessionClaims, bool) {
	if tokenString == "" {
		return nil, false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ts.issuer),
		jwt.WithAudience(ts.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		ts.logger.Debug("token rejected", "error", err)
		return nil, false
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.UID == "" || claims.SID == "" {
		ts.logger.Debug("token rejected", "error", "incomplete claims")
		return nil, false
	}

	return claims, true
}
