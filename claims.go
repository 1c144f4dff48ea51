package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity payload carried by a bearer token
type Claims struct {
	UserID    string
	Username  string
	Role      Role
	SessionID string
}

// SessionClaims is the JWT form of Claims
type SessionClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"userId"`
	Name     string `json:"username"`
	UserRole Role   `json:"role"`
	SID      string `json:"sessionId"`
}

// UserID returns the user ID
func (c *SessionClaims) UserID() string {
	return c.UID
}

// Username returns the username
func (c *SessionClaims) Username() string {
	return c.Name
}

// Role returns the global role
func (c *SessionClaims) Role() Role {
	return c.UserRole
}

// SessionID returns the server side session id the token refers to
func (c *SessionClaims) SessionID() string {
	return c.SID
}

// Claims returns the identity payload
func (c *SessionClaims) Claims() Claims {
	return Claims{
		UserID:    c.UID,
		Username:  c.Name,
		Role:      c.UserRole,
		SessionID: c.SID,
	}
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
