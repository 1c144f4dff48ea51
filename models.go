package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Username      string    `bun:"username,notnull,unique" json:"username"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	DID           string    `bun:"did,nullzero" json:"did,omitempty"`
	Role          Role      `bun:"role,notnull" json:"role"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Public returns a copy without the password hash
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}

// Profile is the public facing data owned by exactly one user
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	UserID        uuid.UUID      `bun:"user_id,notnull,unique,type:uuid" json:"user_id"`
	DisplayName   string         `bun:"display_name,notnull" json:"display_name"`
	Bio           string         `bun:"bio,nullzero" json:"bio,omitempty"`
	AvatarURL     string         `bun:"avatar_url,nullzero" json:"avatar_url,omitempty"`
	BannerURL     string         `bun:"banner_url,nullzero" json:"banner_url,omitempty"`
	Metadata      map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

// AddMetadata will append information to the metadata attribute
func (p *Profile) AddMetadata(key string, val any) *Profile {
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata[key] = val
	return p
}

// Session is a server side login session
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Token         string    `bun:"token,notnull,unique" json:"-"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// IsExpired reports whether the session is no longer valid at now
func (s *Session) IsExpired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// AuthResult is returned by register and login
type AuthResult struct {
	User    *User    `json:"user"`
	Profile *Profile `json:"profile,omitempty"`
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}
