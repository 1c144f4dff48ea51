package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// DefaultSessionTTL is the lifetime of a new session
	DefaultSessionTTL = 7 * 24 * time.Hour
	sessionTokenBytes = 32
)

// SessionManager owns the session lifecycle: create, validate with lazy
// expiry, revoke, revoke all and bulk sweep.
type SessionManager struct {
	repo   RepositoryManager
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
	logger Logger
}

// SessionManagerOption configures a SessionManager
type SessionManagerOption func(*SessionManager)

// WithSessionTTL sets the session lifetime
func WithSessionTTL(ttl time.Duration) SessionManagerOption {
	return func(sm *SessionManager) {
		if ttl > 0 {
			sm.ttl = ttl
		}
	}
}

// WithSessionClock sets the time source
func WithSessionClock(now func() time.Time) SessionManagerOption {
	return func(sm *SessionManager) {
		if now != nil {
			sm.now = now
		}
	}
}

// WithSessionLogger sets the logger
func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(sm *SessionManager) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewSessionManager creates a session manager
func NewSessionManager(repo RepositoryManager, opts ...SessionManagerOption) *SessionManager {
	sm := &SessionManager{
		repo:   repo,
		ttl:    DefaultSessionTTL,
		now:    defaultNow,
		random: rand.Reader,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}
	return sm
}

// TTL returns the session lifetime
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// Create persists a new session for userID
func (sm *SessionManager) Create(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return sm.create(ctx, sm.repo.Sessions(), userID)
}

// CreateTx persists a new session inside tx
func (sm *SessionManager) CreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Session, error) {
	return sm.create(ctx, sm.repo.Sessions().InTx(tx), userID)
}

func (sm *SessionManager) create(ctx context.Context, sessions Sessions, userID uuid.UUID) (*Session, error) {
	token, err := sm.newToken()
	if err != nil {
		return nil, internalError(err, "failed to generate session token")
	}

	now := sm.now()
	session, err := CreateSession(ctx, sessions, &Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(sm.ttl),
		CreatedAt: now,
	})
	if err != nil {
		return nil, internalError(err, "failed to persist session")
	}

	return session, nil
}

func (sm *SessionManager) newToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := io.ReadFull(sm.random, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Validate returns the owner of an active session. Missing, expired or
// orphaned sessions yield (nil, nil); expired and orphaned rows are
// deleted on the way.
func (sm *SessionManager) Validate(ctx context.Context, sessionID uuid.UUID) (*User, error) {
	_, user, err := sm.Resolve(ctx, sessionID)
	return user, err
}

// Resolve is Validate returning the session row as well
func (sm *SessionManager) Resolve(ctx context.Context, sessionID uuid.UUID) (*Session, *User, error) {
	sessions := sm.repo.Sessions()

	session, err := FindSessionByID(ctx, sessions, sessionID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, internalError(err, "failed to load session")
	}

	if session.IsExpired(sm.now()) {
		if _, err := DeleteSessionByID(ctx, sessions, session.ID); err != nil {
			sm.logger.Warn("failed to evict expired session", "session_id", session.ID, "error", err)
		}
		return nil, nil, nil
	}

	user, err := FindUserByID(ctx, sm.repo.Users(), session.UserID)
	if err != nil {
		if IsRecordNotFound(err) {
			if _, err := DeleteSessionByID(ctx, sessions, session.ID); err != nil {
				sm.logger.Warn("failed to evict orphaned session", "session_id", session.ID, "error", err)
			}
			return nil, nil, nil
		}
		return nil, nil, internalError(err, "failed to load session owner")
	}

	return session, user.Public(), nil
}

// Revoke deletes the session. Revoking an unknown session is not an error.
func (sm *SessionManager) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := DeleteSessionByID(ctx, sm.repo.Sessions(), sessionID); err != nil {
		return internalError(err, "failed to revoke session")
	}
	return nil
}

// RevokeAll deletes every session of userID and returns how many rows went
func (sm *SessionManager) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := DeleteSessionsByUserID(ctx, sm.repo.Sessions(), userID)
	if err != nil {
		return 0, internalError(err, "failed to revoke sessions")
	}
	return n, nil
}

// ListActive returns the unexpired sessions of userID
func (sm *SessionManager) ListActive(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	all, err := FindSessionsByUserID(ctx, sm.repo.Sessions(), userID)
	if err != nil {
		return nil, internalError(err, "failed to list sessions")
	}

	now := sm.now()
	active := make([]*Session, 0, len(all))
	for _, s := range all {
		if !s.IsExpired(now) {
			active = append(active, s)
		}
	}
	return active, nil
}

// SweepExpired bulk deletes expired sessions
func (sm *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := DeleteExpiredSessions(ctx, sm.repo.Sessions(), sm.now())
	if err != nil {
		return 0, internalError(err, "failed to sweep expired sessions")
	}
	return n, nil
}
