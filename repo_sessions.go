package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	deleteSessionByIDSQL      = `DELETE FROM "sessions" WHERE "id" = ? RETURNING *`
	deleteSessionsByUserIDSQL = `DELETE FROM "sessions" WHERE "user_id" = ? RETURNING *`
	deleteExpiredSessionsSQL  = `DELETE FROM "sessions" WHERE "expires_at" <= ? RETURNING *`
)

// Sessions is the session repository
type Sessions interface {
	repository.Repository[*Session]
	records[*Session]

	// InTx returns the repository bound to tx
	InTx(tx bun.IDB) Sessions
}

type sessions struct {
	entityRepo[*Session]
}

var _ Sessions = sessions{}

// NewSessionsRepository creates the bun sessions repository
func NewSessionsRepository(db *bun.DB) Sessions {
	return sessions{newEntityRepo[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(s *Session) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Session, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})}
}

func (s sessions) InTx(tx bun.IDB) Sessions {
	return sessions{s.bind(tx)}
}

// CreateSession inserts session
func CreateSession(ctx context.Context, sessions Sessions, session *Session) (*Session, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return sessions.insert(ctx, session)
}

// FindSessionByID returns the session with id
func FindSessionByID(ctx context.Context, sessions Sessions, id uuid.UUID) (*Session, error) {
	return sessions.findOne(ctx, ByID(id))
}

// FindSessionByToken returns the session with the opaque token
func FindSessionByToken(ctx context.Context, sessions Sessions, token string) (*Session, error) {
	return sessions.findOne(ctx, WhereEq("token", token))
}

// FindSessionsByUserID lists every session row of userID, newest first
func FindSessionsByUserID(ctx context.Context, sessions Sessions, userID uuid.UUID) ([]*Session, error) {
	return sessions.findAll(ctx, WhereEq("user_id", userID), OrderBy("created_at DESC"))
}

// DeleteSessionByID removes one session
func DeleteSessionByID(ctx context.Context, sessions Sessions, id uuid.UUID) (int64, error) {
	return sessions.deleteReturning(ctx, deleteSessionByIDSQL, id)
}

// DeleteSessionsByUserID removes every session of userID
func DeleteSessionsByUserID(ctx context.Context, sessions Sessions, userID uuid.UUID) (int64, error) {
	return sessions.deleteReturning(ctx, deleteSessionsByUserIDSQL, userID)
}

// DeleteExpiredSessions removes every session whose expiry is not after now
func DeleteExpiredSessions(ctx context.Context, sessions Sessions, now time.Time) (int64, error) {
	return sessions.deleteReturning(ctx, deleteExpiredSessionsSQL, now)
}
