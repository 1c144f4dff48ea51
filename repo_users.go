package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user repository
type Users interface {
	repository.Repository[*User]
	records[*User]

	// InTx returns the repository bound to tx
	InTx(tx bun.IDB) Users
}

type users struct {
	entityRepo[*User]
}

var (
	_ Users                        = users{}
	_ repository.Repository[*User] = users{}
)

// NewUsersRepository creates the bun users repository
func NewUsersRepository(db *bun.DB) Users {
	return users{newEntityRepo[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})}
}

func (u users) InTx(tx bun.IDB) Users {
	return users{u.bind(tx)}
}

// FindUserByID returns the user with id
func FindUserByID(ctx context.Context, users Users, id uuid.UUID) (*User, error) {
	return users.findOne(ctx, ByID(id))
}

// FindUserByUsername returns the user with username
func FindUserByUsername(ctx context.Context, users Users, username string) (*User, error) {
	return users.findOne(ctx, WhereEq("username", strings.TrimSpace(username)))
}

// UsernameExists reports whether username is taken
func UsernameExists(ctx context.Context, users Users, username string) (bool, error) {
	return users.exists(ctx, WhereEq("username", strings.TrimSpace(username)))
}

// UserExists reports whether a user with id exists
func UserExists(ctx context.Context, users Users, id uuid.UUID) (bool, error) {
	return users.exists(ctx, ByID(id))
}

// CreateUser inserts user, filling defaults. A taken username surfaces as
// *ConflictError.
func CreateUser(ctx context.Context, users Users, user *User, now time.Time) (*User, error) {
	prepareUserDefaults(user, now)
	return users.insert(ctx, user)
}

// UpdateUserRole changes the role of the user with id
func UpdateUserRole(ctx context.Context, users Users, id uuid.UUID, role Role, now time.Time) (*User, error) {
	if !role.IsValid() {
		return nil, NewValidationError(map[string]string{"role": "unknown role"})
	}
	return users.merge(ctx, id, map[string]any{
		"role":       string(role),
		"updated_at": now,
	})
}

func prepareUserDefaults(user *User, now time.Time) {
	if user == nil {
		return
	}
	user.Username = strings.TrimSpace(user.Username)
	if user.Role == "" {
		user.Role = RoleUser
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
}
