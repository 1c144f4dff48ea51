package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the profile repository
type Profiles interface {
	repository.Repository[*Profile]
	records[*Profile]

	// InTx returns the repository bound to tx
	InTx(tx bun.IDB) Profiles
}

type profiles struct {
	entityRepo[*Profile]
}

var _ Profiles = profiles{}

// NewProfilesRepository creates the bun profiles repository
func NewProfilesRepository(db *bun.DB) Profiles {
	return profiles{newEntityRepo[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})}
}

func (p profiles) InTx(tx bun.IDB) Profiles {
	return profiles{p.bind(tx)}
}

// FindProfileByUserID returns the profile owned by userID
func FindProfileByUserID(ctx context.Context, profiles Profiles, userID uuid.UUID) (*Profile, error) {
	return profiles.findOne(ctx, WhereEq("user_id", userID))
}

// CreateProfile inserts profile. A second profile for the same user
// surfaces as *ConflictError.
func CreateProfile(ctx context.Context, profiles Profiles, profile *Profile, now time.Time) (*Profile, error) {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}
	return profiles.insert(ctx, profile)
}

// MergeProfile applies patch to the profile with id
func MergeProfile(ctx context.Context, profiles Profiles, id uuid.UUID, patch map[string]any) (*Profile, error) {
	return profiles.merge(ctx, id, patch)
}

// MergeProfileByUserID applies patch to the profile owned by userID
func MergeProfileByUserID(ctx context.Context, profiles Profiles, userID uuid.UUID, patch map[string]any) (*Profile, error) {
	profile, err := FindProfileByUserID(ctx, profiles, userID)
	if err != nil {
		return nil, err
	}
	return profiles.merge(ctx, profile.ID, patch)
}
