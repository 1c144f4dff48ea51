package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-syr-auth"
)

func TestRepositoryManagerValidate(t *testing.T) {
	_, repo := openStore(t)
	assert.NoError(t, repo.Validate())
	assert.NotPanics(t, repo.MustValidate)
}

func TestUserLookups(t *testing.T) {
	_, repo := openStore(t)
	ctx := context.Background()
	now := newClock().Now()

	created, err := auth.CreateUser(ctx, repo.Users(), &auth.User{Username: " alice ", PasswordHash: "hash"}, now)
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, auth.RoleUser, created.Role)
	assert.Equal(t, now, created.UpdatedAt)

	byName, err := auth.FindUserByUsername(ctx, repo.Users(), "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byID, err := auth.FindUserByID(ctx, repo.Users(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)
	assert.Empty(t, byID.Public().PasswordHash)

	exists, err := auth.UsernameExists(ctx, repo.Users(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = auth.FindUserByUsername(ctx, repo.Users(), "nobody")
	assert.True(t, auth.IsRecordNotFound(err))
}

func TestUpdateUserRole(t *testing.T) {
	_, repo := openStore(t)
	ctx := context.Background()
	now := newClock().Now()

	user, err := auth.CreateUser(ctx, repo.Users(), &auth.User{Username: "carol", PasswordHash: "hash"}, now)
	require.NoError(t, err)

	updated, err := auth.UpdateUserRole(ctx, repo.Users(), user.ID, auth.RoleAdmin, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, updated.Role)

	_, err = auth.UpdateUserRole(ctx, repo.Users(), user.ID, auth.Role("ROOT"), now)
	assert.Equal(t, auth.KindValidation, auth.KindOf(err))
}

func TestRunInTxRollsBack(t *testing.T) {
	_, repo := openStore(t)
	ctx := context.Background()
	now := newClock().Now()

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := auth.CreateUser(ctx, repo.Users().InTx(tx), &auth.User{Username: "dave", PasswordHash: "x"}, now); err != nil {
			return err
		}
		_, err := auth.CreateUser(ctx, repo.Users().InTx(tx), &auth.User{Username: "dave", PasswordHash: "y"}, now)
		return err
	})
	require.Error(t, err)

	exists, err := auth.UsernameExists(ctx, repo.Users(), "dave")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProfileMetadataRoundTrip(t *testing.T) {
	_, repo := openStore(t)
	ctx := context.Background()
	now := newClock().Now()

	user, err := auth.CreateUser(ctx, repo.Users(), &auth.User{Username: "erin", PasswordHash: "x"}, now)
	require.NoError(t, err)

	profile := (&auth.Profile{UserID: user.ID, DisplayName: "Erin"}).AddMetadata("theme", "dark")
	_, err = auth.CreateProfile(ctx, repo.Profiles(), profile, now)
	require.NoError(t, err)

	merged, err := auth.MergeProfileByUserID(ctx, repo.Profiles(), user.ID, map[string]any{"bio": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", merged.Bio)
	assert.Equal(t, "dark", merged.Metadata["theme"])
}
