package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-syr-auth"
)

func TestRegisterUserHandler(t *testing.T) {
	f := newFixture(t)

	var got *auth.AuthResult
	handler := &auth.RegisterUserHandler{
		Provisioner: f.prov,
		OnResult:    func(r *auth.AuthResult) { got = r },
	}

	msg := auth.RegisterUserMessage{Username: "alice", Password: "Passw0rdOK", DisplayName: "Alice"}
	assert.Equal(t, "user.register", msg.Type())

	require.NoError(t, handler.Execute(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.User.Username)

	err := handler.Execute(context.Background(), msg)
	assert.Equal(t, auth.KindAlreadyExists, auth.KindOf(err))
}

func TestRegisterUserHandlerCancelled(t *testing.T) {
	f := newFixture(t)
	handler := &auth.RegisterUserHandler{Provisioner: f.prov}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, auth.RegisterUserMessage{Username: "alice", Password: "Passw0rdOK", DisplayName: "Alice"})
	require.Error(t, err)

	exists, err := auth.UsernameExists(context.Background(), f.repo.Users(), "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateProfileHandler(t *testing.T) {
	f := newFixture(t)
	result := f.register(t, "alice")

	var got *auth.Profile
	handler := &auth.UpdateProfileHandler{
		Provisioner: f.prov,
		OnResult:    func(p *auth.Profile) { got = p },
	}

	bio := "hello"
	msg := auth.UpdateProfileMessage{UserID: result.User.ID, Patch: auth.ProfilePatch{Bio: &bio}}
	assert.Equal(t, "profile.update", msg.Type())

	require.NoError(t, handler.Execute(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Bio)

	err := handler.Execute(context.Background(), auth.UpdateProfileMessage{Patch: auth.ProfilePatch{Bio: &bio}})
	assert.Equal(t, auth.KindValidation, auth.KindOf(err))

	err = handler.Execute(context.Background(), auth.UpdateProfileMessage{UserID: uuid.New(), Patch: auth.ProfilePatch{Bio: &bio}})
	assert.Equal(t, auth.KindNotFound, auth.KindOf(err))
}
