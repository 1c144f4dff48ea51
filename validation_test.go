package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-syr-auth"
)

func TestRegisterInputValidate(t *testing.T) {
	valid := auth.RegisterInput{Username: "alice_01", Password: "Passw0rdOK", DisplayName: "Alice"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		input auth.RegisterInput
		field string
	}{
		{"short username", auth.RegisterInput{Username: "al", Password: "Passw0rdOK", DisplayName: "A"}, "username"},
		{"long username", auth.RegisterInput{Username: strings.Repeat("a", 31), Password: "Passw0rdOK", DisplayName: "A"}, "username"},
		{"username charset", auth.RegisterInput{Username: "al ice", Password: "Passw0rdOK", DisplayName: "A"}, "username"},
		{"short password", auth.RegisterInput{Username: "alice", Password: "Pa0", DisplayName: "A"}, "password"},
		{"long password", auth.RegisterInput{Username: "alice", Password: "Pa0" + strings.Repeat("x", 126), DisplayName: "A"}, "password"},
		{"no digit", auth.RegisterInput{Username: "alice", Password: "PasswordOK", DisplayName: "A"}, "password"},
		{"no upper", auth.RegisterInput{Username: "alice", Password: "passw0rdok", DisplayName: "A"}, "password"},
		{"no lower", auth.RegisterInput{Username: "alice", Password: "PASSW0RDOK", DisplayName: "A"}, "password"},
		{"missing display name", auth.RegisterInput{Username: "alice", Password: "Passw0rdOK"}, "display_name"},
		{"long display name", auth.RegisterInput{Username: "alice", Password: "Passw0rdOK", DisplayName: strings.Repeat("é", 101)}, "display_name"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.Validate()
			assert.Equal(t, auth.KindValidation, auth.KindOf(err))
			assert.Contains(t, auth.ValidationFields(err), tc.field)
			assert.Len(t, auth.ValidationFields(err), 1)
		})
	}
}

func TestDisplayNameCountsRunes(t *testing.T) {
	input := auth.RegisterInput{Username: "alice", Password: "Passw0rdOK", DisplayName: strings.Repeat("é", 100)}
	assert.NoError(t, input.Validate())
}

func TestProfileInputValidate(t *testing.T) {
	assert.NoError(t, auth.ProfileInput{DisplayName: "Alice", AvatarURL: "https://cdn.example/a.png"}.Validate())

	err := auth.ProfileInput{DisplayName: "Alice", Bio: strings.Repeat("b", 501)}.Validate()
	assert.Contains(t, auth.ValidationFields(err), "bio")

	err = auth.ProfileInput{DisplayName: "Alice", BannerURL: "not a url"}.Validate()
	assert.Contains(t, auth.ValidationFields(err), "banner_url")
}

func TestProfilePatch(t *testing.T) {
	assert.True(t, auth.ProfilePatch{}.IsEmpty())

	name := " Alice "
	patch := auth.ProfilePatch{DisplayName: &name, Metadata: map[string]any{"k": "v"}}
	assert.False(t, patch.IsEmpty())
	assert.NoError(t, patch.Validate())
	assert.Equal(t, map[string]any{
		"display_name": "Alice",
		"metadata":     map[string]any{"k": "v"},
	}, patch.Columns())

	blank := "   "
	assert.Contains(t, auth.ValidationFields(auth.ProfilePatch{DisplayName: &blank}.Validate()), "display_name")

	bio := strings.Repeat("b", 501)
	assert.Contains(t, auth.ValidationFields(auth.ProfilePatch{Bio: &bio}.Validate()), "bio")
}

func TestLoginInputOnlyChecksPresence(t *testing.T) {
	assert.NoError(t, auth.LoginInput{Username: "a", Password: "x"}.Validate())
	assert.NoError(t, auth.LoginInput{Username: strings.Repeat("a", 31), Password: "x"}.Validate())

	fields := auth.ValidationFields(auth.LoginInput{}.Validate())
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}
