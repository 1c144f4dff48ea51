package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-syr-auth"
)

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, auth.RoleAdmin.IsAtLeast(auth.RoleUser))
	assert.True(t, auth.RoleUser.IsAtLeast(auth.RoleUser))
	assert.False(t, auth.RoleUser.IsAtLeast(auth.RoleAdmin))
	assert.False(t, auth.Role("GUEST").IsAtLeast(auth.RoleUser))
	assert.False(t, auth.RoleAdmin.IsAtLeast(auth.Role("ROOT")))
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole(" admin ")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, role)

	_, ok = auth.ParseRole("owner")
	assert.False(t, ok)

	assert.Equal(t, []auth.Role{auth.RoleUser, auth.RoleAdmin}, auth.GetAllRoles())
}

func TestPrincipalIsAdmin(t *testing.T) {
	var nilPrincipal *auth.Principal
	assert.False(t, nilPrincipal.IsAdmin())
	assert.False(t, (&auth.Principal{Role: auth.RoleUser}).IsAdmin())
	assert.True(t, (&auth.Principal{Role: auth.RoleAdmin}).IsAdmin())
}
