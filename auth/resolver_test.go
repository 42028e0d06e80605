package auth

import (
	"strings"
	"testing"

	"github.com/docguardhq/docguard/acl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrincipals_noAuthContext(t *testing.T) {
	p, err := ResolvePrincipals(nil)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty(), "missing auth context should grant nothing")
}

func TestResolvePrincipals_unknownStatus(t *testing.T) {
	p, err := ResolvePrincipals(&State{Status: StatusUnknown})
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
}

func TestResolvePrincipals_claims(t *testing.T) {
	tests := []struct {
		name  string
		state *State
		want  acl.Principals
	}{
		{
			name:  "UserOnly",
			state: &State{Status: StatusAuthenticated, UserName: "alice"},
			want:  acl.Principals{Users: []string{"alice"}},
		},
		{
			name:  "RolesOnly",
			state: &State{Status: StatusAuthenticated, BackendRoles: []string{"admins", "editors"}},
			want:  acl.Principals{Groups: []string{"admins", "editors"}},
		},
		{
			name: "UserAndRoles",
			state: &State{
				Status:       StatusAuthenticated,
				UserName:     "alice",
				BackendRoles: []string{"admins"},
			},
			want: acl.Principals{Users: []string{"alice"}, Groups: []string{"admins"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ResolvePrincipals(tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestResolvePrincipals_emptyClaims(t *testing.T) {
	p1, err := ResolvePrincipals(&State{Status: StatusAuthenticated})
	require.NoError(t, err)
	p2, err := ResolvePrincipals(&State{Status: StatusAuthenticated})
	require.NoError(t, err)

	require.Len(t, p1.Users, 1, "empty claims should synthesize a user id")
	assert.True(t, strings.HasPrefix(p1.Users[0], "_nobody_"))
	assert.NotEqual(t, p1.Users[0], p2.Users[0], "synthetic ids must be unique")

	// The synthetic user can never satisfy a real grant.
	a := acl.New(acl.Raw{"read": {Users: []string{"alice"}, Groups: []string{"everyone"}}})
	assert.False(t, a.HasPermission(acl.AllModes, p1))
}

func TestResolvePrincipals_unauthenticated(t *testing.T) {
	_, err := ResolvePrincipals(&State{Status: StatusUnauthenticated})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolvePrincipals_garbageStatus(t *testing.T) {
	_, err := ResolvePrincipals(&State{Status: Status("wat")})
	assert.ErrorIs(t, err, ErrUnknownAuthStatus)
}
