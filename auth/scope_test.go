package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/docguardhq/docguard/acl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_memoizesPrincipals(t *testing.T) {
	// Empty claims synthesize a fresh id per resolution, so repeated calls
	// returning the same value proves resolution ran exactly once.
	scope := NewScope(&State{Status: StatusAuthenticated})

	first, err := scope.Principals()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := scope.Principals()
			assert.NoError(t, err)
			assert.Equal(t, first, p)
		}()
	}
	wg.Wait()
}

func TestScope_contextHelpers(t *testing.T) {
	ctx := context.Background()

	p, err := Principals(ctx)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty(), "no scope should behave like no auth context")
	assert.False(t, IsWorkspaceAdmin(ctx))
	assert.False(t, IsConnectionAdmin(ctx))

	scope := NewScope(
		&State{Status: StatusAuthenticated, UserName: "alice"},
		AsWorkspaceAdmin(),
	)
	ctx = WithScope(ctx, scope)

	p, err = Principals(ctx)
	require.NoError(t, err)
	assert.Equal(t, acl.Principals{Users: []string{"alice"}}, p)
	assert.True(t, IsWorkspaceAdmin(ctx))
	assert.False(t, IsConnectionAdmin(ctx), "admin flags must stay independent")
}

func TestScope_adminFlagsIndependent(t *testing.T) {
	scope := NewScope(&State{Status: StatusAuthenticated, UserName: "ops"}, AsConnectionAdmin())
	assert.False(t, scope.WorkspaceAdmin())
	assert.True(t, scope.ConnectionAdmin())
}
