package docguard

import (
	"context"
	"sync"
	"testing"

	"github.com/docguardhq/docguard/acl"
	"github.com/docguardhq/docguard/auth"
	"github.com/docguardhq/docguard/logging"
	"github.com/docguardhq/docguard/storage"
	"github.com/docguardhq/docguard/storage/memstore"
	"github.com/docguardhq/docguard/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, opts ...Option) *Guard {
	t.Helper()

	store := memstore.New()
	seed := []*storage.Document{
		{
			ID:          "w1",
			Type:        storage.TypeWorkspace,
			Permissions: acl.Raw{"library_read": {Users: []string{"reader"}}},
		},
		{ID: "d1", Type: "dashboard", Workspaces: []string{"w1"}},
		{ID: "d2", Type: "dashboard", Workspaces: []string{"w2"}},
	}
	for _, doc := range seed {
		_, err := store.Create(context.Background(), doc, storage.CreateOptions{})
		require.NoError(t, err)
	}

	opts = append([]Option{
		WithStore(store),
		WithLogger(logging.NewNopLogger()),
	}, opts...)
	return New(opts...)
}

func TestGuard_enforcesThroughClient(t *testing.T) {
	guard := newTestGuard(t)

	ctx, done := guard.Attach(context.Background(), &auth.State{
		Status:   auth.StatusAuthenticated,
		UserName: "reader",
	})
	defer done()

	doc, err := guard.Client().Get(ctx, "dashboard", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)

	_, err = guard.Client().Get(ctx, "dashboard", "d2")
	assert.ErrorIs(t, err, workspace.ErrForbidden)
}

func TestGuard_adminFromConfiguredLists(t *testing.T) {
	guard := newTestGuard(t,
		WithAdminUsers("root"),
		WithAdminGroups("operators"),
		WithConnectionAdminGroups("connection-managers"),
	)

	ctx, done := guard.Attach(context.Background(), &auth.State{
		Status:   auth.StatusAuthenticated,
		UserName: "root",
	})
	defer done()
	assert.True(t, auth.IsWorkspaceAdmin(ctx))
	assert.False(t, auth.IsConnectionAdmin(ctx), "the two admin lists stay independent")

	ctx, done = guard.Attach(context.Background(), &auth.State{
		Status:       auth.StatusAuthenticated,
		UserName:     "carol",
		BackendRoles: []string{"connection-managers"},
	})
	defer done()
	assert.False(t, auth.IsWorkspaceAdmin(ctx))
	assert.True(t, auth.IsConnectionAdmin(ctx))

	// Role membership only counts for authenticated requests.
	ctx, done = guard.Attach(context.Background(), &auth.State{
		Status:       auth.StatusUnknown,
		BackendRoles: []string{"operators"},
	})
	defer done()
	assert.False(t, auth.IsWorkspaceAdmin(ctx))
}

func TestGuard_attachFlushesAuditOnce(t *testing.T) {
	logger, logs := logging.NewTestLogger()
	guard := newTestGuard(t, WithLogger(logger))

	ctx, done := guard.Attach(context.Background(), &auth.State{
		Status:   auth.StatusAuthenticated,
		UserName: "stranger",
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := guard.Client().Get(ctx, "dashboard", "d2")
			assert.ErrorIs(t, err, workspace.ErrForbidden)
		}()
	}
	wg.Wait()
	assert.Zero(t, logs.FilterMessage("authorization denied").Len())

	done()
	assert.Equal(t, 1, logs.FilterMessage("authorization denied").Len())
}

func TestGuard_exemptTypes(t *testing.T) {
	guard := newTestGuard(t, WithExemptTypes("config"))

	_, err := guard.Store().Create(context.Background(), &storage.Document{
		ID: "settings", Type: "config",
	}, storage.CreateOptions{})
	require.NoError(t, err)

	ctx, done := guard.Attach(context.Background(), &auth.State{
		Status:   auth.StatusAuthenticated,
		UserName: "stranger",
	})
	defer done()

	resp, err := guard.Client().Find(ctx, storage.Query{Types: []string{"config"}})
	require.NoError(t, err)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "settings", resp.Documents[0].ID)
}
