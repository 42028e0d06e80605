// Package storagetests provides common acceptance tests for storage.Client
// implementations.
package storagetests

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/docguardhq/docguard/acl"
	"github.com/docguardhq/docguard/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(typ, id string) *storage.Document {
	return &storage.Document{
		ID:         id,
		Type:       typ,
		Attributes: json.RawMessage(`{"title":"` + id + `"}`),
	}
}

// Run exercises the full Client contract against a fresh store per subtest.
func Run(t *testing.T, newClient func() storage.Client) {
	ctx := context.Background()

	t.Run("TestCreateGetRoundTrip", func(t *testing.T) {
		c := newClient()
		created, err := c.Create(ctx, &storage.Document{
			ID:          "d1",
			Type:        "dashboard",
			Attributes:  json.RawMessage(`{"title":"revenue"}`),
			Permissions: acl.Raw{"read": {Users: []string{"alice"}}},
		}, storage.CreateOptions{Workspaces: []string{"w1", "w2"}})
		require.NoError(t, err)
		assert.False(t, created.UpdatedAt.IsZero())

		got, err := c.Get(ctx, "dashboard", "d1")
		require.NoError(t, err)
		assert.Equal(t, "d1", got.ID)
		assert.Equal(t, "dashboard", got.Type)
		assert.JSONEq(t, `{"title":"revenue"}`, string(got.Attributes))
		assert.Equal(t, []string{"w1", "w2"}, got.Workspaces)
		assert.Equal(t, acl.Raw{"read": {Users: []string{"alice"}}}, got.Permissions)
	})

	t.Run("TestGetNotFound", func(t *testing.T) {
		c := newClient()
		_, err := c.Get(ctx, "dashboard", "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("TestCreateConflict", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{})
		require.NoError(t, err)

		_, err = c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		_, err = c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{Overwrite: true})
		assert.NoError(t, err)
	})

	t.Run("TestCreateInvalid", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, &storage.Document{Type: "dashboard"}, storage.CreateOptions{})
		assert.ErrorIs(t, err, storage.ErrInvalidDocument)
	})

	t.Run("TestWorkspaceScopedVsGlobal", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("config", "global"), storage.CreateOptions{})
		require.NoError(t, err)
		_, err = c.Create(ctx, &storage.Document{
			ID: "orphan", Type: "dashboard", Workspaces: []string{},
		}, storage.CreateOptions{})
		require.NoError(t, err)

		global, err := c.Get(ctx, "config", "global")
		require.NoError(t, err)
		assert.Nil(t, global.Workspaces, "global docs should stay unscoped")

		orphan, err := c.Get(ctx, "dashboard", "orphan")
		require.NoError(t, err)
		require.NotNil(t, orphan.Workspaces, "scoped docs should keep an empty membership list")
		assert.Empty(t, orphan.Workspaces)
	})

	t.Run("TestBulkGetPerItem", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{})
		require.NoError(t, err)

		resp, err := c.BulkGet(ctx, []storage.DocumentRef{
			{Type: "dashboard", ID: "d1"},
			{Type: "dashboard", ID: "missing"},
		})
		require.NoError(t, err, "bulkGet itself should not fail on missing items")
		require.Len(t, resp.Documents, 2)
		assert.NoError(t, resp.Documents[0].Err)
		assert.ErrorIs(t, resp.Documents[1].Err, storage.ErrNotFound)
		assert.Equal(t, "missing", resp.Documents[1].ID)
	})

	t.Run("TestUpdate", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{Workspaces: []string{"w1"}})
		require.NoError(t, err)

		updated, err := c.Update(ctx, "dashboard", "d1", json.RawMessage(`{"title":"renamed"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"renamed"}`, string(updated.Attributes))
		assert.Equal(t, []string{"w1"}, updated.Workspaces, "update should not touch memberships")

		_, err = c.Update(ctx, "dashboard", "missing", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("TestBulkUpdatePerItem", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{})
		require.NoError(t, err)

		resp, err := c.BulkUpdate(ctx, []*storage.Document{
			{ID: "d1", Type: "dashboard", Attributes: json.RawMessage(`{"title":"one"}`)},
			{ID: "missing", Type: "dashboard", Attributes: json.RawMessage(`{}`)},
		})
		require.NoError(t, err)
		require.Len(t, resp.Documents, 2)
		assert.NoError(t, resp.Documents[0].Err)
		assert.JSONEq(t, `{"title":"one"}`, string(resp.Documents[0].Attributes))
		assert.ErrorIs(t, resp.Documents[1].Err, storage.ErrNotFound)
	})

	t.Run("TestDelete", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{})
		require.NoError(t, err)

		require.NoError(t, c.Delete(ctx, "dashboard", "d1"))
		_, err = c.Get(ctx, "dashboard", "d1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, c.Delete(ctx, "dashboard", "d1"), storage.ErrNotFound)
	})

	t.Run("TestAddToWorkspaces", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("dashboard", "d1"), storage.CreateOptions{Workspaces: []string{"w1"}})
		require.NoError(t, err)

		updated, err := c.AddToWorkspaces(ctx, "dashboard", "d1", []string{"w1", "w2"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"w1", "w2"}, updated.Workspaces)

		_, err = c.AddToWorkspaces(ctx, "dashboard", "missing", []string{"w1"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("TestDeleteByWorkspace", func(t *testing.T) {
		c := newClient()
		_, err := c.Create(ctx, doc("dashboard", "solo"), storage.CreateOptions{Workspaces: []string{"w1"}})
		require.NoError(t, err)
		_, err = c.Create(ctx, doc("dashboard", "shared"), storage.CreateOptions{Workspaces: []string{"w1", "w2"}})
		require.NoError(t, err)
		_, err = c.Create(ctx, doc("dashboard", "other"), storage.CreateOptions{Workspaces: []string{"w2"}})
		require.NoError(t, err)

		require.NoError(t, c.DeleteByWorkspace(ctx, "w1"))

		_, err = c.Get(ctx, "dashboard", "solo")
		assert.ErrorIs(t, err, storage.ErrNotFound, "sole-workspace docs are removed")

		shared, err := c.Get(ctx, "dashboard", "shared")
		require.NoError(t, err)
		assert.Equal(t, []string{"w2"}, shared.Workspaces, "shared docs lose only the membership")

		other, err := c.Get(ctx, "dashboard", "other")
		require.NoError(t, err)
		assert.Equal(t, []string{"w2"}, other.Workspaces)
	})

	t.Run("TestFindTypesAndWorkspaces", func(t *testing.T) {
		c := newClient()
		seedFindFixtures(t, c)

		resp, err := c.Find(ctx, storage.Query{Types: []string{"dashboard"}})
		require.NoError(t, err)
		assert.Len(t, resp.Documents, 3)

		resp, err = c.Find(ctx, storage.Query{
			Types:      []string{"dashboard"},
			Workspaces: []string{"w1"},
		})
		require.NoError(t, err)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, "in-w1", resp.Documents[0].ID)
	})

	t.Run("TestFindACLPredicate", func(t *testing.T) {
		c := newClient()
		seedFindFixtures(t, c)

		resp, err := c.Find(ctx, storage.Query{
			Types: []string{"dashboard"},
			ACLSearchParams: &storage.ACLSearchParams{
				Principals:      acl.Principals{Users: []string{"alice"}},
				PermissionModes: []acl.Mode{acl.Read},
			},
		})
		require.NoError(t, err)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, "acl-alice", resp.Documents[0].ID)

		// Docs without an ACL never match the predicate.
		resp, err = c.Find(ctx, storage.Query{
			Types: []string{"dashboard"},
			ACLSearchParams: &storage.ACLSearchParams{
				Principals:      acl.Principals{Users: []string{"nobody"}},
				PermissionModes: []acl.Mode{acl.Read},
			},
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Documents)
	})

	t.Run("TestFindWorkspaceOrACL", func(t *testing.T) {
		c := newClient()
		seedFindFixtures(t, c)

		resp, err := c.Find(ctx, storage.Query{
			Types:             []string{"dashboard"},
			Workspaces:        []string{"w1"},
			WorkspaceOperator: storage.OperatorOR,
			ACLSearchParams: &storage.ACLSearchParams{
				Principals:      acl.Principals{Users: []string{"alice"}},
				PermissionModes: []acl.Mode{acl.Read},
			},
		})
		require.NoError(t, err)
		require.Len(t, resp.Documents, 2)
		assert.Equal(t, "acl-alice", resp.Documents[0].ID)
		assert.Equal(t, "in-w1", resp.Documents[1].ID)
	})

	t.Run("TestFindSearchAndPagination", func(t *testing.T) {
		c := newClient()
		seedFindFixtures(t, c)

		resp, err := c.Find(ctx, storage.Query{Search: "in-w1"})
		require.NoError(t, err)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, "in-w1", resp.Documents[0].ID)

		resp, err = c.Find(ctx, storage.Query{
			Types: []string{"dashboard"}, Page: 2, PerPage: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Total)
		assert.Len(t, resp.Documents, 1)
	})
}

func seedFindFixtures(t *testing.T, c storage.Client) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Create(ctx, doc("dashboard", "in-w1"), storage.CreateOptions{Workspaces: []string{"w1"}})
	require.NoError(t, err)
	_, err = c.Create(ctx, doc("dashboard", "in-w2"), storage.CreateOptions{Workspaces: []string{"w2"}})
	require.NoError(t, err)
	_, err = c.Create(ctx, &storage.Document{
		ID:          "acl-alice",
		Type:        "dashboard",
		Attributes:  json.RawMessage(`{"title":"private"}`),
		Permissions: acl.Raw{"read": {Users: []string{"alice"}}},
	}, storage.CreateOptions{})
	require.NoError(t, err)
	_, err = c.Create(ctx, doc("visualization", "viz"), storage.CreateOptions{Workspaces: []string{"w1"}})
	require.NoError(t, err)
}
