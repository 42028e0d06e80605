// Package permission implements the authorization service the workspace
// wrapper delegates to: single and batch ACL validation against stored
// documents, a reverse lookup of the workspaces a principal may access, and a
// flattened view of the principals permitted on a document.
//
// Expected denial is data, not an error: Validate and BatchValidate return
// (false, nil) when the caller lacks permission, reserving the error return
// for storage failures and hard authentication errors. All lookups are
// fail-closed — a storage error during PermittedWorkspaceIDs yields an empty
// list, never an open one.
package permission

import (
	"context"
	"fmt"
	"strings"

	"github.com/docguardhq/docguard/acl"
	"github.com/docguardhq/docguard/auth"
	"github.com/docguardhq/docguard/logging"
	"github.com/docguardhq/docguard/storage"
)

// Controller evaluates document ACLs for the authorization wrapper and for
// permission-introspection APIs. It holds a factory for unwrapped storage
// clients so its own fetches never recurse through the wrapper.
//
// A Controller with no factory bound behaves as if every document were
// missing.
type Controller struct {
	factory storage.ClientFactory
	logger  logging.Logger
}

// NewController returns a controller logging audit detail to the given
// logger. Bind a storage factory with Setup before use.
func NewController(logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Controller{logger: logger}
}

// Setup binds the storage-client factory. Called once during wiring.
func (c *Controller) Setup(factory storage.ClientFactory) {
	c.factory = factory
}

func (c *Controller) client(ctx context.Context) storage.Client {
	if c.factory == nil {
		return nil
	}
	return c.factory(ctx)
}

// Validate checks a single document against the requested modes. It is
// BatchValidate with a one-element list.
func (c *Controller) Validate(ctx context.Context, ref storage.DocumentRef, modes []acl.Mode) (bool, error) {
	return c.BatchValidate(ctx, []storage.DocumentRef{ref}, modes)
}

// BatchValidate fetches the referenced documents and reports whether every
// fetched document carrying an ACL grants one of the requested modes to the
// request's principals. Documents without an ACL are satisfied automatically;
// their workspace-level check happens in the wrapper, one layer up.
//
// If none of the references resolve, the result is a not-found error. If
// exactly one document was requested and its fetch errored, that error is
// propagated. A denial emits a single debug audit line for the whole batch.
func (c *Controller) BatchValidate(ctx context.Context, refs []storage.DocumentRef, modes []acl.Mode) (bool, error) {
	client := c.client(ctx)
	if client == nil {
		return false, storage.ErrNotFound
	}

	resp, err := client.BulkGet(ctx, refs)
	if err != nil {
		return false, err
	}
	if len(refs) == 1 && len(resp.Documents) == 1 && resp.Documents[0].Err != nil {
		return false, resp.Documents[0].Err
	}

	found := make([]*storage.Document, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		if doc.Err == nil {
			found = append(found, doc)
		}
	}
	if len(found) == 0 {
		return false, storage.ErrNotFound
	}

	principals, err := auth.Principals(ctx)
	if err != nil {
		return false, err
	}
	return c.ValidateObjectsACL(ctx, found, principals, modes), nil
}

// PrincipalsOfObjects fetches the referenced documents and returns each one's
// ACL flattened to a principal -> modes view, keyed by document id. Documents
// without an ACL map to an empty list.
func (c *Controller) PrincipalsOfObjects(ctx context.Context, refs []storage.DocumentRef) (map[string][]acl.FlatEntry, error) {
	client := c.client(ctx)
	if client == nil {
		return nil, storage.ErrNotFound
	}

	resp, err := client.BulkGet(ctx, refs)
	if err != nil {
		return nil, err
	}

	result := map[string][]acl.FlatEntry{}
	for _, doc := range resp.Documents {
		if doc.Err != nil {
			continue
		}
		result[doc.ID] = acl.New(doc.Permissions).FlatList()
	}
	return result, nil
}

// PermittedWorkspaceIDs returns the ids of every workspace whose ACL grants
// one of the requested modes to the request's principals, by pushing the
// predicate down into a single Find. Any failure yields an empty list.
func (c *Controller) PermittedWorkspaceIDs(ctx context.Context, modes []acl.Mode) []string {
	client := c.client(ctx)
	if client == nil {
		return nil
	}

	principals, err := auth.Principals(ctx)
	if err != nil {
		return nil
	}

	resp, err := client.Find(ctx, storage.Query{
		Types: []string{storage.TypeWorkspace},
		ACLSearchParams: &storage.ACLSearchParams{
			Principals:      principals,
			PermissionModes: modes,
		},
	})
	if err != nil {
		c.logger.Debugw("workspace lookup failed, treating as none permitted", "error", err)
		return nil
	}

	ids := make([]string, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		ids = append(ids, doc.ID)
	}
	return ids
}

// ValidateObjectsACL reports whether every given document that carries an ACL
// grants one of the requested modes to the principals. Documents without an
// ACL pass vacuously. On failure the offending subset is audited once.
func (c *Controller) ValidateObjectsACL(ctx context.Context, docs []*storage.Document, principals acl.Principals, modes []acl.Mode) bool {
	var failing []*storage.Document
	for _, doc := range docs {
		if doc.HasACL() && !acl.New(doc.Permissions).HasPermission(modes, principals) {
			failing = append(failing, doc)
		}
	}
	if len(failing) == 0 {
		return true
	}
	c.audit(ctx, failing, principals, modes)
	return false
}

// audit emits exactly one denial line per call. When the request carries an
// accumulator the line is added there for a coalesced end-of-request flush;
// otherwise it is logged directly at debug level. Denial detail never reaches
// response payloads.
func (c *Controller) audit(ctx context.Context, failing []*storage.Document, principals acl.Principals, modes []acl.Mode) {
	parts := make([]string, len(failing))
	for i, doc := range failing {
		parts[i] = fmt.Sprintf("%s/%s workspaces=%v permissions=%v", doc.Type, doc.ID, doc.Workspaces, doc.Permissions)
	}
	line := fmt.Sprintf(
		"modes=%v users=%v groups=%v documents=[%s]",
		modes, principals.Users, principals.Groups, strings.Join(parts, "; "),
	)

	if a := AuditorFromContext(ctx); a != nil {
		a.Add(line)
		return
	}
	c.logger.Debugw("authorization denied", "denials", []string{line})
}
