// Package workspace provides the authorization decorator over the document
// store. AuthorizedClient implements the full storage.Client surface; every
// call derives the workspaces and ACL owning its target documents, consults
// the permission controller, and either forwards the call, rejects it, or
// rewrites it (Find) to a permission-scoped query.
//
// The combination rule for a protected document: the caller needs EITHER the
// operation's workspace-level modes on the document's workspaces (any-of for
// reads, all-of for writes) OR the operation's object-level modes under the
// document's own ACL. A document with neither workspaces nor an ACL is a
// global object and passes untouched; a document with an empty workspace list
// and no ACL is orphaned and never accessible to non-admins.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docguardhq/docguard/acl"
	"github.com/docguardhq/docguard/auth"
	"github.com/docguardhq/docguard/errors"
	"github.com/docguardhq/docguard/logging"
	"github.com/docguardhq/docguard/permission"
	"github.com/docguardhq/docguard/storage"

	"google.golang.org/grpc/codes"
)

var (
	// Returned when the caller resolved but lacks the required permission.
	// Carries no detail about which modes or principals were involved; that
	// is logged server side only.
	ErrForbidden = errors.NewC("forbidden", codes.PermissionDenied).
			WithPublicMessage("You do not have permission to access this resource.")

	// Returned when an explicit workspace filter has no permitted
	// intersection. Distinct from ErrForbidden: the caller asked for
	// workspaces whose existence it cannot see.
	ErrNotAuthorized = errors.NewC("not authorized", codes.Unauthenticated).
				WithPublicMessage("Not authorized to access the requested workspaces.")
)

// The mode set each operation requests. Mode hierarchy (management implies
// write implies read) lives entirely in these tables, not in ACL evaluation,
// so it stays auditable in one place rather than scattered across call sites.
var (
	workspaceReadModes  = []acl.Mode{acl.LibraryRead, acl.LibraryWrite, acl.Management}
	workspaceWriteModes = []acl.Mode{acl.LibraryWrite, acl.Management}
	objectReadModes     = []acl.Mode{acl.Read, acl.Write, acl.Management}
	objectWriteModes    = []acl.Mode{acl.Write, acl.Management}
	objectMoveModes     = []acl.Mode{acl.Write}
	findACLModes        = []acl.Mode{acl.Read, acl.Write}
)

// Control is the slice of the permission controller the wrapper consumes.
// *permission.Controller satisfies it.
type Control interface {
	ValidateObjectsACL(ctx context.Context, docs []*storage.Document, principals acl.Principals, modes []acl.Mode) bool
	PermittedWorkspaceIDs(ctx context.Context, modes []acl.Mode) []string
}

// AuthorizedClient decorates a storage.Client with per-operation
// authorization. It is a transparent decorator: wrapped and unwrapped clients
// are interchangeable for callers.
type AuthorizedClient struct {
	client  storage.Client
	control Control
	exempt  map[string]struct{}
}

var _ storage.Client = (*AuthorizedClient)(nil)

// Option configures an AuthorizedClient.
type Option func(*AuthorizedClient)

// WithExemptTypes marks document types with no workspace or ACL relevance.
// Find calls restricted to exempt types are forwarded unrewritten.
func WithExemptTypes(types ...string) Option {
	return func(c *AuthorizedClient) {
		for _, t := range types {
			c.exempt[t] = struct{}{}
		}
	}
}

// NewAuthorizedClient wraps a storage client with authorization checks backed
// by the given controller.
func NewAuthorizedClient(client storage.Client, control Control, opts ...Option) *AuthorizedClient {
	c := &AuthorizedClient{
		client:  client,
		control: control,
		exempt:  map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// checkout registers the call with the request's audit accumulator, if one is
// attached, so denial detail from parallel calls flushes once.
func checkout(ctx context.Context) func() {
	a := permission.AuditorFromContext(ctx)
	if a == nil {
		return func() {}
	}
	a.Checkout()
	return a.Checkin
}

// auditDeny records a workspace-level denial: into the request's accumulator
// when one is attached, otherwise straight to the context logger at debug.
func auditDeny(ctx context.Context, line string) {
	if a := permission.AuditorFromContext(ctx); a != nil {
		a.Add(line)
		return
	}
	logging.Debugw(ctx, "authorization denied", "denials", []string{line})
}

// guardType enforces the out-of-band management rule for distinguished types:
// mutating a workspace document requires the workspace-admin flag and
// mutating a connection document requires the connection-admin flag, in both
// cases regardless of any ACL the document carries and regardless of the
// other flag.
func guardType(ctx context.Context, typ string) error {
	switch typ {
	case storage.TypeWorkspace:
		if !auth.IsWorkspaceAdmin(ctx) {
			return ErrForbidden
		}
	case storage.TypeConnection:
		if !auth.IsConnectionAdmin(ctx) {
			return ErrForbidden
		}
	}
	return nil
}

// permittedSet resolves the workspaces the caller holds the given modes on,
// as a set. Resolved at most once per operation.
func (c *AuthorizedClient) permittedSet(ctx context.Context, modes []acl.Mode) map[string]struct{} {
	ids := c.control.PermittedWorkspaceIDs(ctx, modes)
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func workspacesPermitted(workspaces []string, permitted map[string]struct{}, all bool) bool {
	if len(workspaces) == 0 {
		return false
	}
	for _, ws := range workspaces {
		_, ok := permitted[ws]
		if ok && !all {
			return true
		}
		if !ok && all {
			return false
		}
	}
	return all
}

// canAccess applies the combination rule to a set of fetched documents: every
// document must be reachable via its workspaces under wsModes (any-of or
// all-of per the all flag) or via its own ACL under objModes. Returns
// (false, nil) for a denial; errors are reserved for principal-resolution
// failures.
func (c *AuthorizedClient) canAccess(ctx context.Context, docs []*storage.Document, wsModes, objModes []acl.Mode, all bool) (bool, error) {
	principals, err := auth.Principals(ctx)
	if err != nil {
		return false, err
	}

	var permitted map[string]struct{}
	var needACL []*storage.Document
	for _, doc := range docs {
		if doc.Workspaces == nil && !doc.HasACL() {
			continue // global object
		}
		if len(doc.Workspaces) > 0 {
			if permitted == nil {
				permitted = c.permittedSet(ctx, wsModes)
			}
			if workspacesPermitted(doc.Workspaces, permitted, all) {
				continue
			}
		}
		if doc.HasACL() && len(objModes) > 0 {
			needACL = append(needACL, doc)
			continue
		}
		auditDeny(ctx, fmt.Sprintf("no workspace access and no ACL fallback for %s/%s workspaces=%v",
			doc.Type, doc.ID, doc.Workspaces))
		return false, nil
	}
	if len(needACL) == 0 {
		return true, nil
	}
	return c.control.ValidateObjectsACL(ctx, needACL, principals, objModes), nil
}

// Get fetches a document if the caller can read any of its workspaces or
// satisfies its ACL.
func (c *AuthorizedClient) Get(ctx context.Context, typ, id string) (*storage.Document, error) {
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.Get(ctx, typ, id)
	}
	defer checkout(ctx)()

	doc, err := c.client.Get(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	ok, err := c.canAccess(ctx, []*storage.Document{doc}, workspaceReadModes, objectReadModes, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return doc, nil
}

// BulkGet fetches several documents. Partial visibility is a valid outcome
// for reads, so unauthorized items are replaced with a per-item forbidden
// record carrying only the id and type, and the call itself succeeds.
func (c *AuthorizedClient) BulkGet(ctx context.Context, refs []storage.DocumentRef) (*storage.BulkResponse, error) {
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.BulkGet(ctx, refs)
	}
	defer checkout(ctx)()

	resp, err := c.client.BulkGet(ctx, refs)
	if err != nil {
		return nil, err
	}
	for i, doc := range resp.Documents {
		if doc.Err != nil {
			continue
		}
		ok, err := c.canAccess(ctx, []*storage.Document{doc}, workspaceReadModes, objectReadModes, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			resp.Documents[i] = &storage.Document{ID: doc.ID, Type: doc.Type, Err: ErrForbidden}
		}
	}
	return resp, nil
}

// Create stores a new document. The caller needs write-level workspace modes
// on every workspace in opts.Workspaces, and for an overwrite of an existing
// document, access to that document under the write tier.
func (c *AuthorizedClient) Create(ctx context.Context, doc *storage.Document, opts storage.CreateOptions) (*storage.Document, error) {
	if err := guardType(ctx, doc.Type); err != nil {
		return nil, err
	}
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.Create(ctx, doc, opts)
	}
	defer checkout(ctx)()

	if err := c.checkCreate(ctx, []*storage.Document{doc}, opts); err != nil {
		return nil, err
	}
	return c.client.Create(ctx, doc, opts)
}

// BulkCreate stores several documents under the same options. Authorization
// is atomic: one unauthorized member fails the whole call before any write.
func (c *AuthorizedClient) BulkCreate(ctx context.Context, docs []*storage.Document, opts storage.CreateOptions) (*storage.BulkResponse, error) {
	for _, doc := range docs {
		if err := guardType(ctx, doc.Type); err != nil {
			return nil, err
		}
	}
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.BulkCreate(ctx, docs, opts)
	}
	defer checkout(ctx)()

	if err := c.checkCreate(ctx, docs, opts); err != nil {
		return nil, err
	}
	return c.client.BulkCreate(ctx, docs, opts)
}

func (c *AuthorizedClient) checkCreate(ctx context.Context, docs []*storage.Document, opts storage.CreateOptions) error {
	if len(opts.Workspaces) > 0 {
		permitted := c.permittedSet(ctx, workspaceWriteModes)
		if !workspacesPermitted(opts.Workspaces, permitted, true) {
			auditDeny(ctx, fmt.Sprintf("creation denied for target workspaces %v", opts.Workspaces))
			return ErrForbidden
		}
	}

	if !opts.Overwrite {
		return nil
	}

	// Overwrites replace existing documents, so each one the caller is about
	// to clobber must be accessible under the write tier.
	refs := make([]storage.DocumentRef, len(docs))
	for i, doc := range docs {
		refs[i] = doc.Ref()
	}
	resp, err := c.client.BulkGet(ctx, refs)
	if err != nil {
		return err
	}
	var existing []*storage.Document
	for _, doc := range resp.Documents {
		if doc.Err == nil {
			existing = append(existing, doc)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	ok, err := c.canAccess(ctx, existing, workspaceWriteModes, objectWriteModes, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// Update replaces a document's attributes. The caller needs the write tier on
// every workspace the document declares, or its ACL's write modes.
func (c *AuthorizedClient) Update(ctx context.Context, typ, id string, attributes json.RawMessage) (*storage.Document, error) {
	if err := guardType(ctx, typ); err != nil {
		return nil, err
	}
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.Update(ctx, typ, id, attributes)
	}
	defer checkout(ctx)()

	doc, err := c.client.Get(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	ok, err := c.canAccess(ctx, []*storage.Document{doc}, workspaceWriteModes, objectWriteModes, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return c.client.Update(ctx, typ, id, attributes)
}

// BulkUpdate replaces several documents. Authorization is atomic across the
// batch; a missing member surfaces its storage error rather than a denial.
func (c *AuthorizedClient) BulkUpdate(ctx context.Context, docs []*storage.Document) (*storage.BulkResponse, error) {
	for _, doc := range docs {
		if err := guardType(ctx, doc.Type); err != nil {
			return nil, err
		}
	}
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.BulkUpdate(ctx, docs)
	}
	defer checkout(ctx)()

	refs := make([]storage.DocumentRef, len(docs))
	for i, doc := range docs {
		refs[i] = doc.Ref()
	}
	resp, err := c.client.BulkGet(ctx, refs)
	if err != nil {
		return nil, err
	}
	existing := make([]*storage.Document, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		if doc.Err != nil {
			return nil, doc.Err
		}
		existing = append(existing, doc)
	}
	ok, err := c.canAccess(ctx, existing, workspaceWriteModes, objectWriteModes, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return c.client.BulkUpdate(ctx, docs)
}

// Delete removes a document under the same rule as Update.
func (c *AuthorizedClient) Delete(ctx context.Context, typ, id string) error {
	if err := guardType(ctx, typ); err != nil {
		return err
	}
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.Delete(ctx, typ, id)
	}
	defer checkout(ctx)()

	doc, err := c.client.Get(ctx, typ, id)
	if err != nil {
		return err
	}
	ok, err := c.canAccess(ctx, []*storage.Document{doc}, workspaceWriteModes, objectWriteModes, true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return c.client.Delete(ctx, typ, id)
}

// AddToWorkspaces shares a document into additional workspaces. The caller
// needs the write tier on every target workspace and write on the moved
// document itself.
func (c *AuthorizedClient) AddToWorkspaces(ctx context.Context, typ, id string, workspaces []string) (*storage.Document, error) {
	if err := guardType(ctx, typ); err != nil {
		return nil, err
	}
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.AddToWorkspaces(ctx, typ, id, workspaces)
	}
	defer checkout(ctx)()

	permitted := c.permittedSet(ctx, workspaceWriteModes)
	if !workspacesPermitted(workspaces, permitted, true) {
		auditDeny(ctx, fmt.Sprintf("sharing denied for target workspaces %v", workspaces))
		return nil, ErrForbidden
	}

	doc, err := c.client.Get(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	ok, err := c.canAccess(ctx, []*storage.Document{doc}, workspaceWriteModes, objectMoveModes, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return c.client.AddToWorkspaces(ctx, typ, id, workspaces)
}

// DeleteByWorkspace clears a workspace's members. The caller needs the write
// tier on that workspace.
func (c *AuthorizedClient) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	if auth.IsWorkspaceAdmin(ctx) {
		return c.client.DeleteByWorkspace(ctx, workspaceID)
	}
	defer checkout(ctx)()

	permitted := c.permittedSet(ctx, workspaceWriteModes)
	if _, ok := permitted[workspaceID]; !ok {
		auditDeny(ctx, fmt.Sprintf("clearing denied for workspace %s", workspaceID))
		return ErrForbidden
	}
	return c.client.DeleteByWorkspace(ctx, workspaceID)
}

// Find rewrites the query to a permission-scoped predicate before forwarding,
// rather than fetching and filtering an unbounded result set.
//
//   - Admins and queries restricted to exempt types forward unchanged.
//   - Queries for the workspace type itself gain an ACL predicate over the
//     workspace read modes.
//   - An explicit workspace filter is intersected with the permitted set; an
//     empty intersection is a hard not-authorized error, distinguishing "you
//     asked for workspaces you cannot see" from "nothing matched".
//   - Otherwise the query is rewritten to match documents visible through a
//     permitted workspace OR through their own ACL.
func (c *AuthorizedClient) Find(ctx context.Context, query storage.Query) (*storage.FindResponse, error) {
	if auth.IsWorkspaceAdmin(ctx) || c.allExempt(query.Types) {
		return c.client.Find(ctx, query)
	}
	defer checkout(ctx)()

	principals, err := auth.Principals(ctx)
	if err != nil {
		return nil, err
	}

	if workspaceTypeOnly(query.Types) {
		query.ACLSearchParams = &storage.ACLSearchParams{
			Principals:      principals,
			PermissionModes: workspaceReadModes,
		}
		return c.client.Find(ctx, query)
	}

	permitted := c.control.PermittedWorkspaceIDs(ctx, workspaceReadModes)

	if len(query.Workspaces) > 0 {
		var intersection []string
		for _, ws := range query.Workspaces {
			if contains(permitted, ws) {
				intersection = append(intersection, ws)
			}
		}
		if len(intersection) == 0 {
			return nil, ErrNotAuthorized
		}
		query.Workspaces = intersection
		return c.client.Find(ctx, query)
	}

	// No explicit filter: visible through membership in a permitted
	// workspace or through the document's own ACL. With nothing permitted
	// the workspace half drops out and only ACL matches remain.
	query.Workspaces = permitted
	query.WorkspaceOperator = storage.OperatorOR
	query.ACLSearchParams = &storage.ACLSearchParams{
		Principals:      principals,
		PermissionModes: findACLModes,
	}
	return c.client.Find(ctx, query)
}

func (c *AuthorizedClient) allExempt(types []string) bool {
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		if _, ok := c.exempt[t]; !ok {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func workspaceTypeOnly(types []string) bool {
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		if t != storage.TypeWorkspace {
			return false
		}
	}
	return true
}
