package storage

import (
	"encoding/json"
	"time"

	"github.com/docguardhq/docguard/acl"
)

// TypeWorkspace is the distinguished document type whose ACL governs
// library-level access to every document declaring membership in it.
// Workspace documents themselves are managed out-of-band from the generic ACL
// path and require administrative status to create or mutate.
const TypeWorkspace = "workspace"

// TypeConnection is the cross-workspace system type for globally shared
// connection objects. Mutating these requires the connection-admin flag,
// which is independent of the generic workspace-admin flag.
const TypeConnection = "connection"

// DocumentRef identifies a document by type and id.
type DocumentRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Document is the stored resource the authorization core protects.
//
// Workspaces distinguishes nil from empty: a nil slice means the document is
// not workspace-scoped at all (a global object), while a non-nil empty slice
// means it was workspace-scoped and is now orphaned — the latter is never
// accessible to non-admins.
type Document struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes,omitempty"`

	// No omitempty: nil (not scoped) and empty (orphaned) must survive a
	// serialization round trip as distinct values.
	Workspaces  []string `json:"workspaces"`
	Permissions acl.Raw  `json:"permissions"`

	UpdatedAt time.Time `json:"updatedAt,omitzero"`

	// Err carries a per-item error in bulk responses. It is never persisted.
	Err error `json:"-"`
}

// Ref returns the document's reference.
func (d *Document) Ref() DocumentRef {
	return DocumentRef{Type: d.Type, ID: d.ID}
}

// HasACL reports whether the document carries its own permission record.
func (d *Document) HasACL() bool {
	return d.Permissions != nil
}

// InWorkspace reports whether the document declares membership in the given
// workspace.
func (d *Document) InWorkspace(id string) bool {
	for _, ws := range d.Workspaces {
		if ws == id {
			return true
		}
	}
	return false
}

// CreateOptions modify Create and BulkCreate.
type CreateOptions struct {
	// Overwrite replaces an existing document with the same type and id
	// rather than conflicting.
	Overwrite bool

	// Workspaces the new documents should be created into.
	Workspaces []string
}

// Operator combines the workspace filter with the ACL search predicate in a
// Find query.
type Operator string

const (
	// OperatorAND requires a document to satisfy both constraints. This is
	// the default.
	OperatorAND Operator = "AND"

	// OperatorOR matches documents satisfying either constraint. The
	// authorization wrapper uses this to express "visible via workspace
	// membership or via the document's own ACL" in one query.
	OperatorOR Operator = "OR"
)

// ACLSearchParams is the permission predicate pushed down into Find: match
// documents whose ACL grants any of the modes to any of the principals.
// Documents without an ACL never match the predicate.
type ACLSearchParams struct {
	Principals      acl.Principals
	PermissionModes []acl.Mode
}

// Query describes a Find call.
type Query struct {
	// Types restricts results to the listed document types. Empty means all.
	Types []string

	// Search is an optional substring match over document attributes.
	Search string

	// Workspaces restricts results to documents belonging to any of the
	// listed workspaces.
	Workspaces []string

	// WorkspaceOperator joins the Workspaces filter and ACLSearchParams when
	// both are present. Zero value behaves as OperatorAND.
	WorkspaceOperator Operator

	// ACLSearchParams is the optional permission predicate.
	ACLSearchParams *ACLSearchParams

	// Page is 1-based. Zero values disable pagination.
	Page    int
	PerPage int
}

// BulkResponse carries per-item results for bulk operations.
type BulkResponse struct {
	Documents []*Document `json:"documents"`
}

// FindResponse carries a page of search results.
type FindResponse struct {
	Documents []*Document `json:"documents"`
	Total     int         `json:"total"`
	Page      int         `json:"page"`
	PerPage   int         `json:"perPage"`
}
