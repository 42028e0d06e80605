// Package storage defines the document-store contract that the authorization
// core is layered on. Documents are opaque JSON attribute blobs with two
// authorization-relevant fields: the set of workspaces they belong to and an
// optional ACL. How documents are physically stored, indexed, or queried is an
// implementation concern; this package only fixes the interface and the query
// extensions (workspace filter, ACL search predicate) that implementations
// must push down into their own querying.
//
// Two implementations ship with docguard: memstore (transient, in-memory) and
// sqlstore (SQLite or PostgreSQL backed).
package storage

import (
	"context"
	"encoding/json"

	"github.com/docguardhq/docguard/errors"
	"google.golang.org/grpc/codes"
)

var (
	// Returned when a document does not exist.
	ErrNotFound = errors.NewC("document not found", codes.NotFound)

	// Returned when a create conflicts with an existing document id.
	ErrAlreadyExists = errors.NewC("document already exists", codes.AlreadyExists)

	// Returned when a document is missing its type or id.
	ErrInvalidDocument = errors.NewC("invalid document", codes.InvalidArgument)

	// Returned when a query asks for an unsupported combination.
	ErrInvalidQuery = errors.NewC("invalid query", codes.InvalidArgument)
)

// Client is the full CRUD and search surface of the document store. The
// authorization wrapper in package workspace decorates this interface
// transparently, so wrapped and unwrapped clients are interchangeable.
//
// BulkGet is non-throwing: missing or erroring items are represented per item
// via Document.Err, and the call itself only fails on transport-level
// problems.
type Client interface {
	// Get returns a single document.
	Get(ctx context.Context, typ, id string) (*Document, error)

	// BulkGet returns the referenced documents in request order. Missing
	// documents carry Err instead of failing the call.
	BulkGet(ctx context.Context, refs []DocumentRef) (*BulkResponse, error)

	// Create stores a new document. With Overwrite an existing document of
	// the same type and id is replaced, otherwise it conflicts.
	Create(ctx context.Context, doc *Document, opts CreateOptions) (*Document, error)

	// BulkCreate stores several documents under the same options.
	BulkCreate(ctx context.Context, docs []*Document, opts CreateOptions) (*BulkResponse, error)

	// Update replaces the attributes of an existing document.
	Update(ctx context.Context, typ, id string, attributes json.RawMessage) (*Document, error)

	// BulkUpdate replaces attributes (and permissions, when set) of several
	// existing documents.
	BulkUpdate(ctx context.Context, docs []*Document) (*BulkResponse, error)

	// Delete removes a document.
	Delete(ctx context.Context, typ, id string) error

	// Find returns documents matching the query. Implementations must apply
	// the Workspaces filter and ACLSearchParams predicate inside their own
	// query execution, never by post-filtering an unbounded fetch.
	Find(ctx context.Context, query Query) (*FindResponse, error)

	// AddToWorkspaces appends workspace memberships to a document.
	AddToWorkspaces(ctx context.Context, typ, id string, workspaces []string) (*Document, error)

	// DeleteByWorkspace removes the workspace from every member document's
	// membership list, deleting documents whose only workspace it was.
	DeleteByWorkspace(ctx context.Context, workspaceID string) error
}

// ClientFactory yields a request-scoped client. The permission controller is
// bound to a factory producing unwrapped clients so its own fetches do not
// recurse through the authorization wrapper.
type ClientFactory func(ctx context.Context) Client
