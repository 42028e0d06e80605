// Package docguard wires the workspace authorization engine: a document store
// wrapped so that every read, write and search is checked against workspace
// membership permissions and per-document ACLs before it reaches storage.
//
// Typical use:
//
//	guard := docguard.New(docguard.WithStore(memstore.New()))
//	ctx, done := guard.Attach(ctx, state)
//	defer done()
//	doc, err := guard.Client().Get(ctx, "dashboard", id)
//
// Attach resolves the request's principals once, fixes its administrative
// flags, and sets up the audit accumulator that coalesces denial detail from
// parallel calls into a single debug flush when done is called.
package docguard

import (
	"context"

	"github.com/docguardhq/docguard/auth"
	"github.com/docguardhq/docguard/internal/config"
	"github.com/docguardhq/docguard/logging"
	"github.com/docguardhq/docguard/permission"
	"github.com/docguardhq/docguard/storage"
	"github.com/docguardhq/docguard/storage/memstore"
	"github.com/docguardhq/docguard/storage/sqlstore"
	"github.com/docguardhq/docguard/workspace"
)

// Guard holds the wired authorization engine: the unwrapped store, the
// permission controller, and the authorized client callers should use for all
// document access.
type Guard struct {
	store   storage.Client
	logger  logging.Logger
	control *permission.Controller
	client  storage.Client

	exemptTypes           []string
	adminUsers            map[string]struct{}
	adminGroups           map[string]struct{}
	connectionAdminGroups map[string]struct{}
}

// Option configures a Guard, overriding whatever the config file or
// environment provided.
type Option func(*Guard)

// WithStore supplies the backing document store. Without it the store is
// built from the storage.driver and storage.dsn config keys.
func WithStore(store storage.Client) Option {
	return func(g *Guard) { g.store = store }
}

// WithLogger supplies the logger. Defaults to a JSON logger at the configured
// logging.level.
func WithLogger(logger logging.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithExemptTypes adds document types with no workspace or ACL relevance.
func WithExemptTypes(types ...string) Option {
	return func(g *Guard) { g.exemptTypes = append(g.exemptTypes, types...) }
}

// WithAdminUsers adds user names granted the workspace-admin bypass.
func WithAdminUsers(users ...string) Option {
	return func(g *Guard) { addAll(g.adminUsers, users) }
}

// WithAdminGroups adds backend roles granted the workspace-admin bypass.
func WithAdminGroups(groups ...string) Option {
	return func(g *Guard) { addAll(g.adminGroups, groups) }
}

// WithConnectionAdminGroups adds backend roles permitted to manage
// cross-workspace connection objects. Deliberately separate from the
// workspace-admin lists.
func WithConnectionAdminGroups(groups ...string) Option {
	return func(g *Guard) { addAll(g.connectionAdminGroups, groups) }
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		set[v] = struct{}{}
	}
}

// New builds a Guard from configuration and options. Unknown config keys are
// reported as startup warnings.
func New(opts ...Option) *Guard {
	config.EnsureDefaultsLoaded(Config)

	g := &Guard{
		exemptTypes:           ConfigStrings("workspace.exemptTypes"),
		adminUsers:            map[string]struct{}{},
		adminGroups:           map[string]struct{}{},
		connectionAdminGroups: map[string]struct{}{},
	}
	addAll(g.adminUsers, ConfigStrings("auth.adminUsers"))
	addAll(g.adminGroups, ConfigStrings("auth.adminGroups"))
	addAll(g.connectionAdminGroups, ConfigStrings("auth.connectionAdminGroups"))

	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = logging.NewLogger(ConfigString("logging.level"))
	}
	if warnings := ValidateConfig(); warnings != "" {
		g.logger.Warn(warnings)
	}
	if g.store == nil {
		g.store = storeFromConfig()
	}

	g.control = permission.NewController(g.logger.Named("permission"))
	g.control.Setup(func(ctx context.Context) storage.Client { return g.store })
	g.client = workspace.NewAuthorizedClient(g.store, g.control,
		workspace.WithExemptTypes(g.exemptTypes...))
	return g
}

func storeFromConfig() storage.Client {
	switch driver := ConfigString("storage.driver"); driver {
	case "", "memory":
		return memstore.New()
	default:
		return sqlstore.New(driver, ConfigString("storage.dsn"),
			sqlstore.WithPrefix(ConfigString("storage.tablePrefix")))
	}
}

// Client returns the authorization-wrapped document client. All application
// document access should go through it.
func (g *Guard) Client() storage.Client {
	return g.client
}

// Store returns the unwrapped backing store, for trusted system paths such as
// migrations and seeding. Nothing that handles request input should touch it.
func (g *Guard) Store() storage.Client {
	return g.store
}

// Permissions returns the controller for direct validation and introspection
// calls (validate, batch validate, principals of objects, permitted
// workspaces).
func (g *Guard) Permissions() *permission.Controller {
	return g.control
}

// Attach prepares a context for one inbound request: the authentication state
// becomes a scope with principals resolved once and admin flags fixed from
// the configured lists, a request logger is attached, and an audit
// accumulator is checked out. The returned function must be called when the
// request finishes; it flushes accumulated denial detail exactly once, no
// matter how many calls ran in parallel.
func (g *Guard) Attach(ctx context.Context, state *auth.State) (context.Context, func()) {
	var scopeOpts []auth.ScopeOption
	if g.isWorkspaceAdmin(state) {
		scopeOpts = append(scopeOpts, auth.AsWorkspaceAdmin())
	}
	if g.isConnectionAdmin(state) {
		scopeOpts = append(scopeOpts, auth.AsConnectionAdmin())
	}
	ctx = auth.WithScope(ctx, auth.NewScope(state, scopeOpts...))
	ctx = logging.With(ctx, g.logger)

	auditor := permission.NewAuditor(g.logger)
	auditor.Checkout()
	return permission.WithAuditor(ctx, auditor), auditor.Checkin
}

func (g *Guard) isWorkspaceAdmin(state *auth.State) bool {
	if state == nil || state.Status != auth.StatusAuthenticated {
		return false
	}
	if state.UserName != "" {
		if _, ok := g.adminUsers[state.UserName]; ok {
			return true
		}
	}
	for _, role := range state.BackendRoles {
		if _, ok := g.adminGroups[role]; ok {
			return true
		}
	}
	return false
}

func (g *Guard) isConnectionAdmin(state *auth.State) bool {
	if state == nil || state.Status != auth.StatusAuthenticated {
		return false
	}
	for _, role := range state.BackendRoles {
		if _, ok := g.connectionAdminGroups[role]; ok {
			return true
		}
	}
	return false
}
