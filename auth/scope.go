package auth

import (
	"context"
	"sync"

	"github.com/docguardhq/docguard/acl"
)

// Scope is the request-scoped authorization context threaded through every
// check: the authentication state, the principals resolved from it (computed
// once, read-only thereafter), and the administrative flags fixed at attach
// time. Flags are decided during authentication and role resolution, never
// re-derived per call.
//
// A Scope is safe for concurrent use by parallel calls within one request.
type Scope struct {
	state *State

	once       sync.Once
	principals acl.Principals
	err        error

	workspaceAdmin  bool
	connectionAdmin bool
}

// ScopeOption configures a Scope at construction.
type ScopeOption func(*Scope)

// AsWorkspaceAdmin marks the request as coming from a dashboard
// administrator, bypassing workspace and ACL checks for ordinary documents
// and permitting management of workspace objects themselves.
func AsWorkspaceAdmin() ScopeOption {
	return func(s *Scope) { s.workspaceAdmin = true }
}

// AsConnectionAdmin marks the request as permitted to manage cross-workspace
// connection objects. Independent of AsWorkspaceAdmin; the two are never
// conflated.
func AsConnectionAdmin() ScopeOption {
	return func(s *Scope) { s.connectionAdmin = true }
}

// NewScope builds a request scope around an authentication state.
func NewScope(state *State, opts ...ScopeOption) *Scope {
	s := &Scope{state: state}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Principals resolves and memoizes the request's principals.
func (s *Scope) Principals() (acl.Principals, error) {
	s.once.Do(func() {
		s.principals, s.err = ResolvePrincipals(s.state)
	})
	return s.principals, s.err
}

// WorkspaceAdmin reports the dashboard-admin flag.
func (s *Scope) WorkspaceAdmin() bool { return s.workspaceAdmin }

// ConnectionAdmin reports the connection-admin flag.
func (s *Scope) ConnectionAdmin() bool { return s.connectionAdmin }

type scopeKey struct{}

// WithScope attaches a request scope to the context.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the attached scope, or nil.
func ScopeFromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Principals resolves principals from the context's scope. A context without
// a scope resolves to empty principals, matching the behavior of a request
// with no authentication context.
func Principals(ctx context.Context) (acl.Principals, error) {
	if s := ScopeFromContext(ctx); s != nil {
		return s.Principals()
	}
	return acl.Principals{}, nil
}

// IsWorkspaceAdmin reports whether the context's request may bypass
// workspace and ACL checks.
func IsWorkspaceAdmin(ctx context.Context) bool {
	if s := ScopeFromContext(ctx); s != nil {
		return s.WorkspaceAdmin()
	}
	return false
}

// IsConnectionAdmin reports whether the context's request may manage
// cross-workspace connection objects.
func IsConnectionAdmin(ctx context.Context) bool {
	if s := ScopeFromContext(ctx); s != nil {
		return s.ConnectionAdmin()
	}
	return false
}
