// Package auth models the authentication state a request arrives with and
// resolves it into the principals the authorization core evaluates. It does
// not authenticate anything itself: identity providers are external, and this
// package only consumes the claims they produce (plus a small identity-token
// codec for deployments that want docguard to carry claims between services).
package auth

// Status describes the outcome of the external authentication subsystem.
type Status string

const (
	// StatusAuthenticated means the request carries verified claims.
	StatusAuthenticated Status = "authenticated"

	// StatusUnauthenticated means authentication ran and rejected the
	// request. Resolution fails hard rather than degrading to empty
	// principals.
	StatusUnauthenticated Status = "unauthenticated"

	// StatusUnknown means no authentication is configured. The request
	// resolves to empty principals, which grant nothing on their own.
	StatusUnknown Status = "unknown"
)

// State is the request-scoped authentication result: a status plus whatever
// claims the authentication layer extracted. A nil *State means there was no
// authentication context at all.
type State struct {
	Status       Status
	UserName     string
	BackendRoles []string
}
