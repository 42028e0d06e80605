package auth

import (
	"fmt"
	"time"

	"github.com/docguardhq/docguard/acl"
	"github.com/docguardhq/docguard/errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
)

var (
	// Returned when the authentication layer explicitly rejected the request.
	ErrNotAuthorized = errors.NewC("request is not authorized", codes.Unauthenticated).
			WithPublicMessage("not authorized")

	// Returned for an authentication status this package does not recognize.
	// Seeing it means the auth layer and docguard disagree about the
	// contract, which is a deployment bug rather than a permission problem.
	ErrUnknownAuthStatus = errors.NewC("unrecognized authentication status", codes.Internal)
)

// ResolvePrincipals derives the principals for a request from its
// authentication state. It is a pure function of the state:
//
//   - nil state (no authentication context) resolves to empty principals.
//     Empty principals match no grant, so this is fail-closed, not a
//     wildcard.
//   - StatusUnknown resolves to empty principals for the same reason.
//   - StatusAuthenticated populates groups from backend roles and users from
//     the user name. If the claims carry neither, a unique synthetic user id
//     is substituted so the result can never be mistaken for "no
//     restriction" by a grant evaluation.
//   - StatusUnauthenticated fails with ErrNotAuthorized.
//   - Any other status fails with ErrUnknownAuthStatus.
func ResolvePrincipals(state *State) (acl.Principals, error) {
	if state == nil {
		return acl.Principals{}, nil
	}

	switch state.Status {
	case StatusUnknown:
		return acl.Principals{}, nil

	case StatusUnauthenticated:
		return acl.Principals{}, ErrNotAuthorized

	case StatusAuthenticated:
		p := acl.Principals{}
		if len(state.BackendRoles) > 0 {
			p.Groups = append([]string(nil), state.BackendRoles...)
		}
		if state.UserName != "" {
			p.Users = []string{state.UserName}
		}
		if p.IsEmpty() {
			p.Users = []string{syntheticUser()}
		}
		return p, nil

	default:
		return acl.Principals{}, ErrUnknownAuthStatus
	}
}

// syntheticUser produces an id that no stored grant can plausibly contain.
func syntheticUser() string {
	return fmt.Sprintf("_nobody_%d_%s", time.Now().UnixNano(), uuid.NewString())
}
