package auth

import (
	stderrors "errors"
	"time"

	"github.com/docguardhq/docguard/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
)

var (
	// The token's expiration date was in the past.
	ErrExpired = errors.NewC("token has expired", codes.FailedPrecondition)

	// The token was not signed correctly.
	ErrInvalid = errors.NewC("token is invalid", codes.InvalidArgument)
)

// Claims is the JWT payload a docguard identity token carries: the user name
// and backend roles that ResolvePrincipals consumes.
type Claims struct {
	jwt.RegisteredClaims
	Name         string   `json:"name"`
	BackendRoles []string `json:"backend_roles,omitempty"`
}

// TokenCodec mints and verifies identity tokens. Deployments that terminate
// authentication elsewhere never need one; it exists for service-to-service
// calls that carry claims through docguard itself.
type TokenCodec struct {
	signingKey []byte
	issuer     string
	audience   string
	expiration time.Duration

	// Allows time to be stubbed in tests.
	timeFunc func() time.Time
}

// NewTokenCodec returns a codec signing with the given key.
func NewTokenCodec(signingKey []byte) *TokenCodec {
	return &TokenCodec{
		signingKey: signingKey,
		issuer:     "docguard",
		audience:   "access",
		expiration: time.Hour * 24,
		timeFunc:   time.Now,
	}
}

// IdentityToken creates a signed JWT for the given authentication state.
func (c *TokenCodec) IdentityToken(state *State) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{c.audience},
			ExpiresAt: jwt.NewNumericDate(c.timeFunc().Add(c.expiration)),
			IssuedAt:  jwt.NewNumericDate(c.timeFunc()),
			Issuer:    c.issuer,
			Subject:   state.UserName,
		},
		Name:         state.UserName,
		BackendRoles: state.BackendRoles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.signingKey)
}

// ParseIdentityToken validates a signed JWT and returns the authenticated
// state encoded within. Invalid and expired tokens error.
func (c *TokenCodec) ParseIdentityToken(tokenString string) (*State, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return c.signingKey, nil
		},
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(c.timeFunc),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, errors.NewC(err, codes.InvalidArgument)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	return &State{
		Status:       StatusAuthenticated,
		UserName:     claims.Name,
		BackendRoles: claims.BackendRoles,
	}, nil
}
