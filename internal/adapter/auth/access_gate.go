package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
)

type Reason int

const (
	NoCredential Reason = iota
	InvalidCredential
	Verified
)

func (r Reason) String() string {
	switch r {
	case NoCredential:
		return "no_credential"
	case InvalidCredential:
		return "invalid_credential"
	case Verified:
		return "verified"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of classifying a credential. Identity is only
// set when Reason is Verified.
type Resolution struct {
	Identity domain.Identity
	Role     domain.Role
	Reason   Reason
}

var anonymous = domain.Identity{Role: domain.RoleAnonymous}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccessGate classifies bearer tokens. It never fails: anything it cannot
// verify resolves to an anonymous caller.
type AccessGate struct {
	secret []byte
	parser *jwt.Parser
}

func NewAccessGate(secret string) *AccessGate {
	return &AccessGate{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (g *AccessGate) Resolve(credential string) Resolution {
	if credential == "" {
		return Resolution{Identity: anonymous, Role: domain.RoleAnonymous, Reason: NoCredential}
	}

	invalid := Resolution{Identity: anonymous, Role: domain.RoleAnonymous, Reason: InvalidCredential}

	var claims Claims
	token, err := g.parser.ParseWithClaims(credential, &claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return invalid
	}

	role := domain.Role(claims.Role)
	if !role.Authenticated() {
		return invalid
	}

	return Resolution{
		Identity: domain.Identity{ID: claims.Subject, Role: role},
		Role:     role,
		Reason:   Verified,
	}
}

func (g *AccessGate) ResolveRole(credential string) domain.Role {
	return g.Resolve(credential).Role
}

// Issue signs a token for identity. The server never calls it; it backs
// tests and the load generator.
func (g *AccessGate) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type contextKey struct{}

func WithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, contextKey{}, res)
}

// FromContext returns the resolution stored by the HTTP middleware, or an
// anonymous one when none was stored.
func FromContext(ctx context.Context) Resolution {
	if res, ok := ctx.Value(contextKey{}).(Resolution); ok {
		return res
	}
	return Resolution{Identity: anonymous, Role: domain.RoleAnonymous, Reason: NoCredential}
}
