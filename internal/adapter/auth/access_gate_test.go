package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func claimsFor(sub, role string, exp time.Time) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestResolve(t *testing.T) {
	gate := NewAccessGate(testSecret)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		credential string
		wantRole   domain.Role
		wantReason Reason
		wantID     string
	}{
		{
			name:       "no credential",
			credential: "",
			wantRole:   domain.RoleAnonymous,
			wantReason: NoCredential,
		},
		{
			name:       "user token",
			credential: sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("u-1", "user", future)),
			wantRole:   domain.RoleUser,
			wantReason: Verified,
			wantID:     "u-1",
		},
		{
			name:       "admin token",
			credential: sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("a-1", "admin", future)),
			wantRole:   domain.RoleAdmin,
			wantReason: Verified,
			wantID:     "a-1",
		},
		{
			name:       "expired",
			credential: sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("u-1", "user", time.Now().Add(-time.Minute))),
			wantRole:   domain.RoleAnonymous,
			wantReason: InvalidCredential,
		},
		{
			name:       "wrong secret",
			credential: sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("u-1", "admin", future)),
			wantRole:   domain.RoleAnonymous,
			wantReason: InvalidCredential,
		},
		{
			name:       "wrong algorithm",
			credential: sign(t, jwt.SigningMethodHS512, []byte(testSecret), claimsFor("u-1", "admin", future)),
			wantRole:   domain.RoleAnonymous,
			wantReason: InvalidCredential,
		},
		{
			name:       "unknown role",
			credential: sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("u-1", "superuser", future)),
			wantRole:   domain.RoleAnonymous,
			wantReason: InvalidCredential,
		},
		{
			name:       "missing subject",
			credential: sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("", "user", future)),
			wantRole:   domain.RoleAnonymous,
			wantReason: InvalidCredential,
		},
		{
			name:       "missing expiry",
			credential: sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}),
			wantRole:   domain.RoleAnonymous,
			wantReason: InvalidCredential,
		},
		{
			name:       "garbage",
			credential: "not.a.token",
			wantRole:   domain.RoleAnonymous,
			wantReason: InvalidCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gate.Resolve(tt.credential)
			assert.Equal(t, tt.wantRole, res.Role)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Equal(t, tt.wantID, res.Identity.ID)
			assert.Equal(t, tt.wantRole, gate.ResolveRole(tt.credential))
		})
	}
}

func TestIssue_RoundTrip(t *testing.T) {
	gate := NewAccessGate(testSecret)

	token, err := gate.Issue(domain.Identity{ID: "u-9", Role: domain.RoleAdmin}, time.Minute)
	require.NoError(t, err)

	res := gate.Resolve(token)
	assert.Equal(t, Verified, res.Reason)
	assert.Equal(t, domain.Identity{ID: "u-9", Role: domain.RoleAdmin}, res.Identity)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer"))
	assert.Equal(t, "", BearerToken(""))
}

func TestFromContext_DefaultsToAnonymous(t *testing.T) {
	res := FromContext(context.Background())
	assert.Equal(t, domain.RoleAnonymous, res.Role)
	assert.Equal(t, NoCredential, res.Reason)

	ctx := WithResolution(context.Background(), Resolution{Role: domain.RoleUser, Reason: Verified})
	assert.Equal(t, domain.RoleUser, FromContext(ctx).Role)
}
