package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Feature: cart-pricing, Property 11: Protected endpoints reject missing tokens
func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			req := httptest.NewRequest(method, "/api/cart/"+pathSuffix, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: cart-pricing, Property 12: Valid tokens carry the owner into the request
func TestProperty_ValidTokensCarryOwner(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("the user_id claim becomes the cart owner", prop.ForAll(
		func(owner string, role string) bool {
			token, err := IssueToken(testSecret, owner, role, time.Hour)
			if err != nil {
				return false
			}

			var gotOwner, gotRole string
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOwner, _ = GetUserID(r.Context())
				gotRole, _ = GetUserRole(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && gotOwner == owner && gotRole == role
		},
		gen.Identifier(),
		gen.OneConstOf(RoleCustomer, RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	expired, err := IssueToken(testSecret, "alice", RoleCustomer, -time.Hour)
	assert.NoError(t, err)
	foreign, err := IssueToken("another-secret", "alice", RoleCustomer, time.Hour)
	assert.NoError(t, err)
	noOwner, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	assert.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
		{"no owner claim", "Bearer " + noOwner},
		{"garbage token", "Bearer not.a.token"},
		{"missing bearer prefix", expired},
		{"basic scheme", "Basic YWxpY2U6c2VjcmV0"},
	}

	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_DefaultsRoleToCustomer(t *testing.T) {
	token, err := IssueToken(testSecret, "alice", "", time.Hour)
	assert.NoError(t, err)

	chain := AuthMiddleware(testSecret, zap.NewNop())(RequireAdmin(zap.NewNop())(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	token, err := IssueToken(testSecret, "root", RoleAdmin, time.Hour)
	assert.NoError(t, err)

	chain := AuthMiddleware(testSecret, zap.NewNop())(RequireAdmin(zap.NewNop())(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
