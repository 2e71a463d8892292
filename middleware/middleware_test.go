package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shophub/auth"
	"shophub/globals"
	"shophub/models"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Gate, string) {
	t.Helper()
	st := store.NewMemory()
	acc := &models.Account{Email: "ada@example.com", Roles: []string{globals.RoleUser}}
	require.NoError(t, st.Accounts.Save(context.Background(), acc))

	tokens := auth.NewJWTService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	tok, err := tokens.Issue(acc.ID, acc.Email, "Ada", "Lovelace")
	require.NoError(t, err)
	return NewGate(tokens, st.Accounts), tok
}

func capture(g *Gate, req *http.Request) (models.Identity, bool) {
	var id models.Identity
	var ok bool
	g.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok = utils.IdentityFromRequest(r)
	})).ServeHTTP(httptest.NewRecorder(), req)
	return id, ok
}

func TestGateResolvesHeaderAndCookie(t *testing.T) {
	g, tok := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	id, ok := capture(g, req)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, []string{"ROLE_USER"}, id.Authorities)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: globals.TokenCookie, Value: tok})
	_, ok = capture(g, req)
	assert.True(t, ok)
}

func TestGateLeavesInvalidRequestsAnonymous(t *testing.T) {
	g, _ := setup(t)

	orphan, err := auth.NewJWTService([]byte("0123456789abcdef0123456789abcdef"), time.Hour).
		Issue("x", "ghost@example.com", "", "")
	require.NoError(t, err)

	cases := map[string]string{
		"no token": "",
		"garbage":  "Bearer garbage",
		"orphan":   "Bearer " + orphan,
		"basic":    "Basic abc",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			_, ok := capture(g, req)
			assert.False(t, ok)
		})
	}
}

func TestTokenFromRequestPrefersBearerHeader(t *testing.T) {
	g, tok := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	req.AddCookie(&http.Cookie{Name: globals.TokenCookie, Value: tok})
	assert.Equal(t, "", TokenFromRequest(req))
	_, ok := capture(g, req)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+tok)
	_, ok = capture(g, req)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: globals.TokenCookie, Value: tok})
	_, ok = capture(g, req)
	assert.True(t, ok)
}

func TestRequireRolesChecksAuthorities(t *testing.T) {
	h := RequireRoles(globals.RoleAdmin)(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(utils.WithIdentity(req.Context(), models.Identity{AccountID: "a", Roles: []string{globals.RoleAdmin}}))
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	called := false
	h := Chain(RequireAuth, RequireRoles(globals.RoleAdmin))(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(utils.WithIdentity(req.Context(), models.Identity{AccountID: "a", Roles: []string{globals.RoleUser}, Authorities: []string{"ROLE_USER"}}))
	rec = httptest.NewRecorder()
	h(rec, req, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(utils.WithIdentity(req.Context(), models.Identity{AccountID: "a", Roles: []string{globals.RoleAdmin}, Authorities: []string{"ROLE_ADMIN"}}))
	rec = httptest.NewRecorder()
	h(rec, req, nil)
	assert.True(t, called)
}
