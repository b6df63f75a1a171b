package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rounds-hq/rounds/internal/shared"
	_ "github.com/rounds-hq/rounds/testing"
)

func adminRoles() []Role {
	return []Role{
		{ID: 1, Name: RoleMember, Priority: PriorityMember, IsSystem: true,
			Permissions: []string{shared.PermCirclesView}},
		{ID: 2, Name: RoleFacilitator, Priority: PriorityFacilitator, IsSystem: true,
			Permissions: []string{shared.PermCirclesView, shared.PermCirclesManage}},
		{ID: 6, Name: RoleAdmin, Priority: PriorityAdmin, IsSystem: true,
			Permissions: []string{
				shared.PermRolesView,
				shared.PermRolesAssign,
				shared.PermRolesRevoke,
				shared.PermPermissionsView,
				shared.PermUsersView,
			}},
	}
}

// newAPIRouter mounts the role administration API behind a middleware that
// signs every request in as the given user id.
func newAPIRouter(t *testing.T, repo *mockRepository, userID string) chi.Router {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	resolver := NewResolver(repo)
	contexts := NewContextStore(client, time.Hour)
	service := NewService(repo, resolver, contexts, nil)
	mw := Middleware{Checker: NewChecker(resolver)}
	handler := NewHandler(nil, service, resolver, mw)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{}
			if userID != "" {
				sess.SetUser(userID)
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func TestGrantEndpointCreatesAssignment(t *testing.T) {
	repo := newMockRepository(adminRoles()...)
	grantDirect(t, repo, 1, RoleAdmin)
	router := newAPIRouter(t, repo, "1")

	body := strings.NewReader(`{"role":"Member","make_primary":true}`)
	req := httptest.NewRequest(http.MethodPost, "/principals/42/roles", body)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var got struct {
		PrincipalID int64  `json:"principal_id"`
		Role        string `json:"role"`
		IsPrimary   bool   `json:"is_primary"`
		AssignedBy  *int64 `json:"assigned_by"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	assert.Equal(t, int64(42), got.PrincipalID)
	assert.Equal(t, RoleMember, got.Role)
	assert.True(t, got.IsPrimary)
	require.NotNil(t, got.AssignedBy)
	assert.Equal(t, int64(1), *got.AssignedBy)
}

func TestGrantEndpointUnknownRole(t *testing.T) {
	repo := newMockRepository(adminRoles()...)
	grantDirect(t, repo, 1, RoleAdmin)
	router := newAPIRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodPost, "/principals/42/roles", strings.NewReader(`{"role":"Superuser"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestGrantEndpointForbiddenWithoutPermission(t *testing.T) {
	repo := newMockRepository(adminRoles()...)
	grantDirect(t, repo, 9, RoleMember)
	router := newAPIRouter(t, repo, "9")

	req := httptest.NewRequest(http.MethodPost, "/principals/42/roles", strings.NewReader(`{"role":"Member"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Empty(t, repo.assignments[42])
}

func TestRevokeEndpoint(t *testing.T) {
	repo := newMockRepository(adminRoles()...)
	grantDirect(t, repo, 1, RoleAdmin)
	grantDirect(t, repo, 42, RoleMember)
	router := newAPIRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodDelete, "/principals/42/roles/Member", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusNoContent, res.Code)
	for _, a := range repo.assignments[42] {
		assert.False(t, a.IsActive)
	}
}

func TestEffectivePermissionsEndpoint(t *testing.T) {
	repo := newMockRepository(adminRoles()...)
	grantDirect(t, repo, 1, RoleAdmin)
	grantDirect(t, repo, 42, RoleMember)
	grantDirect(t, repo, 42, RoleFacilitator)
	router := newAPIRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodGet, "/principals/42/permissions", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var got struct {
		Permissions     []string `json:"permissions"`
		Roles           []string `json:"roles"`
		HighestPriority int      `json:"highest_priority"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	assert.Equal(t, []string{shared.PermCirclesManage, shared.PermCirclesView}, got.Permissions)
	assert.ElementsMatch(t, []string{RoleMember, RoleFacilitator}, got.Roles)
	assert.Equal(t, PriorityFacilitator, got.HighestPriority)
}

func TestListRolesEndpoint(t *testing.T) {
	repo := newMockRepository(adminRoles()...)
	grantDirect(t, repo, 1, RoleAdmin)
	router := newAPIRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var roles []roleResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &roles))
	assert.Len(t, roles, 3)
}

func TestContextEndpoints(t *testing.T) {
	repo := newMockRepository(adminRoles()...)
	grantDirect(t, repo, 9, RoleFacilitator)
	router := newAPIRouter(t, repo, "9")

	// No context yet.
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/context", nil))
	assert.Equal(t, http.StatusNoContent, res.Code)

	// Switch to a held role.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(`{"role":"Facilitator"}`)))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	// Now readable.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/context", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var active ActiveContext
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &active))
	assert.Equal(t, RoleFacilitator, active.RoleName)

	// Switching to a role not held is a validation failure.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(`{"role":"Admin"}`)))
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
