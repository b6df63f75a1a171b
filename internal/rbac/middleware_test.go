package rbac

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rounds-hq/rounds/internal/platform/httpx"
	"github.com/rounds-hq/rounds/internal/shared"
)

type recordingObserver struct {
	allowed []bool
	reasons []string
}

func (o *recordingObserver) ObserveDecision(allowed bool, reason string) {
	o.allowed = append(o.allowed, allowed)
	o.reasons = append(o.reasons, reason)
}

func newGuardedRequest(t *testing.T, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequirePermissionAllows(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	grantDirect(t, repo, 42, RoleAdmin)
	observer := &recordingObserver{}
	mw := Middleware{Checker: newTestChecker(t, repo), Observer: observer}

	rr := httptest.NewRecorder()
	mw.RequirePermission(shared.PermRolesAssign)(okHandler()).ServeHTTP(rr, newGuardedRequest(t, "42"))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, observer.allowed, 1)
	assert.True(t, observer.allowed[0])
}

func TestRequirePermissionDeniesWithReason(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	grantDirect(t, repo, 42, RoleMember)
	observer := &recordingObserver{}
	mw := Middleware{Checker: newTestChecker(t, repo), Observer: observer}

	rr := httptest.NewRecorder()
	mw.RequirePermission(shared.PermRolesAssign)(okHandler()).ServeHTTP(rr, newGuardedRequest(t, "42"))

	assert.Equal(t, http.StatusForbidden, rr.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, string(ReasonMissingPermission), problem.Reason)
	// The denial names a reason code, never the missing permission itself.
	assert.NotContains(t, rr.Body.String(), shared.PermRolesAssign)

	require.Len(t, observer.allowed, 1)
	assert.False(t, observer.allowed[0])
	assert.Equal(t, string(ReasonMissingPermission), observer.reasons[0])
}

func TestGuardRejectsAnonymous(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	mw := Middleware{Checker: newTestChecker(t, repo)}

	// No session at all.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	mw.RequirePermission(shared.PermRolesView)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Session without a signed-in user.
	rr = httptest.NewRecorder()
	mw.RequirePermission(shared.PermRolesView)(okHandler()).ServeHTTP(rr, newGuardedRequest(t, ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGuardFailsClosedOnStoreError(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	repo.activeError = errors.New("connection reset")
	mw := Middleware{Checker: newTestChecker(t, repo)}

	rr := httptest.NewRecorder()
	mw.RequirePermission(shared.PermRolesView)(okHandler()).ServeHTTP(rr, newGuardedRequest(t, "42"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRequireRoleAndMinimumLevel(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	grantDirect(t, repo, 42, RoleFacilitator)
	mw := Middleware{Checker: newTestChecker(t, repo)}

	rr := httptest.NewRecorder()
	mw.RequireRole(RoleFacilitator)(okHandler()).ServeHTTP(rr, newGuardedRequest(t, "42"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mw.RequireMinimumLevel(RoleMember)(okHandler()).ServeHTTP(rr, newGuardedRequest(t, "42"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mw.RequireMinimumLevel(RoleAdmin)(okHandler()).ServeHTTP(rr, newGuardedRequest(t, "42"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
