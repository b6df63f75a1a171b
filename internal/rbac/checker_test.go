package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rounds-hq/rounds/internal/shared"
)

func newTestChecker(t *testing.T, repo *mockRepository) *Checker {
	t.Helper()
	return NewChecker(NewResolver(repo))
}

func TestCheckerDeniesEverythingWithoutAssignments(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	ctx := context.Background()

	d, err := checker.HasPermission(ctx, 99, shared.PermCirclesView)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMissingPermission, d.Reason)

	d, err = checker.HasRole(ctx, 99, RoleMember)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMissingRole, d.Reason)

	d, err = checker.MeetsMinimumRoleLevel(ctx, 99, RoleMember)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonBelowMinimumLevel, d.Reason)

	d, err = checker.CustomCheck(ctx, 99, func(s Snapshot) bool { return len(s.Roles) > 0 })
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCustomCheckFailed, d.Reason)
}

func TestHasPermissionUnknownKeyDenies(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	grantDirect(t, repo, 42, RoleAdmin)

	d, err := checker.HasPermission(context.Background(), 42, "circles:transmogrify")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	grantDirect(t, repo, 42, RoleMember)
	ctx := context.Background()

	d, err := checker.HasAnyPermission(ctx, 42, shared.PermCirclesManage, shared.PermCirclesView)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.HasAllPermissions(ctx, 42, shared.PermCirclesView, shared.PermMeetingsView)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.HasAllPermissions(ctx, 42, shared.PermCirclesView, shared.PermCirclesManage)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestHasAnyAndAllRoles(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	grantDirect(t, repo, 42, RoleMember)
	grantDirect(t, repo, 42, RoleFacilitator)
	ctx := context.Background()

	d, err := checker.HasAnyRole(ctx, 42, RoleAdmin, RoleFacilitator)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.HasAllRoles(ctx, 42, RoleMember, RoleFacilitator)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.HasAllRoles(ctx, 42, RoleMember, RoleAdmin)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestMeetsMinimumRoleLevel(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	grantDirect(t, repo, 42, RoleFacilitator)
	ctx := context.Background()

	// Facilitator outranks Member but not Admin.
	d, err := checker.MeetsMinimumRoleLevel(ctx, 42, RoleMember)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.MeetsMinimumRoleLevel(ctx, 42, RoleFacilitator)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.MeetsMinimumRoleLevel(ctx, 42, RoleAdmin)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonBelowMinimumLevel, d.Reason)
}

func TestMeetsMinimumRoleLevelUnknownRoleDenies(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	grantDirect(t, repo, 42, RoleAdmin)

	d, err := checker.MeetsMinimumRoleLevel(context.Background(), 42, "Superuser")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCustomCheckPredicate(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	grantDirect(t, repo, 42, RoleFacilitator)
	ctx := context.Background()

	d, err := checker.CustomCheck(ctx, 42, func(s Snapshot) bool {
		return s.HasRole(RoleFacilitator) && s.HasPermission(shared.PermCirclesManage)
	})
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.CustomCheck(ctx, 42, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCheckerFailsClosedOnStoreError(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	checker := newTestChecker(t, repo)
	repo.activeError = errors.New("connection reset")

	d, err := checker.HasPermission(context.Background(), 42, shared.PermCirclesView)
	require.Error(t, err)
	assert.False(t, d.Allowed)
}
