package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rounds-hq/rounds/internal/shared"
)

func grantDirect(t *testing.T, repo *mockRepository, principalID int64, roleName string) {
	t.Helper()
	role, err := repo.RoleByName(context.Background(), roleName)
	require.NoError(t, err)
	err = repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := tx.InsertAssignment(ctx, principalID, role.ID, nil, false)
		return err
	})
	require.NoError(t, err)
}

func TestResolveEmptyForNoAssignments(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	resolver := NewResolver(repo)

	snapshot, err := resolver.Resolve(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Permissions)
	assert.Empty(t, snapshot.Roles)
	assert.Zero(t, snapshot.HighestPriority)
}

func TestResolveUnionsPermissionsAcrossRoles(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	resolver := NewResolver(repo)

	grantDirect(t, repo, 42, RoleMember)
	grantDirect(t, repo, 42, RoleFacilitator)

	snapshot, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{RoleMember, RoleFacilitator}, snapshot.RoleNames())
	assert.Equal(t, []string{
		shared.PermCirclesManage,
		shared.PermCirclesView,
		shared.PermMeetingsView,
	}, snapshot.PermissionKeys())
	assert.Equal(t, PriorityFacilitator, snapshot.HighestPriority)

	// Shared keys appear once.
	assert.True(t, snapshot.HasPermission(shared.PermCirclesView))
	assert.Len(t, snapshot.Permissions, 3)
}

func TestResolveAfterRevokeShrinksSet(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	resolver := NewResolver(repo)

	grantDirect(t, repo, 42, RoleMember)
	grantDirect(t, repo, 42, RoleFacilitator)

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.ActiveAssignment(ctx, 42, 2)
		if err != nil {
			return err
		}
		return tx.DeactivateAssignment(ctx, existing.ID)
	})
	require.NoError(t, err)

	snapshot, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []string{shared.PermCirclesView, shared.PermMeetingsView}, snapshot.PermissionKeys())
	assert.False(t, snapshot.HasPermission(shared.PermCirclesManage))
	assert.Equal(t, PriorityMember, snapshot.HighestPriority)
}

func TestResolveMissingRoleDefinitionFailsLoudly(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	resolver := NewResolver(repo)

	grantDirect(t, repo, 42, RoleMember)
	repo.roles = repo.roles[1:] // drop Member definition after assignment exists

	_, err := resolver.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestResolveRefreshesStaleDefinitionCache(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	resolver := NewResolver(repo)

	grantDirect(t, repo, 42, RoleMember)
	_, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)

	// A role created after the cache was filled must be picked up on demand.
	repo.roles = append(repo.roles, Role{
		ID: 7, Name: "Treasurer", Priority: 25,
		Permissions: []string{shared.PermPaymentsView},
	})
	grantDirect(t, repo, 42, "Treasurer")

	snapshot, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, snapshot.HasPermission(shared.PermPaymentsView))
	assert.Equal(t, 25, snapshot.HighestPriority)
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	resolver := NewResolver(repo)

	repo.activeError = errors.New("connection reset")
	_, err := resolver.Resolve(context.Background(), 42)
	require.Error(t, err)
}

func TestRolePriority(t *testing.T) {
	repo := newMockRepository(testRoles()...)
	resolver := NewResolver(repo)

	p, err := resolver.RolePriority(context.Background(), RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, PriorityAdmin, p)

	_, err = resolver.RolePriority(context.Background(), "Superuser")
	assert.ErrorIs(t, err, ErrRoleNotFound)
}
