package rbac

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogKeysAreWellFormedAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for _, perm := range Catalog() {
		parts := strings.Split(perm.Key, ":")
		require.Len(t, parts, 2, "key %q must be resource:action", perm.Key)
		assert.NotEmpty(t, parts[0])
		assert.NotEmpty(t, parts[1])
		assert.NotEmpty(t, perm.Description, "key %q needs a description", perm.Key)

		_, dup := seen[perm.Key]
		require.False(t, dup, "duplicate catalog key %q", perm.Key)
		seen[perm.Key] = struct{}{}
	}
	assert.NotEmpty(t, seen)
}

func TestSystemRolePrioritiesStrictlyIncrease(t *testing.T) {
	roles := SystemRoles()
	require.Len(t, roles, 6)

	prev := 0
	for _, role := range roles {
		assert.Greater(t, role.Priority, prev, "role %s", role.Name)
		prev = role.Priority
	}
	assert.Equal(t, RoleMember, roles[0].Name)
	assert.Equal(t, RoleAdmin, roles[len(roles)-1].Name)
}

func TestSystemRolePermissionsExistInCatalog(t *testing.T) {
	catalog := make(map[string]struct{})
	for _, perm := range Catalog() {
		catalog[perm.Key] = struct{}{}
	}

	for _, role := range SystemRoles() {
		require.NotEmpty(t, role.Permissions, "role %s", role.Name)
		seen := make(map[string]struct{})
		for _, key := range role.Permissions {
			_, ok := catalog[key]
			assert.True(t, ok, "role %s references unknown key %q", role.Name, key)
			_, dup := seen[key]
			assert.False(t, dup, "role %s lists %q twice", role.Name, key)
			seen[key] = struct{}{}
		}
	}
}

func TestAdminHoldsFullCatalog(t *testing.T) {
	var admin RoleSeed
	for _, role := range SystemRoles() {
		if role.Name == RoleAdmin {
			admin = role
		}
	}
	require.Equal(t, RoleAdmin, admin.Name)
	assert.Len(t, admin.Permissions, len(Catalog()))
}
