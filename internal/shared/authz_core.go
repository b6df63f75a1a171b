package shared

// Core platform permissions.
const (
	PermUsersView       = "users:view"
	PermUsersCreate     = "users:create"
	PermUsersEdit       = "users:edit"
	PermUsersDeactivate = "users:deactivate"

	PermRolesView   = "roles:view"
	PermRolesAssign = "roles:assign"
	PermRolesRevoke = "roles:revoke"
	PermRolesEdit   = "roles:edit"

	PermPermissionsView = "permissions:view"

	PermAuditView   = "audit:view"
	PermAuditExport = "audit:export"

	PermSettingsView = "settings:view"
	PermSettingsEdit = "settings:edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermUsersDeactivate,
		PermRolesView,
		PermRolesAssign,
		PermRolesRevoke,
		PermRolesEdit,
		PermPermissionsView,
		PermAuditView,
		PermAuditExport,
		PermSettingsView,
		PermSettingsEdit,
	}
}
