package rbac

import (
	"errors"
	"sort"
	"time"
)

// Permission represents an atomic capability identified by a
// "resource:action" key.
type Permission struct {
	ID          int64
	Key         string
	Description string
}

// Role represents a named, prioritized bundle of permissions. Higher
// priority means more senior; system role priorities are fixed at seed time.
type Role struct {
	ID          int64
	Name        string
	Description string
	Priority    int
	IsSystem    bool
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assignment links a principal to a role. Assignments are never hard
// deleted; revocation flips IsActive and a later re-grant creates a fresh
// record.
type Assignment struct {
	ID          int64
	PrincipalID int64
	RoleID      int64
	RoleName    string
	IsPrimary   bool
	AssignedBy  *int64
	AssignedAt  time.Time
	IsActive    bool
}

// RoleRef is a lightweight reference to a held role.
type RoleRef struct {
	Name     string
	Priority int
}

// Snapshot is the resolved authorization state of a principal: the union of
// all permissions across active role assignments plus the highest held
// priority. A principal with no active assignments has an empty permission
// set and HighestPriority zero.
type Snapshot struct {
	PrincipalID     int64
	Permissions     map[string]struct{}
	Roles           []RoleRef
	HighestPriority int
}

// HasPermission reports whether the snapshot contains the permission key.
func (s Snapshot) HasPermission(key string) bool {
	_, ok := s.Permissions[key]
	return ok
}

// HasRole reports whether the snapshot holds a role with the given name.
func (s Snapshot) HasRole(name string) bool {
	for _, role := range s.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// PermissionKeys returns the resolved permission keys in sorted order.
func (s Snapshot) PermissionKeys() []string {
	keys := make([]string, 0, len(s.Permissions))
	for key := range s.Permissions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RoleNames returns the names of all held roles.
func (s Snapshot) RoleNames() []string {
	names := make([]string, 0, len(s.Roles))
	for _, role := range s.Roles {
		names = append(names, role.Name)
	}
	return names
}

// DenyReason is the machine-readable cause attached to a denied check.
type DenyReason string

// Deny reasons surfaced to callers for logging and telemetry.
const (
	ReasonMissingPermission DenyReason = "MISSING_PERMISSION"
	ReasonMissingRole       DenyReason = "MISSING_ROLE"
	ReasonBelowMinimumLevel DenyReason = "BELOW_MINIMUM_LEVEL"
	ReasonCustomCheckFailed DenyReason = "CUSTOM_CHECK_FAILED"
)

// Decision is the outcome of an authorization check. Denies are ordinary
// values, never errors; errors are reserved for store failures and
// integrity violations.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

var (
	// ErrRoleNotFound indicates the caller referenced an unknown role name.
	ErrRoleNotFound = errors.New("rbac: role not found")
	// ErrNotAssigned indicates a context switch to a role the principal
	// does not actively hold.
	ErrNotAssigned = errors.New("rbac: role not assigned to principal")
	// ErrIntegrity indicates corrupted state, e.g. an active assignment
	// referencing a missing role.
	ErrIntegrity = errors.New("rbac: integrity violation")
	// ErrSeedMissing indicates the permission catalog or system roles have
	// not been loaded. Startup must treat this as fatal.
	ErrSeedMissing = errors.New("rbac: seed data missing")
)
