package rbac

import (
	"context"
	"errors"
)

// Checker is the enforcement surface. Every check is deny-by-default: a
// missing permission, role, or priority level is an ordinary deny, and a
// principal with no active assignments is denied everything without error.
// Errors are returned only for store failures, in which case callers must
// fail closed.
type Checker struct {
	resolver *Resolver
}

// NewChecker constructs a Checker over a resolver.
func NewChecker(resolver *Resolver) *Checker {
	return &Checker{resolver: resolver}
}

// HasPermission tests membership of one permission key in the resolved set.
// Unknown keys are simply not granted; typos fail closed.
func (c *Checker) HasPermission(ctx context.Context, principalID int64, key string) (Decision, error) {
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonMissingPermission), err
	}
	if snapshot.HasPermission(key) {
		return Allow, nil
	}
	return deny(ReasonMissingPermission), nil
}

// HasAnyPermission allows when the resolved set intersects keys.
func (c *Checker) HasAnyPermission(ctx context.Context, principalID int64, keys ...string) (Decision, error) {
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonMissingPermission), err
	}
	for _, key := range keys {
		if snapshot.HasPermission(key) {
			return Allow, nil
		}
	}
	return deny(ReasonMissingPermission), nil
}

// HasAllPermissions allows only when every key is in the resolved set.
func (c *Checker) HasAllPermissions(ctx context.Context, principalID int64, keys ...string) (Decision, error) {
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonMissingPermission), err
	}
	for _, key := range keys {
		if !snapshot.HasPermission(key) {
			return deny(ReasonMissingPermission), nil
		}
	}
	return Allow, nil
}

// HasRole allows when any active assignment references the role name.
func (c *Checker) HasRole(ctx context.Context, principalID int64, name string) (Decision, error) {
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonMissingRole), err
	}
	if snapshot.HasRole(name) {
		return Allow, nil
	}
	return deny(ReasonMissingRole), nil
}

// HasAnyRole allows when at least one of the names is actively held.
func (c *Checker) HasAnyRole(ctx context.Context, principalID int64, names ...string) (Decision, error) {
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonMissingRole), err
	}
	for _, name := range names {
		if snapshot.HasRole(name) {
			return Allow, nil
		}
	}
	return deny(ReasonMissingRole), nil
}

// HasAllRoles allows only when every name is actively held.
func (c *Checker) HasAllRoles(ctx context.Context, principalID int64, names ...string) (Decision, error) {
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonMissingRole), err
	}
	for _, name := range names {
		if !snapshot.HasRole(name) {
			return deny(ReasonMissingRole), nil
		}
	}
	return Allow, nil
}

// MeetsMinimumRoleLevel allows when the principal's highest held priority is
// at least the named role's priority, so "at least Facilitator" checks do
// not have to enumerate every senior role. An unknown role name denies
// rather than erroring.
func (c *Checker) MeetsMinimumRoleLevel(ctx context.Context, principalID int64, roleName string) (Decision, error) {
	required, err := c.resolver.RolePriority(ctx, roleName)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return deny(ReasonBelowMinimumLevel), nil
		}
		return deny(ReasonBelowMinimumLevel), err
	}
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonBelowMinimumLevel), err
	}
	if snapshot.HighestPriority >= required {
		return Allow, nil
	}
	return deny(ReasonBelowMinimumLevel), nil
}

// CustomCheck evaluates an arbitrary predicate over a read-only snapshot of
// the principal's roles and permissions. Relationship checks such as
// "facilitator of this circle" belong to the caller; this subsystem only
// supplies the role and permission primitives the predicate can consult.
func (c *Checker) CustomCheck(ctx context.Context, principalID int64, predicate func(Snapshot) bool) (Decision, error) {
	snapshot, err := c.resolver.Resolve(ctx, principalID)
	if err != nil {
		return deny(ReasonCustomCheckFailed), err
	}
	if predicate != nil && predicate(snapshot) {
		return Allow, nil
	}
	return deny(ReasonCustomCheckFailed), nil
}
