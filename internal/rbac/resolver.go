package rbac

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Resolver computes a principal's effective authorization state by unioning
// the permission sets of all actively assigned roles. Resolution is a pure
// read against latest committed state; no linearizability with concurrent
// grants is promised.
type Resolver struct {
	repo Repository

	mu     sync.RWMutex
	byID   map[int64]Role
	loaded bool
	group  singleflight.Group
}

// NewResolver constructs a Resolver. Role definitions are cached after the
// first load; Invalidate must be called after any role definition change.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the snapshot for the principal. Unknown principals and
// principals without active assignments resolve to an empty snapshot, not an
// error. An active assignment referencing a missing role is an integrity
// violation and fails loudly.
func (r *Resolver) Resolve(ctx context.Context, principalID int64) (Snapshot, error) {
	snapshot := Snapshot{
		PrincipalID: principalID,
		Permissions: make(map[string]struct{}),
	}

	assignments, err := r.repo.ActiveAssignments(ctx, principalID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rbac: resolve %d: %w", principalID, err)
	}
	if len(assignments) == 0 {
		return snapshot, nil
	}

	definitions, err := r.definitions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rbac: resolve %d: %w", principalID, err)
	}

	for _, assignment := range assignments {
		role, ok := definitions[assignment.RoleID]
		if !ok {
			// The cache may predate a newly created role; retry once with
			// fresh definitions before declaring corruption.
			r.Invalidate()
			if definitions, err = r.definitions(ctx); err != nil {
				return Snapshot{}, fmt.Errorf("rbac: resolve %d: %w", principalID, err)
			}
			if role, ok = definitions[assignment.RoleID]; !ok {
				return Snapshot{}, fmt.Errorf("rbac: assignment %d references missing role %d: %w",
					assignment.ID, assignment.RoleID, ErrIntegrity)
			}
		}
		for _, key := range role.Permissions {
			snapshot.Permissions[key] = struct{}{}
		}
		snapshot.Roles = append(snapshot.Roles, RoleRef{Name: role.Name, Priority: role.Priority})
		if role.Priority > snapshot.HighestPriority {
			snapshot.HighestPriority = role.Priority
		}
	}
	return snapshot, nil
}

// RolePriority returns the priority of a role by name.
func (r *Resolver) RolePriority(ctx context.Context, name string) (int, error) {
	definitions, err := r.definitions(ctx)
	if err != nil {
		return 0, err
	}
	for _, role := range definitions {
		if role.Name == name {
			return role.Priority, nil
		}
	}
	return 0, ErrRoleNotFound
}

// Invalidate drops the cached role definitions.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.byID = nil
	r.loaded = false
	r.mu.Unlock()
}

// definitions returns all role definitions keyed by id, filling the cache on
// first use. Concurrent fills are deduplicated.
func (r *Resolver) definitions(ctx context.Context) (map[int64]Role, error) {
	r.mu.RLock()
	if r.loaded {
		cached := r.byID
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.group.Do("roles", func() (any, error) {
		roles, err := r.repo.Roles(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[int64]Role, len(roles))
		for _, role := range roles {
			byID[role.ID] = role
		}
		r.mu.Lock()
		r.byID = byID
		r.loaded = true
		r.mu.Unlock()
		return byID, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[int64]Role), nil
}
