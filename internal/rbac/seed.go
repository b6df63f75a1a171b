package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rounds-hq/rounds/internal/platform/db"
)

// Seeder loads the permission catalog and the system roles. Seed data must
// be present before any authorization check runs; Verify enforces that at
// startup.
type Seeder struct {
	pool *pgxpool.Pool
}

// NewSeeder constructs a Seeder.
func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

// Apply upserts the catalog, the six system roles, and their permission
// links. It is idempotent and safe to run on every deploy.
func (s *Seeder) Apply(ctx context.Context) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		permIDs := make(map[string]int64)
		for _, perm := range Catalog() {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO permissions (key, description)
				VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET description = EXCLUDED.description
				RETURNING id`, perm.Key, perm.Description).Scan(&id)
			if err != nil {
				return fmt.Errorf("rbac: seed permission %s: %w", perm.Key, err)
			}
			permIDs[perm.Key] = id
		}

		for _, role := range SystemRoles() {
			var roleID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO roles (name, description, priority, is_system)
				VALUES ($1, $2, $3, TRUE)
				ON CONFLICT (name) DO UPDATE
					SET description = EXCLUDED.description, priority = EXCLUDED.priority, updated_at = NOW()
				RETURNING id`, role.Name, role.Description, role.Priority).Scan(&roleID)
			if err != nil {
				return fmt.Errorf("rbac: seed role %s: %w", role.Name, err)
			}
			for _, key := range role.Permissions {
				permID, ok := permIDs[key]
				if !ok {
					return fmt.Errorf("rbac: role %s references unknown permission %s", role.Name, key)
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO role_permissions (role_id, permission_id)
					VALUES ($1, $2)
					ON CONFLICT DO NOTHING`, roleID, permID); err != nil {
					return fmt.Errorf("rbac: link %s to %s: %w", role.Name, key, err)
				}
			}
		}
		return nil
	})
}

// Verify confirms the catalog and all system roles are loaded. Absence of
// seed data is a startup-time fatal condition, not a runtime deny.
func (s *Seeder) Verify(ctx context.Context) error {
	var permCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions`).Scan(&permCount); err != nil {
		return fmt.Errorf("rbac: verify permissions: %w", err)
	}
	if permCount == 0 {
		return fmt.Errorf("permission catalog empty: %w", ErrSeedMissing)
	}

	for _, role := range SystemRoles() {
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1 AND is_system)`, role.Name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("rbac: verify role %s: %w", role.Name, err)
		}
		if !exists {
			return fmt.Errorf("system role %s absent: %w", role.Name, ErrSeedMissing)
		}
	}
	return nil
}
