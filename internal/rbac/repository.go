package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rounds-hq/rounds/internal/audit"
	"github.com/rounds-hq/rounds/internal/platform/db"
)

// ErrDuplicateActive indicates a concurrent grant lost the race against the
// partial unique index on active (principal, role) pairs.
var ErrDuplicateActive = errors.New("rbac: duplicate active assignment")

const activeAssignmentConstraint = "uq_role_assignments_active"

// Repository defines read and transactional access for the RBAC store.
type Repository interface {
	Roles(ctx context.Context) ([]Role, error)
	RoleByName(ctx context.Context, name string) (Role, error)
	Permissions(ctx context.Context) ([]Permission, error)
	ActiveAssignments(ctx context.Context, principalID int64) ([]Assignment, error)
	Assignments(ctx context.Context, principalID int64) ([]Assignment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutation surface available inside a transaction.
// Audit writes share the transaction so a failed audit write aborts the
// mutation it documents.
type TxRepository interface {
	ActiveAssignment(ctx context.Context, principalID, roleID int64) (*Assignment, error)
	InsertAssignment(ctx context.Context, principalID, roleID int64, assignedBy *int64, isPrimary bool) (Assignment, error)
	DeactivateAssignment(ctx context.Context, assignmentID int64) error
	ClearPrimary(ctx context.Context, principalID int64) error
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool     *pgxpool.Pool
	recorder audit.Recorder
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Roles returns all roles with their permission keys loaded, ordered by
// priority.
func (r *PGRepository) Roles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, priority, is_system, created_at, updated_at
		FROM roles ORDER BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	index := make(map[int64]int)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Priority, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		index[role.ID] = len(roles)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	permRows, err := r.pool.Query(ctx, `
		SELECT rp.role_id, p.key
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		ORDER BY p.key`)
	if err != nil {
		return nil, err
	}
	defer permRows.Close()
	for permRows.Next() {
		var roleID int64
		var key string
		if err := permRows.Scan(&roleID, &key); err != nil {
			return nil, err
		}
		if i, ok := index[roleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, key)
		}
	}
	if err := permRows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleByName fetches a single role with permissions. Returns ErrRoleNotFound
// for unknown names.
func (r *PGRepository) RoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, priority, is_system, created_at, updated_at
		FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.Description, &role.Priority, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT p.key FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1 ORDER BY p.key`, role.ID)
	if err != nil {
		return Role{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return Role{}, err
		}
		role.Permissions = append(role.Permissions, key)
	}
	if err := rows.Err(); err != nil {
		return Role{}, err
	}
	return role, nil
}

// Permissions returns the full catalog ordered by key.
func (r *PGRepository) Permissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, key, description FROM permissions ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// ActiveAssignments returns the principal's active assignments with role
// names denormalized for display.
func (r *PGRepository) ActiveAssignments(ctx context.Context, principalID int64) ([]Assignment, error) {
	return r.assignments(ctx, principalID, true)
}

// Assignments returns the principal's full assignment history, active and
// revoked.
func (r *PGRepository) Assignments(ctx context.Context, principalID int64) ([]Assignment, error) {
	return r.assignments(ctx, principalID, false)
}

func (r *PGRepository) assignments(ctx context.Context, principalID int64, activeOnly bool) ([]Assignment, error) {
	query := `
		SELECT a.id, a.principal_id, a.role_id, r.name, a.is_primary, a.assigned_by, a.assigned_at, a.is_active
		FROM role_assignments a
		JOIN roles r ON r.id = a.role_id
		WHERE a.principal_id = $1`
	if activeOnly {
		query += ` AND a.is_active`
	}
	query += ` ORDER BY a.assigned_at DESC, a.id DESC`

	rows, err := r.pool.Query(ctx, query, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.PrincipalID, &a.RoleID, &a.RoleName, &a.IsPrimary, &a.AssignedBy, &a.AssignedAt, &a.IsActive); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// WithTx runs fn inside a RepeatableRead transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx, recorder: r.recorder})
	})
}

type pgTxRepository struct {
	tx       pgx.Tx
	recorder audit.Recorder
}

func (t *pgTxRepository) ActiveAssignment(ctx context.Context, principalID, roleID int64) (*Assignment, error) {
	var a Assignment
	err := t.tx.QueryRow(ctx, `
		SELECT a.id, a.principal_id, a.role_id, r.name, a.is_primary, a.assigned_by, a.assigned_at, a.is_active
		FROM role_assignments a
		JOIN roles r ON r.id = a.role_id
		WHERE a.principal_id = $1 AND a.role_id = $2 AND a.is_active`, principalID, roleID).
		Scan(&a.ID, &a.PrincipalID, &a.RoleID, &a.RoleName, &a.IsPrimary, &a.AssignedBy, &a.AssignedAt, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (t *pgTxRepository) InsertAssignment(ctx context.Context, principalID, roleID int64, assignedBy *int64, isPrimary bool) (Assignment, error) {
	var a Assignment
	err := t.tx.QueryRow(ctx, `
		INSERT INTO role_assignments (principal_id, role_id, is_primary, assigned_by, assigned_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, principal_id, role_id, is_primary, assigned_by, assigned_at, is_active`,
		principalID, roleID, isPrimary, assignedBy, time.Now().UTC()).
		Scan(&a.ID, &a.PrincipalID, &a.RoleID, &a.IsPrimary, &a.AssignedBy, &a.AssignedAt, &a.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == activeAssignmentConstraint {
			return Assignment{}, ErrDuplicateActive
		}
		return Assignment{}, fmt.Errorf("rbac: insert assignment: %w", err)
	}
	return a, nil
}

func (t *pgTxRepository) DeactivateAssignment(ctx context.Context, assignmentID int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE role_assignments SET is_active = FALSE, is_primary = FALSE, revoked_at = $2
		WHERE id = $1 AND is_active`, assignmentID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rbac: deactivate assignment %d: %w", assignmentID, ErrIntegrity)
	}
	return nil
}

func (t *pgTxRepository) ClearPrimary(ctx context.Context, principalID int64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE role_assignments SET is_primary = FALSE
		WHERE principal_id = $1 AND is_active AND is_primary`, principalID)
	return err
}

func (t *pgTxRepository) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, t.tx, entry)
}

var _ Repository = (*PGRepository)(nil)
