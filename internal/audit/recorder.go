package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so
// a record can share the transaction of the mutation it documents.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder appends entries to the audit_log table. Entries are write-once;
// there is no update or delete path.
type Recorder struct{}

// Record inserts the entry. Callers performing a role mutation must pass
// the mutation's transaction so a failed audit write aborts the mutation.
func (Recorder) Record(ctx context.Context, db DBTX, e Entry) error {
	if e.Action == "" || e.RoleName == "" {
		return errors.New("audit: entry requires action and role name")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, target_principal_id, action, role_name, details, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ActorID, e.TargetPrincipalID, string(e.Action), e.RoleName, e.Details, at)
	return err
}
