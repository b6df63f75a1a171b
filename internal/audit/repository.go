package audit

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit_log rows from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// HistoryWindow returns a reverse-chronological slice of entries.
func (r *PGRepository) HistoryWindow(ctx context.Context, targetPrincipalID int64, filters HistoryFilters, limit, offset int) ([]Entry, error) {
	query, args := historyQuery(targetPrincipalID, filters)
	args = append(args, limit, offset)
	query += ` LIMIT $` + argn(len(args)-1) + ` OFFSET $` + argn(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// HistoryAll returns the full filtered history without paging.
func (r *PGRepository) HistoryAll(ctx context.Context, targetPrincipalID int64, filters HistoryFilters) ([]Entry, error) {
	query, args := historyQuery(targetPrincipalID, filters)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func historyQuery(targetPrincipalID int64, filters HistoryFilters) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, actor_id, target_principal_id, action, role_name, details, occurred_at
		FROM audit_log WHERE target_principal_id = $1`)
	args := []any{targetPrincipalID}
	if !filters.Since.IsZero() {
		args = append(args, filters.Since)
		sb.WriteString(` AND occurred_at >= $` + argn(len(args)))
	}
	if !filters.Until.IsZero() {
		args = append(args, filters.Until)
		sb.WriteString(` AND occurred_at <= $` + argn(len(args)))
	}
	sb.WriteString(` ORDER BY occurred_at DESC, id DESC`)
	return sb.String(), args
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.TargetPrincipalID, &action, &e.RoleName, &e.Details, &e.At); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func argn(n int) string {
	return strconv.Itoa(n)
}
