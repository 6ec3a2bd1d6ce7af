package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"qfront/internal/domain"
)

// QueryHistoryRepo stores query history in SQLite.
type QueryHistoryRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewQueryHistoryRepo creates a repository writing through write and
// listing through read. Both may be the same pool.
func NewQueryHistoryRepo(write, read *sql.DB) *QueryHistoryRepo {
	return &QueryHistoryRepo{write: write, read: read}
}

var _ domain.QueryHistoryRepository = (*QueryHistoryRepo)(nil)

// Insert stores e and sets its ID. A zero CreatedAt is set to now.
func (r *QueryHistoryRepo) Insert(ctx context.Context, e *domain.QueryHistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	res, err := r.write.ExecContext(ctx, `
		INSERT INTO query_history (
			request_id, principal, source, original_sql, canonical_sql,
			statement_types, tables_accessed, status, error_message,
			duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Principal, e.Source, e.OriginalSQL, nullStr(e.CanonicalSQL),
		joinList(e.StatementTypes), joinList(e.TablesAccessed), e.Status, nullStr(e.ErrorMessage),
		e.DurationMs, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}
	e.ID = id
	return nil
}

// List returns a page of entries matching filter, newest first, together
// with the total number of matches.
func (r *QueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, int64, error) {
	where, args := buildHistoryWhere(filter)

	var total int64
	if err := r.read.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM query_history"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count query history: %w", err)
	}

	pageArgs := append(append([]any{}, args...), filter.Page.Limit(), filter.Page.Start())
	rows, err := r.read.QueryContext(ctx, `
		SELECT id, request_id, principal, source, original_sql, canonical_sql,
			statement_types, tables_accessed, status, error_message,
			duration_ms, created_at
		FROM query_history`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list query history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	entries := make([]domain.QueryHistoryEntry, 0, filter.Page.Limit())
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list query history: %w", err)
	}

	return entries, total, nil
}

// DeleteBefore removes entries created strictly before cutoff and returns
// how many were removed.
func (r *QueryHistoryRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.write.ExecContext(ctx,
		"DELETE FROM query_history WHERE created_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune query history: %w", err)
	}
	return res.RowsAffected()
}

func buildHistoryWhere(filter domain.QueryHistoryFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Principal != nil {
		conds = append(conds, "principal = ?")
		args = append(args, *filter.Principal)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, formatTime(*filter.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryEntry(row rowScanner) (domain.QueryHistoryEntry, error) {
	var (
		e                        domain.QueryHistoryEntry
		canonical, errMsg        sql.NullString
		stmtTypes, tables, stamp string
	)
	if err := row.Scan(&e.ID, &e.RequestID, &e.Principal, &e.Source, &e.OriginalSQL, &canonical,
		&stmtTypes, &tables, &e.Status, &errMsg, &e.DurationMs, &stamp); err != nil {
		return e, fmt.Errorf("scan query history: %w", err)
	}

	createdAt, err := parseTime(stamp)
	if err != nil {
		return e, fmt.Errorf("parse query history timestamp %q: %w", stamp, err)
	}

	e.CanonicalSQL = strPtr(canonical)
	e.ErrorMessage = strPtr(errMsg)
	e.StatementTypes = splitList(stmtTypes)
	e.TablesAccessed = splitList(tables)
	e.CreatedAt = createdAt
	return e, nil
}
