package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartcare/heartcare/internal/platform/db"
	"github.com/heartcare/heartcare/pkg/apperr"
	"github.com/heartcare/heartcare/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// conn prefers the active transaction so audit rows commit with the
// mutation they describe.
func (r *pgRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *pgRepository) Insert(ctx context.Context, entry *Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_log (id, user_id, action, table_name, record_id,
			old_values, new_values, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.UserID, entry.Action, entry.TableName, entry.RecordID,
		entry.OldValues, entry.NewValues, entry.IPAddress, entry.UserAgent)
	if err != nil {
		return apperr.Storage("insert audit entry", err)
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context, filter Filter, p pagination.Params) ([]Entry, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	if filter.Action != "" {
		where = append(where, fmt.Sprintf("a.action = $%d", idx))
		args = append(args, filter.Action)
		idx++
	}
	if filter.TableName != "" {
		where = append(where, fmt.Sprintf("a.table_name = $%d", idx))
		args = append(args, filter.TableName)
		idx++
	}
	if filter.UserID != nil {
		where = append(where, fmt.Sprintf("a.user_id = $%d", idx))
		args = append(args, *filter.UserID)
		idx++
	}

	cond := strings.Join(where, " AND ")

	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM audit_log a WHERE %s", cond)
	if err := r.conn(ctx).QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count audit entries", err)
	}

	listSQL := fmt.Sprintf(`
		SELECT a.id, a.user_id, a.action, a.table_name, a.record_id,
			a.old_values, a.new_values, a.ip_address, a.user_agent,
			a.created_at, COALESCE(u.username, '')
		FROM audit_log a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE %s
		ORDER BY a.created_at DESC
		LIMIT $%d OFFSET $%d`, cond, idx, idx+1)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.conn(ctx).Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, apperr.Storage("list audit entries", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, p.PerPage)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TableName, &e.RecordID,
			&e.OldValues, &e.NewValues, &e.IPAddress, &e.UserAgent,
			&e.CreatedAt, &e.Username); err != nil {
			return nil, 0, apperr.Storage("scan audit entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("iterate audit entries", err)
	}
	return entries, total, nil
}
