package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/observability"
)

const leaveColumns = `id, user_id, type, date_from, date_to, comment, status, manager_id, manager_decision_at, admin_id, admin_decision_at, created_at, updated_at`

type LeavesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewLeavesRepo(pool *pgxpool.Pool, prom *observability.Prom) *LeavesRepo {
	return &LeavesRepo{pool: pool, prom: prom}
}

func (r *LeavesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanLeave(row pgx.Row) (leave.LeaveRequest, error) {
	var rec leave.LeaveRequest
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Type,
		&rec.From,
		&rec.To,
		&rec.Comment,
		&rec.Status,
		&rec.ManagerID,
		&rec.ManagerDecisionAt,
		&rec.AdminID,
		&rec.AdminDecisionAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func (r *LeavesRepo) Insert(ctx context.Context, rec leave.LeaveRequest) (leave.LeaveRequest, error) {
	err := r.observe("leaves.insert", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO leaves (id, user_id, type, date_from, date_to, comment, status, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			rec.ID, rec.UserID, rec.Type, rec.From, rec.To, rec.Comment, rec.Status, rec.CreatedAt, rec.UpdatedAt,
		)
		return e
	})
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	return rec, nil
}

func (r *LeavesRepo) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	var rec leave.LeaveRequest
	err := r.observe("leaves.get_by_id", func() error {
		var serr error
		rec, serr = scanLeave(r.pool.QueryRow(ctx,
			`SELECT `+leaveColumns+` FROM leaves WHERE id = $1`, id))
		return serr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrNotFound
		}
		return leave.LeaveRequest{}, err
	}
	return rec, nil
}

func (r *LeavesRepo) List(ctx context.Context, f leave.ListLeavesFilter) ([]leave.LeaveRequest, error) {
	baseQuery := `SELECT ` + leaveColumns + ` FROM leaves`

	var conds []string
	var args []interface{}
	argsPosition := 1

	if f.UserIDs != nil {
		conds = append(conds, fmt.Sprintf("user_id = ANY($%d)", argsPosition))
		args = append(args, f.UserIDs)
		argsPosition++
	}

	if f.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, *f.Status)
		argsPosition++
	}

	query := baseQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering
	query += " ORDER BY created_at DESC, id ASC"

	var rows pgx.Rows
	err := r.observe("leaves.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]leave.LeaveRequest, 0)
	for rows.Next() {
		rec, serr := scanLeave(rows)
		if serr != nil {
			return nil, serr
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

// Update patches a request only while it is still submitted; the status guard
// in the WHERE clause doubles as the race protection against a concurrent
// decision.
func (r *LeavesRepo) Update(ctx context.Context, id string, req leave.UpdateLeaveRequest) (leave.LeaveRequest, error) {
	var rec leave.LeaveRequest
	err := r.observe("leaves.update", func() error {
		var serr error
		rec, serr = scanLeave(r.pool.QueryRow(ctx,
			`UPDATE leaves
				SET type       = COALESCE($2, type),
					date_from  = COALESCE($3, date_from),
					date_to    = COALESCE($4, date_to),
					comment    = COALESCE($5, comment),
					updated_at = NOW()
			WHERE id = $1 AND status = $6
			RETURNING `+leaveColumns,
			id, req.Type, req.From, req.To, req.Comment, leave.StatusSubmitted,
		))
		return serr
	})

	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return leave.LeaveRequest{}, err
	}

	// 0 rows: either gone or no longer submitted
	current, gerr := r.GetByID(ctx, id)
	if gerr != nil {
		return leave.LeaveRequest{}, gerr
	}
	return leave.LeaveRequest{}, fmt.Errorf("%w: request is %s", leave.ErrInvalidTransition, current.Status)
}

func (r *LeavesRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := r.observe("leaves.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM leaves WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrNotFound
	}
	return nil
}

// ApplyDecision flips the status and books the ledger delta in one
// transaction. The status value in the WHERE clause is the compare-and-swap
// guard: when a concurrent decision already applied, zero rows match and the
// caller gets ErrInvalidTransition, never a double ledger charge.
func (r *LeavesRepo) ApplyDecision(ctx context.Context, d leave.Decision) (rec leave.LeaveRequest, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `UPDATE leaves
				SET status              = $3,
					manager_id          = $4,
					manager_decision_at = $5,
					updated_at          = NOW()
			WHERE id = $1 AND status = $2
			RETURNING ` + leaveColumns
	if d.Stage == leave.StageAdmin {
		query = `UPDATE leaves
				SET status            = $3,
					admin_id          = $4,
					admin_decision_at = $5,
					updated_at        = NOW()
			WHERE id = $1 AND status = $2
			RETURNING ` + leaveColumns
	}

	err = r.observe("leaves.apply_decision", func() error {
		var serr error
		rec, serr = scanLeave(tx.QueryRow(ctx, query,
			d.RequestID, d.ExpectedStatus, d.Target, d.ActorID, d.DecidedAt,
		))
		return serr
	})

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return
		}

		// lost the race or the id is gone; report which
		current, gerr := r.GetByID(ctx, d.RequestID)
		if gerr != nil {
			err = gerr
			return
		}
		err = fmt.Errorf("%w: request is already %s", leave.ErrInvalidTransition, current.Status)
		return
	}

	if d.LedgerDays != 0 {
		err = r.observe("leaves.apply_decision.ledger", func() error {
			_, e := tx.Exec(ctx,
				`UPDATE users
					SET used_days  = GREATEST(used_days + $2, 0),
						updated_at = $3
				WHERE id = $1`,
				rec.UserID, d.LedgerDays, time.Now().UTC(),
			)
			return e
		})
		if err != nil {
			return
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	return rec, nil
}
