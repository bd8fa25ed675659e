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

	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/observability"
)

const userColumns = `id, email, password_hash, name, role, manager_id, vacation_days, used_days, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.ManagerID,
		&u.VacationDays,
		&u.UsedDays,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := r.observe("users.get_by_id", func() error {
		var serr error
		u, serr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return serr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := r.observe("users.get_by_email", func() error {
		var serr error
		u, serr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
		return serr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) List(ctx context.Context, f user.ListUsersFilter) ([]user.User, error) {
	baseQuery := `SELECT ` + userColumns + ` FROM users`

	var conds []string
	var args []interface{}
	argsPosition := 1

	if f.IDs != nil {
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", argsPosition))
		args = append(args, f.IDs)
		argsPosition++
	}

	if f.ManagerID != nil {
		conds = append(conds, fmt.Sprintf("manager_id = $%d", argsPosition))
		args = append(args, *f.ManagerID)
		argsPosition++
	}

	query := baseQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	var rows pgx.Rows
	err := r.observe("users.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0)
	for rows.Next() {
		u, serr := scanUser(rows)
		if serr != nil {
			return nil, serr
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.ManagerID, u.VacationDays, u.UsedDays, u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	var u user.User
	err := r.observe("users.update", func() error {
		var serr error
		u, serr = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
				SET name          = COALESCE($2, name),
					role          = COALESCE($3, role),
					manager_id    = COALESCE($4, manager_id),
					vacation_days = COALESCE($5, vacation_days),
					updated_at    = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, req.Name, req.Role, req.ManagerID, req.VacationDays,
		))
		return serr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// Delete removes the user and their leave requests in one transaction.
// Direct reports survive with manager_id cleared, so deleting a manager
// cannot trip the self-referencing FK.
func (r *UsersRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = r.observe("users.delete.detach_reports", func() error {
		_, e := tx.Exec(ctx, `UPDATE users SET manager_id = NULL, updated_at = NOW() WHERE manager_id = $1`, id)
		return e
	})
	if err != nil {
		return err
	}

	err = r.observe("users.delete.cascade_leaves", func() error {
		_, e := tx.Exec(ctx, `DELETE FROM leaves WHERE user_id = $1`, id)
		return e
	})
	if err != nil {
		return err
	}

	var tag pgconn.CommandTag
	err = r.observe("users.delete", func() error {
		var e error
		tag, e = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return tx.Commit(ctx)
}

// AddUsedDays bumps the ledger outside a decision path (admin corrections).
// Clamped at zero on the way down.
func (r *UsersRepo) AddUsedDays(ctx context.Context, id string, delta int) error {
	var tag pgconn.CommandTag
	err := r.observe("users.add_used_days", func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`UPDATE users
				SET used_days  = GREATEST(used_days + $2, 0),
					updated_at = $3
			WHERE id = $1`,
			id, delta, time.Now().UTC(),
		)
		return e
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
