package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pabloosss/Urlopy/internal/config"
	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/security"
)

// EnsureAdminUser creates the bootstrap admin account if it does not exist yet.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`, cfg.AdminEmail).Scan(&dummy)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Name:         cfg.AdminName,
		Role:         user.RoleAdmin,
		VacationDays: 26,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, manager_id, vacation_days, used_days, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.ManagerID, u.VacationDays, u.UsedDays, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
