package db

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// seedConn is the slice of pool behavior the seeder needs; *pgxpool.Pool
// satisfies it.
type seedConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureAdminUser creates the initial admin account from config if it does
// not exist yet. A partially configured admin (no password) is skipped, and
// so is any unique collision: an already-taken email or username means the
// seed has nothing to do, never that startup should fail.
func EnsureAdminUser(ctx context.Context, conn seedConn, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := strings.ToLower(cfg.AdminEmail)

	// check if the user exists

	var dummy int64

	err := conn.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

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

	_, err = conn.Exec(ctx,
		`INSERT INTO users (email, username, password_hash, is_active)
		 VALUES ($1,$2,$3,TRUE)`,
		email, cfg.AdminUsername, hash,
	)

	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil
	}

	return err
}
