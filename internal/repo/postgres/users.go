package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// projection used by every read and RETURNING clause: the password hash is
// never part of it. Credentials go through GetPasswordHash only.
const userColumns = `id, email, username, first_name, last_name, avatar, is_active, created_at, updated_at`

// maps the API sort field onto its column.
var sortColumns = map[string]string{
	"id":        "id",
	"email":     "email",
	"username":  "username",
	"firstName": "first_name",
	"lastName":  "last_name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// mapUniqueViolation turns a 23505 into the matching storage signal by
// constraint name. The constraint names come from the users migration.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError

	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	switch pgErr.ConstraintName {
	case "users_email_key":
		return user.ErrEmailTaken
	case "users_username_key":
		return user.ErrUsernameTaken
	default:
		return err
	}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Avatar,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// Create inserts a new account. The unique constraints are the authoritative
// uniqueness guard; the service's pre-checks only give earlier feedback.
func (r *UsersRepo) Create(ctx context.Context, u user.User, passwordHash string) (user.User, error) {
	var created user.User

	err := r.observe("users.create", func() error {
		var scanErr error
		created, scanErr = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (email, username, first_name, last_name, avatar, password_hash, is_active, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 RETURNING `+userColumns,
			u.Email, u.Username, u.FirstName, u.LastName, u.Avatar, passwordHash, u.IsActive, u.CreatedAt, u.UpdatedAt,
		))
		return scanErr
	})

	if err != nil {
		return user.User{}, mapUniqueViolation(err)
	}

	return created, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return scanErr
	})

	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email))
		return scanErr
	})

	return u, err
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_username", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
		return scanErr
	})

	return u, err
}

// GetPasswordHash is the only read that touches the password column.
func (r *UsersRepo) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	var hash string

	err := r.observe("users.get_password_hash", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", user.ErrNotFound
		}

		return "", err
	}

	return hash, nil
}

// List returns one page plus the total count for the same filter. The count
// runs first so the metadata is consistent with the WHERE clause.
func (r *UsersRepo) List(ctx context.Context, p user.ListParams) ([]user.User, int, error) {
	where := ""
	args := []interface{}{}

	if p.Search != "" {
		where = ` WHERE email ILIKE $1 OR username ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1`
		args = append(args, "%"+p.Search+"%")
	}

	var total int

	err := r.observe("users.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total)
	})

	if err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[p.SortBy]

	if !ok {
		col = "created_at"
	}

	dir := "ASC"

	if p.SortOrder == user.SortOrderDesc {
		dir = "DESC"
	}

	// id tiebreak keeps pages stable when the sort key repeats
	query := fmt.Sprintf(
		`SELECT %s FROM users%s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		userColumns, where, col, dir, len(args)+1, len(args)+2,
	)

	args = append(args, p.Limit, p.Offset())

	var rows pgx.Rows

	err = r.observe("users.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	out := make([]user.User, 0, p.Limit)

	for rows.Next() {
		var u user.User

		scanErr := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Avatar, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)

		if scanErr != nil {
			return nil, 0, scanErr
		}

		out = append(out, u)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return out, total, nil
}

// Update applies a partial patch. updated_at is always refreshed, even when
// the patch is empty.
func (r *UsersRepo) Update(ctx context.Context, id int64, patch user.Patch) (user.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	pos := 2

	set := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, pos))
		args = append(args, val)
		pos++
	}

	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.Username != nil {
		set("username", *patch.Username)
	}
	if patch.FirstName != nil {
		set("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		set("last_name", *patch.LastName)
	}
	if patch.Avatar != nil {
		set("avatar", *patch.Avatar)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns

	var u user.User

	err := r.observe("users.update", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx, query, args...))
		return scanErr
	})

	if err != nil {
		return user.User{}, mapUniqueViolation(err)
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag

	err := r.observe("users.delete", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return execErr
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}
