package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

const (
	userColumns = `id, username, email, role, manager_id, created_at`

	qFindUser       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	qListByManager  = `SELECT ` + userColumns + ` FROM users WHERE manager_id = $1 ORDER BY username`
	qListUnassigned = `SELECT ` + userColumns + ` FROM users WHERE manager_id IS NULL AND role = 'User' ORDER BY username`
	qSetManager     = `UPDATE users SET manager_id = $2 WHERE id = $1 RETURNING ` + userColumns
	qCountByRole    = `SELECT role, COUNT(*) FROM users GROUP BY role`
	qUpdateProfile  = `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
		    email = COALESCE(NULLIF($3, ''), email)
		WHERE id = $1
		RETURNING ` + userColumns
)

// Unique constraint names PostgreSQL generates for the users table.
const (
	uniqueViolation    = "23505"
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u       model.User
		manager sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &manager, &u.CreatedAt); err != nil {
		return nil, err
	}
	if manager.Valid {
		u.ManagerID = &manager.String
	}
	return &u, nil
}

func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, qFindUser, id))
}

func (r *UserPostgres) ListByManager(ctx context.Context, managerID string) ([]model.User, error) {
	return r.list(ctx, qListByManager, managerID)
}

func (r *UserPostgres) ListUnassigned(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, qListUnassigned)
}

func (r *UserPostgres) list(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SetManager assigns managerID, or clears the assignment when it is nil.
func (r *UserPostgres) SetManager(ctx context.Context, userID string, managerID *string) (*model.User, error) {
	var arg any
	if managerID != nil {
		arg = *managerID
	}
	return scanUser(r.db.QueryRowContext(ctx, qSetManager, userID, arg))
}

func (r *UserPostgres) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := r.db.QueryContext(ctx, qCountByRole)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.Role]int)
	for rows.Next() {
		var (
			role model.Role
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserPostgres) UpdateProfile(ctx context.Context, id, username, email string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, qUpdateProfile, id, username, email))
	if err != nil {
		return nil, uniqueError(err)
	}
	return u, nil
}

func uniqueError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return repository.ErrUsernameTaken
	case emailConstraint:
		return repository.ErrEmailTaken
	}
	return err
}
