package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/repository"
)

var userCols = []string{"id", "username", "email", "role", "manager_id", "created_at"}

func TestUserPostgres_FindByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("user with manager", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserPostgres(db)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow("user-1", "alice", "alice@example.com", "User", "mgr-1", now))

		u, err := repo.FindByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, u.Role)
		require.NotNil(t, u.ManagerID)
		assert.Equal(t, "mgr-1", *u.ManagerID)
	})

	t.Run("manager without manager", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserPostgres(db)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs("mgr-1").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow("mgr-1", "bob", "bob@example.com", "Manager", nil, now))

		u, err := repo.FindByID(ctx, "mgr-1")
		require.NoError(t, err)
		assert.Equal(t, model.RoleManager, u.Role)
		assert.Nil(t, u.ManagerID)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserPostgres(db)

		mock.ExpectQuery("FROM users").WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestUserPostgres_Lists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserPostgres(db)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users WHERE manager_id = \\$1 ORDER BY username").
		WithArgs("mgr-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-1", "alice", "alice@example.com", "User", "mgr-1", now).
			AddRow("user-2", "carol", "carol@example.com", "User", "mgr-1", now))
	mock.ExpectQuery("FROM users WHERE manager_id IS NULL AND role = 'User'").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-3", "dave", "dave@example.com", "User", nil, now))

	team, err := repo.ListByManager(context.Background(), "mgr-1")
	require.NoError(t, err)
	assert.Len(t, team, 2)

	free, err := repo.ListUnassigned(context.Background())
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Nil(t, free[0].ManagerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_SetManager(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserPostgres(db)
	now := time.Now().UTC()
	mgr := "mgr-1"

	mock.ExpectQuery("UPDATE users SET manager_id = \\$2 WHERE id = \\$1").
		WithArgs("user-1", "mgr-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("user-1", "alice", "alice@example.com", "User", "mgr-1", now))
	mock.ExpectQuery("UPDATE users SET manager_id = \\$2 WHERE id = \\$1").
		WithArgs("user-1", nil).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("user-1", "alice", "alice@example.com", "User", nil, now))

	u, err := repo.SetManager(context.Background(), "user-1", &mgr)
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", *u.ManagerID)

	u, err = repo.SetManager(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Nil(t, u.ManagerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_CountByRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserPostgres(db)

	mock.ExpectQuery("SELECT role, COUNT\\(\\*\\) FROM users GROUP BY role").
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).
			AddRow("User", 7).
			AddRow("Manager", 2).
			AddRow("Admin", 1))

	counts, err := repo.CountByRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[model.Role]int{model.RoleUser: 7, model.RoleManager: 2, model.RoleAdmin: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	const qUpdate = "UPDATE users SET username = COALESCE\\(NULLIF\\(\\$2, ''\\), username\\), email = COALESCE\\(NULLIF\\(\\$3, ''\\), email\\) WHERE id = \\$1"

	t.Run("updates both fields", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserPostgres(db)

		mock.ExpectQuery(qUpdate).
			WithArgs("user-1", "alice2", "alice2@example.com").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow("user-1", "alice2", "alice2@example.com", "User", nil, now))

		u, err := repo.UpdateProfile(ctx, "user-1", "alice2", "alice2@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice2", u.Username)
		assert.Equal(t, "alice2@example.com", u.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{"username clash", &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, repository.ErrUsernameTaken},
		{"email clash", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, repository.ErrEmailTaken},
		{"missing user", sql.ErrNoRows, sql.ErrNoRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewUserPostgres(db)

			mock.ExpectQuery(qUpdate).WithArgs("user-1", "bob", "").WillReturnError(tt.dbErr)

			_, err := repo.UpdateProfile(ctx, "user-1", "bob", "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("other constraint passes through", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserPostgres(db)
		pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "users_check"}

		mock.ExpectQuery(qUpdate).WithArgs("user-1", "bob", "").WillReturnError(pgErr)

		_, err := repo.UpdateProfile(ctx, "user-1", "bob", "")
		assert.Same(t, pgErr, err)
	})
}
