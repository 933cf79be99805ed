package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/repository"
	repoMocks "docvault/internal/repository/mocks"
)

func TestProfileService_Me(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		users := new(repoMocks.MockUserRepository)
		users.On("FindByID", ctx, owner.ID).Return(&model.User{ID: owner.ID, Username: "olga"}, nil)

		u, err := NewProfileService(users, nil).Me(ctx, owner)

		require.NoError(t, err)
		assert.Equal(t, "olga", u.Username)
	})

	t.Run("deleted account", func(t *testing.T) {
		users := new(repoMocks.MockUserRepository)
		users.On("FindByID", ctx, owner.ID).Return(nil, sql.ErrNoRows)

		_, err := NewProfileService(users, nil).Me(ctx, owner)

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestProfileService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	updated := &model.User{ID: owner.ID, Username: "olga2", Email: "olga2@example.com"}

	tests := []struct {
		name       string
		in         ProfileInput
		setupMocks func(m *repoMocks.MockUserRepository)
		wantErr    error
	}{
		{
			name: "both fields trimmed",
			in:   ProfileInput{Username: strPtr(" olga2 "), Email: strPtr("olga2@example.com ")},
			setupMocks: func(m *repoMocks.MockUserRepository) {
				m.On("UpdateProfile", ctx, owner.ID, "olga2", "olga2@example.com").Return(updated, nil)
			},
		},
		{
			name: "username only",
			in:   ProfileInput{Username: strPtr("olga2")},
			setupMocks: func(m *repoMocks.MockUserRepository) {
				m.On("UpdateProfile", ctx, owner.ID, "olga2", "").Return(updated, nil)
			},
		},
		{
			name: "nothing to change returns the current profile",
			in:   ProfileInput{Username: strPtr("  ")},
			setupMocks: func(m *repoMocks.MockUserRepository) {
				m.On("FindByID", ctx, owner.ID).Return(updated, nil)
			},
		},
		{
			name:       "invalid email",
			in:         ProfileInput{Email: strPtr("Olga <olga@example.com>")},
			setupMocks: func(m *repoMocks.MockUserRepository) {},
			wantErr:    ErrInvalidEmail,
		},
		{
			name:       "email without domain",
			in:         ProfileInput{Email: strPtr("olga@localhost")},
			setupMocks: func(m *repoMocks.MockUserRepository) {},
			wantErr:    ErrInvalidEmail,
		},
		{
			name:       "username too long",
			in:         ProfileInput{Username: strPtr(strings.Repeat("o", 65))},
			setupMocks: func(m *repoMocks.MockUserRepository) {},
			wantErr:    ErrInvalidUsername,
		},
		{
			name: "username taken",
			in:   ProfileInput{Username: strPtr("bob")},
			setupMocks: func(m *repoMocks.MockUserRepository) {
				m.On("UpdateProfile", ctx, owner.ID, "bob", "").Return(nil, repository.ErrUsernameTaken)
			},
			wantErr: ErrUsernameTaken,
		},
		{
			name: "email taken",
			in:   ProfileInput{Email: strPtr("bob@example.com")},
			setupMocks: func(m *repoMocks.MockUserRepository) {
				m.On("UpdateProfile", ctx, owner.ID, "", "bob@example.com").Return(nil, repository.ErrEmailTaken)
			},
			wantErr: ErrEmailTaken,
		},
		{
			name: "account gone",
			in:   ProfileInput{Username: strPtr("olga2")},
			setupMocks: func(m *repoMocks.MockUserRepository) {
				m.On("UpdateProfile", ctx, owner.ID, "olga2", "").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(repoMocks.MockUserRepository)
			tt.setupMocks(users)

			u, err := NewProfileService(users, nil).UpdateProfile(ctx, owner, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				assert.Equal(t, updated, u)
			}
			users.AssertExpectations(t)
		})
	}

	t.Run("database failure is passed through", func(t *testing.T) {
		users := new(repoMocks.MockUserRepository)
		dbErr := errors.New("conn reset")
		users.On("UpdateProfile", ctx, owner.ID, "olga2", "").Return(nil, dbErr)

		_, err := NewProfileService(users, nil).UpdateProfile(ctx, owner, ProfileInput{Username: strPtr("olga2")})

		assert.ErrorIs(t, err, dbErr)
	})
}
