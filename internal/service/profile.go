package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// ProfileInput carries the profile fields to replace. Nil or blank fields
// are kept.
type ProfileInput struct {
	Username *string
	Email    *string
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ProfileService serves the caller's own account.
type ProfileService interface {
	Me(ctx context.Context, actor access.Actor) (*model.User, error)
	UpdateProfile(ctx context.Context, actor access.Actor, in ProfileInput) (*model.User, error)
}

type profileService struct {
	users  repository.UserRepository
	logger hclog.Logger
}

func NewProfileService(users repository.UserRepository, logger hclog.Logger) ProfileService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &profileService{users: users, logger: logger.Named("profiles")}
}

func (s *profileService) Me(ctx context.Context, actor access.Actor) (*model.User, error) {
	u, err := s.users.FindByID(ctx, actor.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *profileService) UpdateProfile(ctx context.Context, actor access.Actor, in ProfileInput) (*model.User, error) {
	username := trimmed(in.Username)
	email := trimmed(in.Email)
	if err := validation.Validate(username, validation.Length(0, 64)); err != nil {
		return nil, ErrInvalidUsername
	}
	if err := validation.Validate(email, validation.Length(0, 254), validation.Match(emailPattern)); err != nil {
		return nil, ErrInvalidEmail
	}
	if username == "" && email == "" {
		return s.Me(ctx, actor)
	}

	u, err := s.users.UpdateProfile(ctx, actor.ID, username, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrUserNotFound
	case errors.Is(err, repository.ErrUsernameTaken):
		return nil, ErrUsernameTaken
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, err
	}
	s.logger.Info("profile updated", "user_id", actor.ID)
	return u, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
