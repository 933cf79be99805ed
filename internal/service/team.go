package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hashicorp/go-hclog"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// TeamService manages the manager/user adjacency. The caller acts as the
// manager of the team in every method.
type TeamService interface {
	GetTeam(ctx context.Context, manager access.Actor) ([]model.User, error)

	// AvailableUsers lists role User accounts that have no manager yet.
	AvailableUsers(ctx context.Context) ([]model.User, error)

	// AddMember assigns an unassigned User to manager and notifies them.
	AddMember(ctx context.Context, manager access.Actor, userID string) (*model.User, error)

	// RemoveMember clears the manager of a user on manager's team.
	RemoveMember(ctx context.Context, manager access.Actor, userID string) (*model.User, error)
}

type teamService struct {
	users    repository.UserRepository
	notifier NotificationService
	logger   hclog.Logger
}

func NewTeamService(users repository.UserRepository, notifier NotificationService, logger hclog.Logger) TeamService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &teamService{users: users, notifier: notifier, logger: logger.Named("teams")}
}

func (s *teamService) GetTeam(ctx context.Context, manager access.Actor) ([]model.User, error) {
	team, err := s.users.ListByManager(ctx, manager.ID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		team = []model.User{}
	}
	return team, nil
}

func (s *teamService) AvailableUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUnassigned(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

func (s *teamService) AddMember(ctx context.Context, manager access.Actor, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotAssignable
		}
		return nil, err
	}
	if user.Role != model.RoleUser {
		return nil, ErrNotAssignable
	}
	if user.ManagerID != nil {
		if *user.ManagerID == manager.ID {
			return nil, ErrAlreadyInTeam
		}
		return nil, ErrInAnotherTeam
	}

	managerID := manager.ID
	updated, err := s.users.SetManager(ctx, userID, &managerID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user added to team", "user_id", userID, "manager_id", manager.ID)

	if s.notifier != nil {
		mgr, err := s.users.FindByID(ctx, manager.ID)
		if err == nil {
			err = s.notifier.NotifyAddedToTeam(ctx, updated, mgr)
		}
		if err != nil {
			s.logger.Warn("failed to notify user added to team", "user_id", userID, "error", err)
		}
	}
	return updated, nil
}

func (s *teamService) RemoveMember(ctx context.Context, manager access.Actor, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ManagerID == nil || *user.ManagerID != manager.ID {
		return nil, ErrNotTeamMember
	}
	updated, err := s.users.SetManager(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user removed from team", "user_id", userID, "manager_id", manager.ID)
	return updated, nil
}

func (s *teamService) findUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
