package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// NotificationService writes and reads in-app notifications.
type NotificationService interface {
	// NotifyTeamOfNewDocument tells the owner's direct reports about a new
	// team document. Other access levels are ignored.
	NotifyTeamOfNewDocument(ctx context.Context, doc *model.Document) error

	// NotifyAddedToTeam tells user they joined manager's team.
	NotifyAddedToTeam(ctx context.Context, user, manager *model.User) error

	List(ctx context.Context, userID string, page, limit int) (*Page[model.Notification], error)

	// MarkAllRead returns how many notifications changed.
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	paginator Paginator
	logger    hclog.Logger
	now       func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, paginator Paginator, logger hclog.Logger) NotificationService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if paginator.MaxLimit <= 0 {
		paginator = Paginator{DefaultLimit: 20, MaxLimit: 100}
	}
	return &notificationService{
		repo:      repo,
		users:     users,
		paginator: paginator,
		logger:    logger.Named("notifications"),
		now:       time.Now,
	}
}

func (s *notificationService) NotifyTeamOfNewDocument(ctx context.Context, doc *model.Document) error {
	if doc == nil || doc.AccessLevel != model.AccessTeam {
		return nil
	}
	owner, err := s.users.FindByID(ctx, doc.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load owner: %w", err)
	}
	members, err := s.users.ListByManager(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("list team: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	msg := fmt.Sprintf("%s uploaded a new team document: %q", owner.Username, doc.OriginalFilename)
	link := "/documents/" + doc.ID
	now := s.now().UTC()
	items := make([]model.Notification, 0, len(members))
	for _, m := range members {
		items = append(items, model.Notification{
			ID:        uuid.New().String(),
			UserID:    m.ID,
			Message:   msg,
			Link:      link,
			CreatedAt: now,
		})
	}
	if err := s.repo.CreateMany(ctx, items); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	s.logger.Info("team notified of new document", "document_id", doc.ID, "recipients", len(items))
	return nil
}

func (s *notificationService) NotifyAddedToTeam(ctx context.Context, user, manager *model.User) error {
	n := model.Notification{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Message:   fmt.Sprintf("You have been added to %s's team.", manager.Username),
		Link:      "/team",
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateMany(ctx, []model.Notification{n}); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, userID string, page, limit int) (*Page[model.Notification], error) {
	pq := s.paginator.Normalize(page, limit)
	res, err := s.repo.ListByUser(ctx, userID, pq)
	if err != nil {
		return nil, err
	}
	return newPage(res, pq), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
