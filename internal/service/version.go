package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hashicorp/go-hclog"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// VersionService owns version status. It is the only path by which a
// version leaves pending_scan.
type VersionService interface {
	Get(ctx context.Context, versionID string) (*model.DocumentVersion, error)

	// MarkAvailable moves a pending_scan version to available. It returns
	// ErrVersionResolved if the version already left pending_scan.
	MarkAvailable(ctx context.Context, versionID string) (*model.DocumentVersion, error)

	// MarkQuarantined moves a pending_scan version to quarantined, with the
	// same guard as MarkAvailable.
	MarkQuarantined(ctx context.Context, versionID, reason string) (*model.DocumentVersion, error)
}

type versionService struct {
	repo   repository.VersionRepository
	logger hclog.Logger
}

func NewVersionService(repo repository.VersionRepository, logger hclog.Logger) VersionService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &versionService{repo: repo, logger: logger.Named("versions")}
}

func (s *versionService) Get(ctx context.Context, versionID string) (*model.DocumentVersion, error) {
	if versionID == "" {
		return nil, ErrIDRequired
	}
	v, err := s.repo.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *versionService) MarkAvailable(ctx context.Context, versionID string) (*model.DocumentVersion, error) {
	v, err := s.transition(ctx, versionID, model.StatusAvailable)
	if err != nil {
		return nil, err
	}
	s.logger.Info("version available", "version_id", versionID, "document_id", v.DocumentID)
	return v, nil
}

func (s *versionService) MarkQuarantined(ctx context.Context, versionID, reason string) (*model.DocumentVersion, error) {
	v, err := s.transition(ctx, versionID, model.StatusQuarantined)
	if err != nil {
		return nil, err
	}
	s.logger.Warn("version quarantined", "version_id", versionID, "document_id", v.DocumentID, "reason", reason)
	return v, nil
}

func (s *versionService) transition(ctx context.Context, versionID string, to model.VersionStatus) (*model.DocumentVersion, error) {
	if versionID == "" {
		return nil, ErrIDRequired
	}
	v, err := s.repo.Transition(ctx, versionID, to)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, repository.ErrInvalidTransition):
		s.logger.Warn("ignoring status change for resolved version", "version_id", versionID, "target", to)
		return nil, ErrVersionResolved
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrVersionNotFound
	}
	return nil, err
}
