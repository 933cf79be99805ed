package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

var _ service.DocumentService = (*MockDocumentService)(nil)

func (m *MockDocumentService) Upload(ctx context.Context, actor access.Actor, in service.UploadInput) (*service.UploadResult, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) UploadVersion(ctx context.Context, actor access.Actor, documentID string, in service.UploadInput) (*model.DocumentVersion, error) {
	args := m.Called(ctx, actor, documentID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, actor access.Actor, p service.ListParams) (*service.Page[model.DocumentSummary], error) {
	args := m.Called(ctx, actor, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Page[model.DocumentSummary]), args.Error(1)
}

func (m *MockDocumentService) Search(ctx context.Context, actor access.Actor, p service.SearchParams) (*service.Page[model.DocumentSummary], error) {
	args := m.Called(ctx, actor, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Page[model.DocumentSummary]), args.Error(1)
}

func (m *MockDocumentService) ListVersions(ctx context.Context, actor access.Actor, documentID string) ([]model.DocumentVersion, error) {
	args := m.Called(ctx, actor, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentVersion), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, actor access.Actor, versionID string) (*service.DownloadResult, error) {
	args := m.Called(ctx, actor, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DownloadResult), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, actor access.Actor, documentID string, in service.UpdateInput) (*model.Document, error) {
	args := m.Called(ctx, actor, documentID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, actor access.Actor, documentID string) error {
	args := m.Called(ctx, actor, documentID)
	return args.Error(0)
}
