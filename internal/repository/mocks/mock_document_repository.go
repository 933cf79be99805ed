package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	"docvault/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) CreateWithVersion(ctx context.Context, doc *model.Document, v *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error) {
	args := m.Called(ctx, doc, v)
	if f, ok := args.Get(0).(func(context.Context, *model.Document, *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error)); ok {
		return f(ctx, doc, v)
	}
	var (
		d  *model.Document
		dv *model.DocumentVersion
	)
	if got := args.Get(0); got != nil {
		d = got.(*model.Document)
	}
	if got := args.Get(1); got != nil {
		dv = got.(*model.DocumentVersion)
	}
	return d, dv, args.Error(2)
}

func (m *MockDocumentRepository) AppendVersion(ctx context.Context, documentID string, v *model.DocumentVersion) (*model.DocumentVersion, error) {
	args := m.Called(ctx, documentID, v)
	if f, ok := args.Get(0).(func(context.Context, string, *model.DocumentVersion) (*model.DocumentVersion, error)); ok {
		return f(ctx, documentID, v)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockDocumentRepository) RemoveVersion(ctx context.Context, documentID, versionID string) error {
	args := m.Called(ctx, documentID, versionID)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if f, ok := args.Get(0).(func(context.Context, string) (*model.Document, error)); ok {
		return f(ctx, id)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateMetadata(ctx context.Context, id string, level model.AccessLevel, tags []string) (*model.Document, error) {
	args := m.Called(ctx, id, level, tags)
	if f, ok := args.Get(0).(func(context.Context, string, model.AccessLevel, []string) (*model.Document, error)); ok {
		return f(ctx, id, level, tags)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, q repository.ListQuery) (*repository.PageResult[model.DocumentSummary], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.DocumentSummary]), args.Error(1)
}

func (m *MockDocumentRepository) Search(ctx context.Context, q repository.SearchQuery) (*repository.PageResult[model.DocumentSummary], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.DocumentSummary]), args.Error(1)
}

func (m *MockDocumentRepository) Stats(ctx context.Context) (*model.DocumentStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentStats), args.Error(1)
}

type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) FindByID(ctx context.Context, id string) (*model.DocumentVersion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockVersionRepository) ListByDocument(ctx context.Context, documentID string) ([]model.DocumentVersion, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentVersion), args.Error(1)
}

func (m *MockVersionRepository) Transition(ctx context.Context, id string, status model.VersionStatus) (*model.DocumentVersion, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}
