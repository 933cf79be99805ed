package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/queue"
	queueMocks "docvault/internal/queue/mocks"
	"docvault/internal/repository"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"
)

var (
	owner   = access.Actor{ID: "owner-1", Role: model.RoleUser, ManagerID: "mgr-1"}
	manager = access.Actor{ID: "mgr-1", Role: model.RoleManager}
	admin   = access.Actor{ID: "admin-1", Role: model.RoleAdmin}
	peer    = access.Actor{ID: "peer-1", Role: model.RoleUser, ManagerID: "mgr-1"}
)

type docMocks struct {
	store    *storeMocks.MockStorage
	docs     *repoMocks.MockDocumentRepository
	versions *repoMocks.MockVersionRepository
	audit    *repoMocks.MockAuditRepository
	queue    *queueMocks.MockQueue
	notifier *notifierStub
}

// notifierStub records notifications without a repository.
type notifierStub struct {
	NotificationService
	notified []*model.Document
	added    []string
	err      error
}

func (n *notifierStub) NotifyTeamOfNewDocument(_ context.Context, doc *model.Document) error {
	n.notified = append(n.notified, doc)
	return n.err
}

func (n *notifierStub) NotifyAddedToTeam(_ context.Context, user, manager *model.User) error {
	n.added = append(n.added, user.ID+"->"+manager.Username)
	return n.err
}

func newDocService(t *testing.T) (DocumentService, *docMocks) {
	t.Helper()
	m := &docMocks{
		store:    new(storeMocks.MockStorage),
		docs:     new(repoMocks.MockDocumentRepository),
		versions: new(repoMocks.MockVersionRepository),
		audit:    new(repoMocks.MockAuditRepository),
		queue:    new(queueMocks.MockQueue),
		notifier: &notifierStub{},
	}
	svc := NewDocumentService(DocumentDeps{
		Store:     m.store,
		Documents: m.docs,
		Versions:  m.versions,
		Audit:     m.audit,
		Queue:     m.queue,
		Notifier:  m.notifier,
	}, DocumentOptions{
		AllowedContentTypes: []string{"application/pdf", "text/plain"},
		Paginator:           Paginator{DefaultLimit: 20, MaxLimit: 100},
	})
	t.Cleanup(func() {
		m.store.AssertExpectations(t)
		m.docs.AssertExpectations(t)
		m.versions.AssertExpectations(t)
		m.audit.AssertExpectations(t)
		m.queue.AssertExpectations(t)
	})
	return svc, m
}

func auditAction(action model.AuditAction) any {
	return mock.MatchedBy(func(e *model.AuditLog) bool { return e.Action == action })
}

func isDocKey(key string) bool {
	parts := strings.Split(key, "/")
	return len(parts) == 3 && parts[0] == "documents" && strings.HasSuffix(parts[2], ".pdf")
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		input      func() UploadInput
		setupMocks func(m *docMocks)
		wantErr    error
		wantErrMsg string
		notified   int
	}{
		{
			name: "happy path coerces level and parses tags",
			input: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("%PDF"), Filename: "Report.PDF", ContentType: "application/pdf",
					Size: 4, AccessLevel: "everyone", Tags: " q3, finance ,,q3"}
			},
			setupMocks: func(m *docMocks) {
				m.store.On("Put", ctx, mock.MatchedBy(isDocKey), mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Size: 4, ContentType: "application/pdf"}, nil)
				m.docs.On("CreateWithVersion", ctx,
					mock.MatchedBy(func(d *model.Document) bool {
						return d.AccessLevel == model.AccessPrivate && d.OwnerID == owner.ID &&
							assert.ObjectsAreEqual([]string{"q3", "finance"}, d.Tags) && d.OriginalFilename == "Report.PDF"
					}),
					mock.MatchedBy(func(v *model.DocumentVersion) bool {
						return v.Status == model.StatusPendingScan && isDocKey(v.StorageKey) && v.UploadedBy == owner.ID
					}),
				).Return(func(_ context.Context, d *model.Document, v *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error) {
					return d, v, nil
				})
				m.queue.On("Enqueue", ctx, mock.MatchedBy(func(j queue.ScanJob) bool {
					return j.Schema == queue.JobSchemaV1 && isDocKey(j.FileLocator) && j.VersionID != ""
				})).Return(nil)
				m.audit.On("Create", ctx, auditAction(model.AuditUpload)).Return(nil)
			},
		},
		{
			name: "team document notifies team",
			input: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("%PDF"), Filename: "plan.pdf", ContentType: "application/pdf", AccessLevel: "team"}
			},
			setupMocks: func(m *docMocks) {
				m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
				m.docs.On("CreateWithVersion", ctx, mock.Anything, mock.Anything).
					Return(&model.Document{ID: "d1", AccessLevel: model.AccessTeam}, &model.DocumentVersion{ID: "v1", StorageKey: "documents/d1/v1.pdf"}, nil)
				m.queue.On("Enqueue", ctx, queue.NewScanJob("v1", "documents/d1/v1.pdf")).Return(nil)
				m.audit.On("Create", ctx, auditAction(model.AuditUpload)).Return(nil)
			},
			notified: 1,
		},
		{
			name:       "validation error - nil reader",
			input:      func() UploadInput { return UploadInput{Filename: "a.pdf", ContentType: "application/pdf"} },
			setupMocks: func(m *docMocks) {},
			wantErr:    ErrReaderNil,
		},
		{
			name: "validation error - content type",
			input: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("MZ"), Filename: "a.exe", ContentType: "application/x-msdownload"}
			},
			setupMocks: func(m *docMocks) {},
			wantErr:    ErrUnsupportedContentType,
		},
		{
			name: "storage error",
			input: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("x"), Filename: "a.pdf", ContentType: "application/pdf; charset=binary"}
			},
			setupMocks: func(m *docMocks) {
				m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name: "db error deletes object",
			input: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("x"), Filename: "a.pdf", ContentType: "application/pdf"}
			},
			setupMocks: func(m *docMocks) {
				m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
				m.docs.On("CreateWithVersion", ctx, mock.Anything, mock.Anything).Return(nil, nil, errors.New("db down"))
				m.store.On("Delete", ctx, mock.MatchedBy(isDocKey)).Return(nil)
			},
			wantErrMsg: "db save failed: db down",
		},
		{
			name: "enqueue error removes version and object",
			input: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("x"), Filename: "a.pdf", ContentType: "application/pdf"}
			},
			setupMocks: func(m *docMocks) {
				m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
				m.docs.On("CreateWithVersion", ctx, mock.Anything, mock.Anything).
					Return(func(_ context.Context, d *model.Document, v *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error) {
						return d, v, nil
					})
				m.queue.On("Enqueue", ctx, mock.Anything).Return(errors.New("broker down"))
				m.docs.On("RemoveVersion", ctx, mock.Anything, mock.Anything).Return(nil)
				m.store.On("Delete", ctx, mock.MatchedBy(isDocKey)).Return(nil)
			},
			wantErrMsg: "enqueue scan job: broker down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newDocService(t)
			tt.setupMocks(m)

			res, err := svc.Upload(ctx, owner, tt.input())

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
				assert.Nil(t, res)
			default:
				require.NoError(t, err)
				require.NotNil(t, res)
				assert.NotNil(t, res.Document)
				assert.NotNil(t, res.Version)
			}
			assert.Len(t, m.notifier.notified, tt.notified)
		})
	}
}

func TestDocumentService_Upload_CompensationUsesSameIDs(t *testing.T) {
	ctx := context.Background()
	svc, m := newDocService(t)

	var docID, versionID, key string
	m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
	m.docs.On("CreateWithVersion", ctx, mock.Anything, mock.Anything).
		Return(func(_ context.Context, d *model.Document, v *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error) {
			docID, versionID, key = d.ID, v.ID, v.StorageKey
			return d, v, nil
		})
	m.queue.On("Enqueue", ctx, mock.Anything).Return(errors.New("broker down"))
	m.docs.On("RemoveVersion", ctx, mock.Anything, mock.Anything).Return(nil)
	m.store.On("Delete", ctx, mock.Anything).Return(nil)

	_, err := svc.Upload(ctx, owner, UploadInput{Reader: strings.NewReader("x"), Filename: "a.pdf", ContentType: "application/pdf"})
	require.Error(t, err)

	m.docs.AssertCalled(t, "RemoveVersion", ctx, docID, versionID)
	m.store.AssertCalled(t, "Delete", ctx, key)
	assert.Equal(t, "documents/"+docID+"/"+versionID+".pdf", key)
}

func TestDocumentService_Upload_RollbackErrorsStayMatchable(t *testing.T) {
	ctx := context.Background()
	errBroker := errors.New("broker down")
	errRemove := errors.New("remove failed")
	errDelete := errors.New("delete failed")

	tests := []struct {
		name      string
		removeErr error
		deleteErr error
		wantIs    []error
		wantNotIs []error
	}{
		{
			name:      "delete fails",
			deleteErr: errDelete,
			wantIs:    []error{errBroker, errDelete},
			wantNotIs: []error{errRemove},
		},
		{
			name:      "remove fails",
			removeErr: errRemove,
			wantIs:    []error{errBroker, errRemove},
			wantNotIs: []error{errDelete},
		},
		{
			name:      "both fail",
			removeErr: errRemove,
			deleteErr: errDelete,
			wantIs:    []error{errBroker, errRemove, errDelete},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newDocService(t)
			m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
			m.docs.On("CreateWithVersion", ctx, mock.Anything, mock.Anything).
				Return(func(_ context.Context, d *model.Document, v *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error) {
					return d, v, nil
				})
			m.queue.On("Enqueue", ctx, mock.Anything).Return(errBroker)
			m.docs.On("RemoveVersion", ctx, mock.Anything, mock.Anything).Return(tt.removeErr)
			m.store.On("Delete", ctx, mock.Anything).Return(tt.deleteErr)

			_, err := svc.Upload(ctx, owner, UploadInput{Reader: strings.NewReader("x"), Filename: "a.pdf", ContentType: "application/pdf"})

			require.Error(t, err)
			for _, target := range tt.wantIs {
				assert.ErrorIs(t, err, target)
			}
			for _, target := range tt.wantNotIs {
				assert.NotErrorIs(t, err, target)
			}
		})
	}
}

func TestDocumentService_UploadVersion(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{ID: "d1", OwnerID: owner.ID, AccessLevel: model.AccessTeam}
	input := func() UploadInput {
		return UploadInput{Reader: strings.NewReader("v2"), Filename: "b.pdf", ContentType: "application/pdf"}
	}

	t.Run("owner appends", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)
		m.store.On("Put", ctx, mock.MatchedBy(func(k string) bool { return strings.HasPrefix(k, "documents/d1/") }), mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil)
		m.docs.On("AppendVersion", ctx, "d1", mock.Anything).
			Return(&model.DocumentVersion{ID: "v2", DocumentID: "d1", VersionNumber: 2, StorageKey: "documents/d1/v2.pdf"}, nil)
		m.queue.On("Enqueue", ctx, queue.NewScanJob("v2", "documents/d1/v2.pdf")).Return(nil)
		m.audit.On("Create", ctx, auditAction(model.AuditVersionUpload)).Return(nil)

		v, err := svc.UploadVersion(ctx, owner, "d1", input())

		require.NoError(t, err)
		assert.Equal(t, 2, v.VersionNumber)
	})

	t.Run("manager cannot write a report's document", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)

		_, err := svc.UploadVersion(ctx, manager, "d1", input())

		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing document", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(nil, sql.ErrNoRows)

		_, err := svc.UploadVersion(ctx, admin, "d1", input())

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("document deleted during upload", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)
		m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		m.docs.On("AppendVersion", ctx, "d1", mock.Anything).Return(nil, sql.ErrNoRows)
		m.store.On("Delete", ctx, mock.Anything).Return(nil)

		_, err := svc.UploadVersion(ctx, admin, "d1", input())

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("failed object delete keeps not found", func(t *testing.T) {
		svc, m := newDocService(t)
		errDelete := errors.New("delete failed")
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)
		m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		m.docs.On("AppendVersion", ctx, "d1", mock.Anything).Return(nil, sql.ErrNoRows)
		m.store.On("Delete", ctx, mock.Anything).Return(errDelete)

		_, err := svc.UploadVersion(ctx, admin, "d1", input())

		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, errDelete)
	})

	t.Run("enqueue error removes the appended version", func(t *testing.T) {
		svc, m := newDocService(t)
		errRemove := errors.New("remove failed")
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)
		m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		m.docs.On("AppendVersion", ctx, "d1", mock.Anything).
			Return(func(_ context.Context, _ string, v *model.DocumentVersion) (*model.DocumentVersion, error) {
				return v, nil
			})
		m.queue.On("Enqueue", ctx, mock.Anything).Return(errors.New("broker down"))
		m.docs.On("RemoveVersion", ctx, "d1", mock.Anything).Return(errRemove)
		m.store.On("Delete", ctx, mock.MatchedBy(func(k string) bool { return strings.HasPrefix(k, "documents/d1/") })).Return(nil)

		_, err := svc.UploadVersion(ctx, owner, "d1", input())

		assert.ErrorIs(t, err, errRemove)
		assert.ErrorContains(t, err, "enqueue scan job: broker down")
	})
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()
	available := &model.DocumentVersion{ID: "v1", DocumentID: "d1", StorageKey: "documents/d1/v1.pdf", Status: model.StatusAvailable}
	teamDoc := &model.Document{ID: "d1", OwnerID: "mgr-1", AccessLevel: model.AccessTeam}

	tests := []struct {
		name       string
		actor      access.Actor
		setupMocks func(m *docMocks)
		wantErr    error
	}{
		{
			name:  "version missing",
			actor: owner,
			setupMocks: func(m *docMocks) {
				m.versions.On("FindByID", ctx, "v1").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrVersionNotFound,
		},
		{
			name:  "pending scan",
			actor: owner,
			setupMocks: func(m *docMocks) {
				m.versions.On("FindByID", ctx, "v1").Return(&model.DocumentVersion{ID: "v1", Status: model.StatusPendingScan}, nil)
			},
			wantErr: ErrPendingScan,
		},
		{
			name:  "quarantined",
			actor: owner,
			setupMocks: func(m *docMocks) {
				m.versions.On("FindByID", ctx, "v1").Return(&model.DocumentVersion{ID: "v1", Status: model.StatusQuarantined}, nil)
			},
			wantErr: ErrQuarantined,
		},
		{
			name:  "parent document missing",
			actor: owner,
			setupMocks: func(m *docMocks) {
				m.versions.On("FindByID", ctx, "v1").Return(available, nil)
				m.docs.On("FindByID", ctx, "d1").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "user without manager is denied a team document",
			actor: access.Actor{ID: "u2", Role: model.RoleUser},
			setupMocks: func(m *docMocks) {
				m.versions.On("FindByID", ctx, "v1").Return(available, nil)
				m.docs.On("FindByID", ctx, "d1").Return(teamDoc, nil)
			},
			wantErr: ErrForbidden,
		},
		{
			name:  "report of the owner downloads and is audited",
			actor: owner,
			setupMocks: func(m *docMocks) {
				m.versions.On("FindByID", ctx, "v1").Return(available, nil)
				m.docs.On("FindByID", ctx, "d1").Return(teamDoc, nil)
				m.store.On("Get", ctx, "documents/d1/v1.pdf").
					Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{Size: 4}, nil)
				m.audit.On("Create", ctx, mock.MatchedBy(func(e *model.AuditLog) bool {
					return e.Action == model.AuditDownload && e.UserID == owner.ID && e.DocumentID == "d1"
				})).Return(nil)
			},
		},
		{
			name:  "content missing from storage",
			actor: admin,
			setupMocks: func(m *docMocks) {
				m.versions.On("FindByID", ctx, "v1").Return(available, nil)
				m.docs.On("FindByID", ctx, "d1").Return(teamDoc, nil)
				m.store.On("Get", ctx, "documents/d1/v1.pdf").Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)
			},
			wantErr: ErrVersionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newDocService(t)
			tt.setupMocks(m)

			res, err := svc.Download(ctx, tt.actor, "v1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			defer res.Body.Close()
			body, _ := io.ReadAll(res.Body)
			assert.Equal(t, "%PDF", string(body))
			assert.Equal(t, "d1", res.Document.ID)
		})
	}
}

func TestDocumentService_Update(t *testing.T) {
	ctx := context.Background()
	str := func(s string) *string { return &s }

	t.Run("invalid access level is rejected before lookup", func(t *testing.T) {
		svc, _ := newDocService(t)

		_, err := svc.Update(ctx, owner, "d1", UpdateInput{AccessLevel: str("Team")})

		assert.ErrorIs(t, err, ErrInvalidAccessLevel)
	})

	t.Run("non owner is forbidden", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(&model.Document{ID: "d1", OwnerID: owner.ID}, nil)

		_, err := svc.Update(ctx, peer, "d1", UpdateInput{Tags: str("x")})

		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("tags only is a metadata update", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").
			Return(&model.Document{ID: "d1", OwnerID: owner.ID, AccessLevel: model.AccessPublic, Tags: []string{"old"}}, nil)
		m.docs.On("UpdateMetadata", ctx, "d1", model.AccessPublic, []string{"a", "b"}).
			Return(&model.Document{ID: "d1", AccessLevel: model.AccessPublic, Tags: []string{"a", "b"}}, nil)
		m.audit.On("Create", ctx, auditAction(model.AuditMetadataUpdate)).Return(nil).Once()

		doc, err := svc.Update(ctx, owner, "d1", UpdateInput{Tags: str("a, b")})

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, doc.Tags)
	})

	t.Run("private to team to private keeps tags and audits each change", func(t *testing.T) {
		svc, m := newDocService(t)
		current := &model.Document{ID: "d1", OwnerID: owner.ID, AccessLevel: model.AccessPrivate, Tags: []string{"legal", "2024"}}

		m.docs.On("FindByID", ctx, "d1").Return(func(context.Context, string) (*model.Document, error) {
			cp := *current
			return &cp, nil
		})
		m.docs.On("UpdateMetadata", ctx, "d1", mock.Anything, mock.Anything).
			Return(func(_ context.Context, _ string, level model.AccessLevel, tags []string) (*model.Document, error) {
				current.AccessLevel = level
				current.Tags = tags
				cp := *current
				return &cp, nil
			})
		m.audit.On("Create", ctx, auditAction(model.AuditAccessChange)).Return(nil).Twice()

		doc, err := svc.Update(ctx, owner, "d1", UpdateInput{AccessLevel: str("team")})
		require.NoError(t, err)
		assert.Equal(t, model.AccessTeam, doc.AccessLevel)

		doc, err = svc.Update(ctx, owner, "d1", UpdateInput{AccessLevel: str("private")})
		require.NoError(t, err)
		assert.Equal(t, model.AccessPrivate, doc.AccessLevel)
		assert.Equal(t, []string{"legal", "2024"}, doc.Tags)
		m.audit.AssertNumberOfCalls(t, "Create", 2)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{ID: "d1", OwnerID: owner.ID}

	t.Run("admin removes every version's content", func(t *testing.T) {
		svc, m := newDocService(t)
		keys := []string{"documents/d1/v1.pdf", "documents/d1/v2.pdf", "documents/d1/v3.pdf"}
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)
		m.docs.On("Delete", ctx, "d1").Return(keys, nil)
		for _, k := range keys {
			m.store.On("Delete", ctx, k).Return(nil).Once()
		}
		m.audit.On("Create", ctx, auditAction(model.AuditDelete)).Return(nil).Once()

		require.NoError(t, svc.Delete(ctx, admin, "d1"))
		m.store.AssertNumberOfCalls(t, "Delete", 3)
	})

	t.Run("storage failure does not fail the delete", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)
		m.docs.On("Delete", ctx, "d1").Return([]string{"k1", "k2"}, nil)
		m.store.On("Delete", ctx, "k1").Return(errors.New("minio down"))
		m.store.On("Delete", ctx, "k2").Return(nil)
		m.audit.On("Create", ctx, auditAction(model.AuditDelete)).Return(nil)

		assert.NoError(t, svc.Delete(ctx, owner, "d1"))
	})

	t.Run("manager is forbidden", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)

		assert.ErrorIs(t, svc.Delete(ctx, manager, "d1"), ErrForbidden)
	})

	t.Run("missing", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, svc.Delete(ctx, admin, "d1"), ErrNotFound)
	})

	t.Run("id required", func(t *testing.T) {
		svc, _ := newDocService(t)
		assert.ErrorIs(t, svc.Delete(ctx, admin, ""), ErrIDRequired)
	})
}

func TestDocumentService_ListAndSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("list normalizes paging and passes the access filter", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("List", ctx, repository.ListQuery{
			Filter: access.BuildFilter(manager),
			Tag:    "finance",
			Page:   repository.PageQuery{Page: 1, Limit: 100},
		}).Return(&repository.PageResult[model.DocumentSummary]{
			Items: []model.DocumentSummary{{ID: "d1"}},
			Total: 201,
		}, nil)

		page, err := svc.List(ctx, manager, ListParams{Tag: " finance ", Page: -3, Limit: 500})

		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, Pagination{Total: 201, TotalPages: 3, CurrentPage: 1, Limit: 100}, page.Pagination)
	})

	t.Run("empty result has empty items", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("List", ctx, mock.Anything).Return(&repository.PageResult[model.DocumentSummary]{}, nil)

		page, err := svc.List(ctx, owner, ListParams{})

		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Equal(t, 20, page.Pagination.Limit)
		assert.Equal(t, 0, page.Pagination.TotalPages)
	})

	t.Run("search requires text", func(t *testing.T) {
		svc, _ := newDocService(t)

		_, err := svc.Search(ctx, owner, SearchParams{Query: "   "})

		assert.ErrorIs(t, err, ErrQueryRequired)
	})

	t.Run("search passes trimmed text", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("Search", ctx, repository.SearchQuery{
			Filter: access.Filter{All: true},
			Text:   "quarterly report",
			Page:   repository.PageQuery{Page: 2, Limit: 10},
		}).Return(&repository.PageResult[model.DocumentSummary]{Total: 11}, nil)

		page, err := svc.Search(ctx, admin, SearchParams{Query: " quarterly report ", Page: 2, Limit: 10})

		require.NoError(t, err)
		assert.Equal(t, 2, page.Pagination.TotalPages)
		assert.Equal(t, 2, page.Pagination.CurrentPage)
	})
}

func TestDocumentService_ListVersions(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{ID: "d1", OwnerID: "mgr-1", AccessLevel: model.AccessPrivate}

	t.Run("forbidden", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)

		_, err := svc.ListVersions(ctx, owner, "d1")

		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner", func(t *testing.T) {
		svc, m := newDocService(t)
		m.docs.On("FindByID", ctx, "d1").Return(doc, nil)
		m.versions.On("ListByDocument", ctx, "d1").
			Return([]model.DocumentVersion{{ID: "v2", VersionNumber: 2}, {ID: "v1", VersionNumber: 1}}, nil)

		versions, err := svc.ListVersions(ctx, manager, "d1")

		require.NoError(t, err)
		assert.Len(t, versions, 2)
	})
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{}, ParseTags(""))
	assert.Equal(t, []string{"a", "b c"}, ParseTags(" a ,b c,, a"))
}
