package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/queue"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// UploadInput is one file received from a client. AccessLevel and Tags are
// the raw form values; an unknown access level becomes private.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
	AccessLevel string
	Tags        string
}

// UploadResult is returned by Upload. The version is still pending scan.
type UploadResult struct {
	Document *model.Document        `json:"document"`
	Version  *model.DocumentVersion `json:"version"`
}

// UpdateInput carries the metadata fields to replace. Nil fields are kept.
type UpdateInput struct {
	AccessLevel *string
	Tags        *string
}

// DownloadResult streams an available version. Callers must close Body.
type DownloadResult struct {
	Document *model.Document
	Version  *model.DocumentVersion
	Body     io.ReadCloser
	Info     storage.ObjectInfo
}

// ListParams are the query parameters of a listing.
type ListParams struct {
	Tag   string
	Page  int
	Limit int
}

// SearchParams are the query parameters of a search.
type SearchParams struct {
	Query string
	Page  int
	Limit int
}

// DocumentService defines the document use cases. Every method takes the
// authenticated actor and enforces access itself.
type DocumentService interface {
	// Upload stores the content, records the document with a pending_scan
	// first version and enqueues a scan job. A failure at any step undoes the
	// earlier ones.
	Upload(ctx context.Context, actor access.Actor, in UploadInput) (*UploadResult, error)

	// UploadVersion appends a version to an existing document. Owner or Admin only.
	UploadVersion(ctx context.Context, actor access.Actor, documentID string, in UploadInput) (*model.DocumentVersion, error)

	// List returns visible documents whose current version is available.
	List(ctx context.Context, actor access.Actor, p ListParams) (*Page[model.DocumentSummary], error)

	// Search is List with a full-text query over filename and tags.
	Search(ctx context.Context, actor access.Actor, p SearchParams) (*Page[model.DocumentSummary], error)

	// ListVersions returns the version history of a readable document.
	ListVersions(ctx context.Context, actor access.Actor, documentID string) ([]model.DocumentVersion, error)

	// Download opens the content of an available version and records the download.
	Download(ctx context.Context, actor access.Actor, versionID string) (*DownloadResult, error)

	// Update replaces access level and/or tags. Owner or Admin only.
	Update(ctx context.Context, actor access.Actor, documentID string, in UpdateInput) (*model.Document, error)

	// Delete removes the document, all versions and their content. Owner or Admin only.
	Delete(ctx context.Context, actor access.Actor, documentID string) error
}

// DocumentDeps groups the collaborators of DocumentService.
type DocumentDeps struct {
	Store     storage.Storage
	Documents repository.DocumentRepository
	Versions  repository.VersionRepository
	Audit     repository.AuditRepository
	Queue     queue.Queue
	Notifier  NotificationService
	Logger    hclog.Logger
}

// DocumentOptions tunes validation and paging.
type DocumentOptions struct {
	AllowedContentTypes []string
	Paginator           Paginator
}

type documentService struct {
	store     storage.Storage
	docs      repository.DocumentRepository
	versions  repository.VersionRepository
	audit     repository.AuditRepository
	queue     queue.Queue
	notifier  NotificationService
	logger    hclog.Logger
	allowed   map[string]struct{}
	paginator Paginator
	now       func() time.Time
}

// NewDocumentService constructs a new DocumentService. An empty content
// type allowlist accepts any type.
func NewDocumentService(d DocumentDeps, opt DocumentOptions) DocumentService {
	allowed := make(map[string]struct{}, len(opt.AllowedContentTypes))
	for _, ct := range opt.AllowedContentTypes {
		allowed[strings.ToLower(strings.TrimSpace(ct))] = struct{}{}
	}
	logger := d.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	paginator := opt.Paginator
	if paginator.MaxLimit <= 0 {
		paginator = Paginator{DefaultLimit: 20, MaxLimit: 100}
	}
	return &documentService{
		store:     d.Store,
		docs:      d.Documents,
		versions:  d.Versions,
		audit:     d.Audit,
		queue:     d.Queue,
		notifier:  d.Notifier,
		logger:    logger.Named("documents"),
		allowed:   allowed,
		paginator: paginator,
		now:       time.Now,
	}
}

func (s *documentService) Upload(ctx context.Context, actor access.Actor, in UploadInput) (*UploadResult, error) {
	if err := s.validateFile(in); err != nil {
		return nil, err
	}

	docID := uuid.New().String()
	versionID := uuid.New().String()
	key := storageKey(docID, versionID, in.Filename)

	objInfo, err := s.put(ctx, key, in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &model.Document{
		ID:               docID,
		OriginalFilename: path.Base(filepath.ToSlash(in.Filename)),
		OwnerID:          actor.ID,
		AccessLevel:      model.CoerceAccessLevel(in.AccessLevel),
		Tags:             ParseTags(in.Tags),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	v := newVersion(versionID, docID, actor.ID, key, objInfo, in, now)

	storedDoc, storedVersion, err := s.docs.CreateWithVersion(ctx, doc, v)
	if err != nil {
		return nil, s.rollbackObject(ctx, key, fmt.Errorf("db save failed: %w", err))
	}

	if err := s.enqueue(ctx, storedVersion); err != nil {
		return nil, s.rollbackVersion(ctx, docID, versionID, key, err)
	}

	s.record(ctx, actor.ID, docID, model.AuditUpload)
	if storedDoc.AccessLevel == model.AccessTeam && s.notifier != nil {
		if err := s.notifier.NotifyTeamOfNewDocument(ctx, storedDoc); err != nil {
			s.logger.Warn("failed to notify team of new document", "document_id", docID, "error", err)
		}
	}

	s.logger.Info("document uploaded", "document_id", docID, "version_id", versionID, "owner_id", actor.ID)
	return &UploadResult{Document: storedDoc, Version: storedVersion}, nil
}

func (s *documentService) UploadVersion(ctx context.Context, actor access.Actor, documentID string, in UploadInput) (*model.DocumentVersion, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	if err := s.validateFile(in); err != nil {
		return nil, err
	}
	doc, err := s.findDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !access.CanModify(actor, doc.OwnerID) {
		return nil, ErrForbidden
	}

	versionID := uuid.New().String()
	key := storageKey(documentID, versionID, in.Filename)
	objInfo, err := s.put(ctx, key, in)
	if err != nil {
		return nil, err
	}

	v := newVersion(versionID, documentID, actor.ID, key, objInfo, in, s.now().UTC())
	stored, err := s.docs.AppendVersion(ctx, documentID, v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Deleted between the lookup and the insert.
			return nil, s.rollbackObject(ctx, key, ErrNotFound)
		}
		return nil, s.rollbackObject(ctx, key, fmt.Errorf("db save failed: %w", err))
	}

	if err := s.enqueue(ctx, stored); err != nil {
		return nil, s.rollbackVersion(ctx, documentID, versionID, key, err)
	}

	s.record(ctx, actor.ID, documentID, model.AuditVersionUpload)
	s.logger.Info("document version uploaded",
		"document_id", documentID, "version_id", versionID, "version_number", stored.VersionNumber)
	return stored, nil
}

func (s *documentService) List(ctx context.Context, actor access.Actor, p ListParams) (*Page[model.DocumentSummary], error) {
	pq := s.paginator.Normalize(p.Page, p.Limit)
	res, err := s.docs.List(ctx, repository.ListQuery{
		Filter: access.BuildFilter(actor),
		Tag:    strings.TrimSpace(p.Tag),
		Page:   pq,
	})
	if err != nil {
		return nil, err
	}
	return newPage(res, pq), nil
}

func (s *documentService) Search(ctx context.Context, actor access.Actor, p SearchParams) (*Page[model.DocumentSummary], error) {
	text := strings.TrimSpace(p.Query)
	if text == "" {
		return nil, ErrQueryRequired
	}
	pq := s.paginator.Normalize(p.Page, p.Limit)
	res, err := s.docs.Search(ctx, repository.SearchQuery{
		Filter: access.BuildFilter(actor),
		Text:   text,
		Page:   pq,
	})
	if err != nil {
		return nil, err
	}
	return newPage(res, pq), nil
}

func (s *documentService) ListVersions(ctx context.Context, actor access.Actor, documentID string) ([]model.DocumentVersion, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.findDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccess(actor, access.SubjectOf(doc)) {
		return nil, ErrForbidden
	}
	versions, err := s.versions.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []model.DocumentVersion{}
	}
	return versions, nil
}

// Download checks run in this order: version exists, version status,
// parent document exists, access.
func (s *documentService) Download(ctx context.Context, actor access.Actor, versionID string) (*DownloadResult, error) {
	if versionID == "" {
		return nil, ErrIDRequired
	}
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	switch v.Status {
	case model.StatusPendingScan:
		return nil, ErrPendingScan
	case model.StatusQuarantined:
		return nil, ErrQuarantined
	}

	doc, err := s.findDocument(ctx, v.DocumentID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccess(actor, access.SubjectOf(doc)) {
		return nil, ErrForbidden
	}

	body, info, err := s.store.Get(ctx, v.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Error("available version has no content", "version_id", v.ID, "storage_key", v.StorageKey)
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("open content: %w", err)
	}

	s.record(ctx, actor.ID, doc.ID, model.AuditDownload)
	return &DownloadResult{Document: doc, Version: v, Body: body, Info: info}, nil
}

func (s *documentService) Update(ctx context.Context, actor access.Actor, documentID string, in UpdateInput) (*model.Document, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	var level model.AccessLevel
	if in.AccessLevel != nil {
		l, err := model.ParseAccessLevel(strings.TrimSpace(*in.AccessLevel))
		if err != nil {
			return nil, ErrInvalidAccessLevel
		}
		level = l
	}

	doc, err := s.findDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !access.CanModify(actor, doc.OwnerID) {
		return nil, ErrForbidden
	}

	if in.AccessLevel == nil {
		level = doc.AccessLevel
	}
	tags := doc.Tags
	if in.Tags != nil {
		tags = ParseTags(*in.Tags)
	}

	updated, err := s.docs.UpdateMetadata(ctx, documentID, level, tags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	action := model.AuditMetadataUpdate
	if level != doc.AccessLevel {
		action = model.AuditAccessChange
	}
	s.record(ctx, actor.ID, documentID, action)
	return updated, nil
}

func (s *documentService) Delete(ctx context.Context, actor access.Actor, documentID string) error {
	if documentID == "" {
		return ErrIDRequired
	}
	doc, err := s.findDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if !access.CanModify(actor, doc.OwnerID) {
		return ErrForbidden
	}

	keys, err := s.docs.Delete(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	// Rows are gone; leftover objects are unreachable, so failures are logged
	// rather than returned.
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Error("failed to delete version content", "document_id", documentID, "storage_key", key, "error", err)
		}
	}

	s.record(ctx, actor.ID, documentID, model.AuditDelete)
	s.logger.Info("document deleted", "document_id", documentID, "versions", len(keys))
	return nil
}

func (s *documentService) validateFile(in UploadInput) error {
	if in.Reader == nil {
		return ErrReaderNil
	}
	if len(s.allowed) == 0 {
		return nil
	}
	ct := strings.ToLower(strings.TrimSpace(in.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if _, ok := s.allowed[ct]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedContentType, in.ContentType)
	}
	return nil
}

func (s *documentService) put(ctx context.Context, key string, in UploadInput) (storage.ObjectInfo, error) {
	info, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload to storage: %w", err)
	}
	return info, nil
}

func (s *documentService) enqueue(ctx context.Context, v *model.DocumentVersion) error {
	if err := s.queue.Enqueue(ctx, queue.NewScanJob(v.ID, v.StorageKey)); err != nil {
		return fmt.Errorf("enqueue scan job: %w", err)
	}
	return nil
}

// rollbackObject deletes key and returns cause. A failed delete is appended
// to cause so both stay matchable with errors.Is.
func (s *documentService) rollbackObject(ctx context.Context, key string, cause error) error {
	if delErr := s.store.Delete(ctx, key); delErr != nil {
		s.logger.Error("failed to delete object during rollback", "key", key, "error", delErr)
		return multierror.Append(cause, fmt.Errorf("rollback delete object: %w", delErr))
	}
	return cause
}

// rollbackVersion undoes a stored version whose scan job was never queued:
// the row first, then its object.
func (s *documentService) rollbackVersion(ctx context.Context, documentID, versionID, key string, cause error) error {
	if rmErr := s.docs.RemoveVersion(ctx, documentID, versionID); rmErr != nil {
		s.logger.Error("failed to remove version after enqueue failure",
			"document_id", documentID, "version_id", versionID, "error", rmErr)
		cause = multierror.Append(cause, fmt.Errorf("rollback remove version: %w", rmErr))
	}
	return s.rollbackObject(ctx, key, cause)
}

func (s *documentService) findDocument(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// record appends an audit entry. The action already happened, so a failed
// write is logged and not returned.
func (s *documentService) record(ctx context.Context, userID, documentID string, action model.AuditAction) {
	entry := &model.AuditLog{
		ID:         uuid.New().String(),
		UserID:     userID,
		DocumentID: documentID,
		Action:     action,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log", "document_id", documentID, "action", action, "error", err)
	}
}

func newVersion(id, documentID, uploader, key string, info storage.ObjectInfo, in UploadInput, now time.Time) *model.DocumentVersion {
	size := info.Size
	if size <= 0 {
		size = in.Size
	}
	ct := info.ContentType
	if ct == "" {
		ct = in.ContentType
	}
	return &model.DocumentVersion{
		ID:          id,
		DocumentID:  documentID,
		StorageKey:  key,
		Size:        size,
		ContentType: ct,
		UploadedBy:  uploader,
		Status:      model.StatusPendingScan,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// storageKey is documents/{documentID}/{versionID}{ext}.
func storageKey(documentID, versionID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("documents", documentID, versionID+ext)
}

// ParseTags splits a comma separated tag list, trimming blanks and dropping
// empty and duplicate entries.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}
