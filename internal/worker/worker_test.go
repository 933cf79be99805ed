package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/queue"
	"docvault/internal/scanner"
	"docvault/internal/service"
	svcMocks "docvault/internal/service/mocks"
	"docvault/internal/storage"
)

const locator = "documents/d1/v1.pdf"

// scriptedScanner returns the queued results in order, then nil.
type scriptedScanner struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (s *scriptedScanner) Scan(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return nil
	}
	err := s.results[0]
	s.results = s.results[1:]
	return err
}

func (s *scriptedScanner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestProcessor(t *testing.T, versions service.VersionService, store storage.Storage, sc scanner.Scanner) *Processor {
	t.Helper()
	p, err := NewProcessor(versions, store, sc, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	return p
}

func storeWithContent(t *testing.T) *storage.Memory {
	t.Helper()
	store := storage.NewMemory()
	_, err := store.Put(context.Background(), locator, strings.NewReader("%PDF"), storage.PutObjectOptions{Size: 4})
	require.NoError(t, err)
	return store
}

func envelope() queue.Envelope {
	return queue.Envelope{ID: "e1", Job: queue.NewScanJob("v1", locator), Attempt: 1}
}

func pending() *model.DocumentVersion {
	return &model.DocumentVersion{ID: "v1", StorageKey: locator, Status: model.StatusPendingScan}
}

func TestProcessor_Handle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		scan        []error
		setup       func(m *svcMocks.MockVersionService)
		wantErr     error
		wantAnyErr  bool
		wantOutcome string
		wantContent bool
		wantScanned bool
	}{
		{
			name: "clean marks available",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(pending(), nil)
				m.On("MarkAvailable", ctx, "v1").Return(&model.DocumentVersion{ID: "v1", Status: model.StatusAvailable}, nil)
			},
			wantOutcome: OutcomeClean,
			wantContent: true,
			wantScanned: true,
		},
		{
			name: "malicious quarantines and removes content",
			scan: []error{&scanner.MaliciousError{Reason: "eicar", Positives: 12}},
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(pending(), nil)
				m.On("MarkQuarantined", ctx, "v1", mock.MatchedBy(func(r string) bool { return strings.Contains(r, "eicar") })).
					Return(&model.DocumentVersion{ID: "v1", Status: model.StatusQuarantined}, nil)
			},
			wantOutcome: OutcomeMalicious,
			wantScanned: true,
		},
		{
			name: "transient error is returned for retry",
			scan: []error{errors.New("virustotal responded 503")},
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(pending(), nil)
			},
			wantAnyErr:  true,
			wantOutcome: OutcomeTransient,
			wantContent: true,
			wantScanned: true,
		},
		{
			name: "missing content is permanent",
			scan: []error{storage.ErrObjectNotFound},
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(pending(), nil)
			},
			wantErr:     queue.ErrPermanent,
			wantOutcome: OutcomePermanent,
			wantContent: true,
			wantScanned: true,
		},
		{
			name: "duplicate delivery of an available version",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(&model.DocumentVersion{ID: "v1", StorageKey: locator, Status: model.StatusAvailable}, nil)
			},
			wantOutcome: OutcomeNoop,
			wantContent: true,
		},
		{
			name: "duplicate delivery of a quarantined version retries the delete",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(&model.DocumentVersion{ID: "v1", StorageKey: locator, Status: model.StatusQuarantined}, nil)
			},
			wantOutcome: OutcomeNoop,
		},
		{
			name: "late callback after another delivery resolved it",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(pending(), nil)
				m.On("MarkAvailable", ctx, "v1").Return(nil, service.ErrVersionResolved)
			},
			wantOutcome: OutcomeNoop,
			wantContent: true,
			wantScanned: true,
		},
		{
			name: "version deleted before delivery",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(nil, service.ErrVersionNotFound)
			},
			wantOutcome: OutcomeNoop,
			wantContent: true,
		},
		{
			name: "locator of another object is dead-lettered untouched",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(&model.DocumentVersion{ID: "v1", StorageKey: "documents/d1/v9.pdf", Status: model.StatusPendingScan}, nil)
			},
			wantErr:     ErrLocatorMismatch,
			wantOutcome: OutcomePermanent,
			wantContent: true,
		},
		{
			name: "locator mismatch on a quarantined version keeps the content",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(&model.DocumentVersion{ID: "v1", StorageKey: "documents/d1/v9.pdf", Status: model.StatusQuarantined}, nil)
			},
			wantErr:     queue.ErrPermanent,
			wantOutcome: OutcomePermanent,
			wantContent: true,
		},
		{
			name: "database failure while resolving is transient",
			setup: func(m *svcMocks.MockVersionService) {
				m.On("Get", ctx, "v1").Return(pending(), nil)
				m.On("MarkAvailable", ctx, "v1").Return(nil, errors.New("conn reset"))
			},
			wantAnyErr:  true,
			wantOutcome: OutcomeTransient,
			wantContent: true,
			wantScanned: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			versions := new(svcMocks.MockVersionService)
			tt.setup(versions)
			store := storeWithContent(t)
			sc := &scriptedScanner{results: tt.scan}
			p := newTestProcessor(t, versions, store, sc)

			err := p.Handle(ctx, envelope())

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, queue.ErrPermanent)
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(p.outcomes.WithLabelValues(tt.wantOutcome)))
			assert.Equal(t, tt.wantContent, store.Len() == 1)
			assert.Equal(t, tt.wantScanned, sc.Calls() == 1)
			versions.AssertExpectations(t)
		})
	}
}

func TestNewProcessor_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewProcessor(nil, nil, nil, reg, nil)
	require.NoError(t, err)

	_, err = NewProcessor(nil, nil, nil, reg, nil)
	assert.Error(t, err)
}
