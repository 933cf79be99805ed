package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/queue"
)

type MockQueue struct {
	mock.Mock
}

var _ queue.Queue = (*MockQueue)(nil)

func (m *MockQueue) Enqueue(ctx context.Context, job queue.ScanJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
