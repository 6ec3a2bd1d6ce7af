// Package testutil provides test doubles for domain interfaces.
package testutil

import (
	"context"
	"sync"
	"time"

	"qfront/internal/domain"
)

// MockQueryHistoryRepo implements domain.QueryHistoryRepository for testing.
type MockQueryHistoryRepo struct {
	InsertFn       func(ctx context.Context, e *domain.QueryHistoryEntry) error
	ListFn         func(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, int64, error)
	DeleteBeforeFn func(ctx context.Context, cutoff time.Time) (int64, error)

	mu      sync.Mutex
	Entries []*domain.QueryHistoryEntry // collected entries for assertions
}

// Insert implements the interface method for testing.
func (m *MockQueryHistoryRepo) Insert(ctx context.Context, e *domain.QueryHistoryEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
	return nil
}

// List implements the interface method for testing.
func (m *MockQueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	panic("unexpected call to MockQueryHistoryRepo.List")
}

// DeleteBefore implements the interface method for testing.
func (m *MockQueryHistoryRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteBeforeFn != nil {
		return m.DeleteBeforeFn(ctx, cutoff)
	}
	panic("unexpected call to MockQueryHistoryRepo.DeleteBefore")
}

// LastEntry returns the last collected entry, or nil if none.
func (m *MockQueryHistoryRepo) LastEntry() *domain.QueryHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// Count returns the number of collected entries.
func (m *MockQueryHistoryRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

var _ domain.QueryHistoryRepository = (*MockQueryHistoryRepo)(nil)
