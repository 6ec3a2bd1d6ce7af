package domain

import (
	"context"
	"time"
)

// QueryHistoryRepository persists and lists query history entries.
type QueryHistoryRepository interface {
	Insert(ctx context.Context, e *QueryHistoryEntry) error
	List(ctx context.Context, filter QueryHistoryFilter) ([]QueryHistoryEntry, int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
