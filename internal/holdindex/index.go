// Package holdindex keeps active holds ordered by expiry so the sweeper can
// find due holds without scanning the store. The index is a cache: entries may
// be stale and are always re-checked against the store before acting.
package holdindex

import (
	"context"
	"sort"
	"time"
)

// Entry is one indexed hold. TripID may be empty for entries written by an
// older process; callers resolve it through the store.
type Entry struct {
	HoldID    string
	TripID    string
	ExpiresAt time.Time
}

// ExpiryIndex orders holds by expiry. Add replaces any entry for the same hold.
type ExpiryIndex interface {
	Add(ctx context.Context, e Entry) error
	Remove(ctx context.Context, holdID string) error
	// Due returns up to limit entries with ExpiresAt <= now, earliest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	Len(ctx context.Context) (int, error)
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].ExpiresAt.Equal(es[j].ExpiresAt) {
			return es[i].HoldID < es[j].HoldID
		}
		return es[i].ExpiresAt.Before(es[j].ExpiresAt)
	})
}
