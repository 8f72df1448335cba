package client

import (
	"sync"

	"github.com/wfunc/tiltmaze/lobby"
)

// SnapshotTracker keeps the newest lobby snapshot. Poll replies may land
// out of order; anything not newer than what is held is dropped.
type SnapshotTracker struct {
	mu        sync.RWMutex
	timestamp int64
	snapshot  *lobby.Snapshot
}

// Apply stores res if its timestamp is strictly newer. It reports whether
// res was kept.
func (t *SnapshotTracker) Apply(res lobby.PollResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot != nil && res.Timestamp <= t.timestamp {
		return false
	}
	snap := res.Lobby
	t.snapshot = &snap
	t.timestamp = res.Timestamp
	return true
}

// Latest returns the held snapshot and its timestamp.
func (t *SnapshotTracker) Latest() (lobby.Snapshot, int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snapshot == nil {
		return lobby.Snapshot{}, 0, false
	}
	return *t.snapshot, t.timestamp, true
}
