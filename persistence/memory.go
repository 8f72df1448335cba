package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/tiltmaze/models"
)

// Memory keeps match results in process memory. Used when no database is
// configured and in tests.
type Memory struct {
	mu      sync.RWMutex
	results []models.MatchResult
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveMatchResult(ctx context.Context, result models.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

// RecentMatches returns newest first.
func (m *Memory) RecentMatches(ctx context.Context, limit int) ([]models.MatchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	out := make([]models.MatchResult, 0, min(limit, len(m.results)))
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}

func (m *Memory) PlayerStats(ctx context.Context, username string) (models.PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := models.PlayerStats{Username: username}
	for _, r := range m.results {
		for _, p := range r.Players {
			if p == username {
				stats.Games++
				break
			}
		}
		if r.WinnerName == username {
			stats.Wins++
		}
	}
	if stats.Games == 0 {
		return stats, ErrRecordNotFound
	}
	return stats, nil
}

func (m *Memory) Close() error {
	return nil
}
