// services/match_service.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/models"
	"github.com/wfunc/tiltmaze/persistence"
)

const saveTimeout = 10 * time.Second

// MatchService archives finished matches without holding up the lobby
// that produced them.
type MatchService struct {
	db persistence.Database
	wg sync.WaitGroup
}

func NewMatchService(db persistence.Database) *MatchService {
	return &MatchService{db: db}
}

// RecordResult saves result on its own goroutine. Failures are logged.
func (s *MatchService) RecordResult(result models.MatchResult) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.db.SaveMatchResult(ctx, result); err != nil {
			logger.Log.Errorf("Error archiving match %s of lobby %s: %v", result.MatchID, result.LobbyID, err)
			return
		}
		logger.Log.Debugf("Archived match %s (%s won in %s)", result.MatchID, result.WinnerName, result.Duration())
	}()
}

// PlayerStats 获取玩家统计, 没有记录时返回零值
func (s *MatchService) PlayerStats(ctx context.Context, username string) (models.PlayerStats, error) {
	stats, err := s.db.PlayerStats(ctx, username)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return models.PlayerStats{Username: username}, nil
	}
	return stats, err
}

func (s *MatchService) RecentMatches(ctx context.Context, limit int) ([]models.MatchResult, error) {
	return s.db.RecentMatches(ctx, limit)
}

// Wait blocks until every pending save has finished.
func (s *MatchService) Wait() {
	s.wg.Wait()
}
