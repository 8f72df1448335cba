// models/models.go
package models

import (
	"time"
)

// MatchResult is the archived outcome of one finished match.
type MatchResult struct {
	MatchID    string    `json:"match_id"`
	LobbyID    string    `json:"lobby_id"`
	BoardSize  int       `json:"board_size"`
	Winner     int       `json:"winner"`
	WinnerName string    `json:"winner_name"`
	Players    []string  `json:"players"` // usernames by slot
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is how long the match was played.
func (r MatchResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	Username string `json:"username"`
	Games    int    `json:"games"`
	Wins     int    `json:"wins"`
}
