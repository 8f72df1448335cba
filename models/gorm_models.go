// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormMatchRecord 对局记录模型
type GormMatchRecord struct {
	gorm.Model
	MatchID    string   `gorm:"uniqueIndex;not null"`
	LobbyID    string   `gorm:"index;not null"`
	BoardSize  int      `gorm:"not null"`
	Winner     int      `gorm:"not null"`
	WinnerName string   `gorm:"index"`
	Players    []string `gorm:"type:jsonb;serializer:json"`
	StartedAt  time.Time
	FinishedAt time.Time
}

func (GormMatchRecord) TableName() string {
	return "match_records"
}

func NewGormMatchRecord(r MatchResult) GormMatchRecord {
	return GormMatchRecord{
		MatchID:    r.MatchID,
		LobbyID:    r.LobbyID,
		BoardSize:  r.BoardSize,
		Winner:     r.Winner,
		WinnerName: r.WinnerName,
		Players:    r.Players,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func (m GormMatchRecord) Result() MatchResult {
	return MatchResult{
		MatchID:    m.MatchID,
		LobbyID:    m.LobbyID,
		BoardSize:  m.BoardSize,
		Winner:     m.Winner,
		WinnerName: m.WinnerName,
		Players:    m.Players,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}
