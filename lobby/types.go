package lobby

import (
	"errors"
	"time"

	"github.com/wfunc/tiltmaze/config"
	"github.com/wfunc/tiltmaze/gravity"
	"github.com/wfunc/tiltmaze/maze"
	"github.com/wfunc/tiltmaze/models"
	"github.com/wfunc/tiltmaze/state"
)

const (
	MaxPlayers = 4
	CodeLength = 6

	PowerUpZeroGravity = "zero-gravity"
)

var (
	ErrNotFound      = errors.New("lobby not found")
	ErrFull          = errors.New("lobby full")
	ErrInvalidPlayer = errors.New("player not in lobby")
	ErrInvalidInput  = errors.New("invalid input")
)

// Broadcaster pushes poll results to whoever watches a lobby; encoding is
// up to the broadcaster. Defined here to break the import cycle between
// lobby and broadcast.
type Broadcaster interface {
	BroadcastToLobby(lobbyID string, msg any) error
}

// ResultRecorder receives finished matches. It is called with the lobby
// lock held and must not block.
type ResultRecorder interface {
	RecordResult(result models.MatchResult)
}

// Player is the last state a client reported for its marble, in
// board-normalised units.
type Player struct {
	GravityAngle float64 `json:"gravityAngle"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	VX           float64 `json:"vx"`
	VY           float64 `json:"vy"`
}

// PowerUp sits on grid cell (X, Y). Holder and TimeActivated are nil until
// it is claimed.
type PowerUp struct {
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Type          string `json:"type"`
	Holder        *int   `json:"holder"`
	TimeActivated *int64 `json:"timeActivated"`
}

// Claimed reports whether someone holds the power-up.
func (p PowerUp) Claimed() bool {
	return p.Holder != nil
}

// Expired reports whether a claimed power-up has outlived lifetime at nowMs.
func (p PowerUp) Expired(nowMs int64, lifetime time.Duration) bool {
	return p.TimeActivated != nil && nowMs-*p.TimeActivated >= lifetime.Milliseconds()
}

// Snapshot is the full, detached view of a lobby sent to clients.
type Snapshot struct {
	ID           string             `json:"id"`
	Status       state.Status       `json:"status"`
	BoardSize    int                `json:"boardSize"`
	GravityAngle float64            `json:"gravityAngle"`
	Winner       *int               `json:"winner"`
	Walls        []maze.WallCell    `json:"walls"`
	Players      []Player           `json:"players"`
	PowerUps     []PowerUp          `json:"powerUps"`
	Usernames    [MaxPlayers]string `json:"usernames"`
	Scores       [MaxPlayers]int    `json:"scores"`
}

// Report is what a polling client pushes for its own marble.
type Report struct {
	Index int
	State Player
	Win   bool
}

// PollResult is the reply to a poll. Timestamps of one lobby strictly
// increase so clients can drop replies that arrive out of order.
type PollResult struct {
	Timestamp int64    `json:"timestamp"`
	Lobby     Snapshot `json:"lobby"`

	// Won is set when this poll decided the match.
	Won bool `json:"-"`
}

// Settings are fixed when a lobby is created.
type Settings struct {
	BoardSize       int
	FloorHeight     int
	GravityAlpha    float64
	PowerUpCount    int
	PowerUpLifetime time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		BoardSize:       16,
		FloorHeight:     1,
		GravityAlpha:    gravity.DefaultAlpha,
		PowerUpCount:    3,
		PowerUpLifetime: 15 * time.Second,
	}
}

func SettingsFromConfig(cfg config.GameConfig) Settings {
	return Settings{
		BoardSize:       cfg.BoardSize,
		FloorHeight:     cfg.FloorHeight,
		GravityAlpha:    cfg.GravityAlpha,
		PowerUpCount:    cfg.PowerUpCount,
		PowerUpLifetime: cfg.PowerUpLifetime,
	}
}
