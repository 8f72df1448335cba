package lobby

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/tiltmaze/gravity"
	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/maze"
	"github.com/wfunc/tiltmaze/models"
	"github.com/wfunc/tiltmaze/state"
)

// Lobby is the authoritative state of one game. Every exported method takes
// the lobby lock, so win arbitration and power-up claims are atomic per
// lobby while different lobbies proceed independently.
type Lobby struct {
	mu sync.Mutex

	id       string
	settings Settings
	machine  *state.BaseStateMachine

	gravityAngle float64
	winner       *int
	grid         *maze.Grid
	players      []Player
	powerUps     []PowerUp
	usernames    [MaxPlayers]string
	scores       [MaxPlayers]int

	startedAt  time.Time
	lastActive time.Time
	lastStamp  int64

	clock       func() time.Time
	rng         *rand.Rand
	broadcaster Broadcaster
	recorder    ResultRecorder
}

func newLobby(id string, settings Settings, clock func() time.Time, seed int64, broadcaster Broadcaster, recorder ResultRecorder) *Lobby {
	l := &Lobby{
		id:          id,
		settings:    settings,
		players:     make([]Player, 0, MaxPlayers),
		clock:       clock,
		rng:         rand.New(rand.NewSource(seed)),
		broadcaster: broadcaster,
		recorder:    recorder,
	}
	l.lastActive = clock()
	// entering waiting deals the first board
	l.machine = state.NewLobbyStateMachine(l)
	return l
}

// --- state.LobbyContext, called by the state machine with l.mu held ---

func (l *Lobby) GetID() string {
	return l.id
}

func (l *Lobby) ResetBoard() {
	l.grid = maze.Generate(maze.Config{
		Size:        l.settings.BoardSize,
		FloorHeight: l.settings.FloorHeight,
		Rand:        l.rng,
	})
	l.powerUps = spawnPowerUps(l.rng, l.grid.Size, l.settings.PowerUpCount)
	l.winner = nil
	l.gravityAngle = 0
	l.startedAt = time.Time{}
	for i := range l.players {
		l.players[i] = Player{}
	}
}

func (l *Lobby) MatchStarted() {
	l.startedAt = l.clock()
	logger.Log.Infof("Lobby %s started with %d players", l.id, len(l.players))
}

func (l *Lobby) MatchFinished() {
	if l.winner == nil {
		return
	}
	w := *l.winner
	logger.Log.Infof("Lobby %s won by player %d (%s)", l.id, w, l.usernames[w])
	if l.recorder == nil {
		return
	}
	players := make([]string, len(l.players))
	copy(players, l.usernames[:len(l.players)])
	l.recorder.RecordResult(models.MatchResult{
		MatchID:    uuid.New().String(),
		LobbyID:    l.id,
		BoardSize:  l.grid.Size,
		Winner:     w,
		WinnerName: l.usernames[w],
		Players:    players,
		StartedAt:  l.startedAt,
		FinishedAt: l.clock(),
	})
}

// --- operations ---

// Join takes the next free slot.
func (l *Lobby) Join(username string) (int, Snapshot, error) {
	l.mu.Lock()
	idx, err := l.join(username)
	if err != nil {
		snap := l.snapshot()
		l.mu.Unlock()
		return 0, snap, err
	}
	res := l.result()
	l.mu.Unlock()

	l.publishResult(res)
	return idx, res.Lobby, nil
}

func (l *Lobby) join(username string) (int, error) {
	l.touch()
	if len(l.players) >= MaxPlayers {
		return 0, ErrFull
	}
	idx := len(l.players)
	l.players = append(l.players, Player{})
	l.usernames[idx] = username
	l.scores[idx] = 0
	logger.Log.Infof("Player %d (%s) joined lobby %s", idx, username, l.id)
	return idx, nil
}

// Start moves waiting to playing. From any other status it is a no-op.
func (l *Lobby) Start() Snapshot {
	return l.transition(state.NewPlayingState(l))
}

// Reset moves finished back to waiting with a fresh board. From any other
// status it is a no-op.
func (l *Lobby) Reset() Snapshot {
	return l.transition(state.NewWaitingState(l))
}

func (l *Lobby) transition(next state.State) Snapshot {
	l.mu.Lock()
	l.touch()
	if err := l.machine.ChangeState(next); err != nil {
		snap := l.snapshot()
		l.mu.Unlock()
		logger.Log.Debugf("Lobby %s ignored %s -> %s", l.id, snap.Status, next.GetID())
		return snap
	}
	res := l.result()
	l.mu.Unlock()

	l.publishResult(res)
	return res.Lobby
}

// Snapshot is a read-only status query.
func (l *Lobby) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touch()
	return l.snapshot()
}

// Poll runs one sync step. A nil report is a read-only query. Otherwise the
// reporting player's record is overwritten, a win is arbitrated, the board
// angle is re-fused and expired power-ups are swept.
func (l *Lobby) Poll(report *Report) (PollResult, error) {
	l.mu.Lock()
	l.touch()

	if report == nil {
		res := l.result()
		l.mu.Unlock()
		return res, nil
	}

	if err := l.validate(report); err != nil {
		l.mu.Unlock()
		return PollResult{}, err
	}

	l.players[report.Index] = report.State
	won := l.arbitrateWin(report)
	l.fuseGravity()
	l.sweepPowerUps()

	res := l.result()
	res.Won = won
	l.mu.Unlock()

	l.publishResult(res)
	return res, nil
}

func (l *Lobby) validate(report *Report) error {
	if report.Index < 0 || report.Index >= len(l.players) {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, report.Index)
	}
	s := report.State
	for _, v := range []float64{s.GravityAngle, s.X, s.Y, s.VX, s.VY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite player state", ErrInvalidInput)
		}
	}
	return nil
}

// arbitrateWin must run under l.mu: the first win report while playing
// takes the match, every later one is ignored.
func (l *Lobby) arbitrateWin(report *Report) bool {
	if !report.Win || l.winner != nil || l.machine.Status() != state.StatusPlaying {
		return false
	}
	idx := report.Index
	l.winner = &idx
	l.scores[idx]++
	if err := l.machine.ChangeState(state.NewFinishedState(l)); err != nil {
		// unreachable while playing; undo so the lobby stays consistent
		l.winner = nil
		l.scores[idx]--
		logger.Log.Errorf("Lobby %s could not finish: %v", l.id, err)
		return false
	}
	return true
}

func (l *Lobby) fuseGravity() {
	angles := make([]float64, len(l.players))
	for i, p := range l.players {
		angles[i] = p.GravityAngle
	}
	mean, ok := gravity.CircularMean(angles)
	if !ok {
		return
	}
	l.gravityAngle = gravity.Smooth(l.gravityAngle, mean, l.settings.GravityAlpha)
}

// ClaimPowerUp gives the unclaimed power-up on cell (x, y) to player.
// It returns false, without error, when there is nothing to claim there.
func (l *Lobby) ClaimPowerUp(player, x, y int) (bool, error) {
	l.mu.Lock()
	l.touch()
	if player < 0 || player >= len(l.players) {
		l.mu.Unlock()
		return false, fmt.Errorf("%w: %d", ErrInvalidPlayer, player)
	}
	if !claimPowerUp(l.powerUps, player, x, y, l.clock().UnixMilli()) {
		l.mu.Unlock()
		return false, nil
	}
	res := l.result()
	l.mu.Unlock()

	logger.Log.Infof("Player %d claimed power-up at (%d, %d) in lobby %s", player, x, y, l.id)
	l.publishResult(res)
	return true, nil
}

func (l *Lobby) sweepPowerUps() {
	l.powerUps = sweepPowerUps(l.powerUps, l.clock().UnixMilli(), l.settings.PowerUpLifetime)
}

// Status returns the current status.
func (l *Lobby) Status() state.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.machine.Status()
}

// PlayerCount returns the number of taken slots.
func (l *Lobby) PlayerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.players)
}

// LastActive is the time of the last operation on the lobby.
func (l *Lobby) LastActive() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActive
}

// --- helpers, l.mu held ---

func (l *Lobby) touch() {
	l.lastActive = l.clock()
}

// stamp returns the wall clock in ms, bumped past the previous stamp when
// two polls land in the same millisecond.
func (l *Lobby) stamp() int64 {
	ts := l.clock().UnixMilli()
	if ts <= l.lastStamp {
		ts = l.lastStamp + 1
	}
	l.lastStamp = ts
	return ts
}

func (l *Lobby) snapshot() Snapshot {
	snap := Snapshot{
		ID:           l.id,
		Status:       l.machine.Status(),
		BoardSize:    l.grid.Size,
		GravityAngle: l.gravityAngle,
		Walls:        append([]maze.WallCell(nil), l.grid.Cells...),
		Players:      append(make([]Player, 0, len(l.players)), l.players...),
		PowerUps:     copyPowerUps(l.powerUps),
		Usernames:    l.usernames,
		Scores:       l.scores,
	}
	if l.winner != nil {
		w := *l.winner
		snap.Winner = &w
	}
	return snap
}

// result stamps and snapshots the lobby in one go, so a timestamp always
// describes the state it was issued with.
func (l *Lobby) result() PollResult {
	return PollResult{Timestamp: l.stamp(), Lobby: l.snapshot()}
}

func (l *Lobby) publishResult(res PollResult) {
	if l.broadcaster == nil {
		return
	}
	if err := l.broadcaster.BroadcastToLobby(l.id, res); err != nil {
		logger.Log.Warnf("Broadcast to lobby %s failed: %v", l.id, err)
	}
}
