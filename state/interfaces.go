// state/interfaces.go
package state

// LobbyContext is what a lobby exposes to its status states.
// This breaks the import cycle between lobby and state.
type LobbyContext interface {
	GetID() string
	// ResetBoard regenerates walls and power-ups and clears the winner.
	ResetBoard()
	// MatchStarted is called when the lobby enters the playing status.
	MatchStarted()
	// MatchFinished is called when the lobby enters the finished status.
	MatchFinished()
}
