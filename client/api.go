package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wfunc/tiltmaze/lobby"
)

// APIError is an error the server reported in the payload.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsLobbyGone reports whether err means the lobby no longer exists.
func IsLobbyGone(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Message == "Lobby Doesn't Exist"
}

// API calls the lobby endpoints of a server.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{BaseURL: baseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

type envelope struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Player    int             `json:"player"`
	Timestamp int64           `json:"timestamp"`
	Lobby     *lobby.Snapshot `json:"lobby"`
}

func (a *API) get(ctx context.Context, path string, q url.Values, out any) error {
	u := a.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *API) call(ctx context.Context, path string, q url.Values) (envelope, error) {
	var env envelope
	if err := a.get(ctx, path, q, &env); err != nil {
		return env, err
	}
	if env.Error != "" {
		return env, &APIError{Message: env.Error}
	}
	return env, nil
}

func (a *API) lobbyCall(ctx context.Context, path, id string) (lobby.Snapshot, error) {
	env, err := a.call(ctx, path, url.Values{"lobby": {id}})
	if err != nil {
		return lobby.Snapshot{}, err
	}
	if env.Lobby == nil {
		return lobby.Snapshot{}, fmt.Errorf("%s: response without lobby", path)
	}
	return *env.Lobby, nil
}

func (a *API) Create(ctx context.Context) (lobby.Snapshot, error) {
	var snap lobby.Snapshot
	err := a.get(ctx, "/lobby/create", nil, &snap)
	return snap, err
}

func (a *API) Join(ctx context.Context, id, username string) (int, lobby.Snapshot, error) {
	env, err := a.call(ctx, "/lobby/join", url.Values{"lobby": {id}, "uname": {username}})
	if err != nil {
		return 0, lobby.Snapshot{}, err
	}
	if env.Lobby == nil {
		return 0, lobby.Snapshot{}, errors.New("join: response without lobby")
	}
	return env.Player, *env.Lobby, nil
}

func (a *API) Start(ctx context.Context, id string) (lobby.Snapshot, error) {
	return a.lobbyCall(ctx, "/lobby/start", id)
}

func (a *API) Reset(ctx context.Context, id string) (lobby.Snapshot, error) {
	return a.lobbyCall(ctx, "/lobby/reset", id)
}

func (a *API) Status(ctx context.Context, id string) (lobby.Snapshot, error) {
	return a.lobbyCall(ctx, "/lobby/status", id)
}

// ClaimPowerUp asks for the power-up on cell (px, py).
func (a *API) ClaimPowerUp(ctx context.Context, id string, player, px, py int) error {
	_, err := a.call(ctx, "/lobby/powerup", url.Values{
		"lobby":  {id},
		"player": {strconv.Itoa(player)},
		"px":     {strconv.Itoa(px)},
		"py":     {strconv.Itoa(py)},
	})
	return err
}

// Poll runs one sync step. A nil report polls read-only.
func (a *API) Poll(ctx context.Context, id string, report *lobby.Report) (lobby.PollResult, error) {
	q := url.Values{"lobby": {id}}
	if report != nil {
		f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
		q.Set("player", strconv.Itoa(report.Index))
		q.Set("gravity", f(report.State.GravityAngle))
		q.Set("bx", f(report.State.X))
		q.Set("by", f(report.State.Y))
		q.Set("vx", f(report.State.VX))
		q.Set("vy", f(report.State.VY))
		if report.Win {
			q.Set("win", "1")
		}
	}
	env, err := a.call(ctx, "/lobby/poll", q)
	if err != nil {
		return lobby.PollResult{}, err
	}
	if env.Lobby == nil {
		return lobby.PollResult{}, errors.New("poll: response without lobby")
	}
	return lobby.PollResult{Timestamp: env.Timestamp, Lobby: *env.Lobby}, nil
}
