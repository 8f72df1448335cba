package server

import (
	"math"
	"net/url"
	"strconv"

	"github.com/wfunc/tiltmaze/lobby"
)

// 参数解析: 非法数字直接拒绝, 不会把 NaN 带进物理和重力状态

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return "Invalid Input: " + e.name
}

func intParam(q url.Values, name string) (int, error) {
	v, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return 0, &paramError{name}
	}
	return v, nil
}

func floatParam(q url.Values, name string) (float64, error) {
	v, err := strconv.ParseFloat(q.Get(name), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &paramError{name}
	}
	return v, nil
}

// flagParam is true when name is present, unless it is spelled "false" or "0".
func flagParam(q url.Values, name string) bool {
	if !q.Has(name) {
		return false
	}
	switch q.Get(name) {
	case "false", "0":
		return false
	}
	return true
}

// pollReport parses the optional report of a poll. No player parameter
// means a read-only poll.
func pollReport(q url.Values) (*lobby.Report, error) {
	if !q.Has("player") {
		return nil, nil
	}
	idx, err := intParam(q, "player")
	if err != nil {
		return nil, err
	}
	report := &lobby.Report{Index: idx, Win: flagParam(q, "win")}
	fields := []struct {
		name string
		dst  *float64
	}{
		{"gravity", &report.State.GravityAngle},
		{"bx", &report.State.X},
		{"by", &report.State.Y},
		{"vx", &report.State.VX},
		{"vy", &report.State.VY},
	}
	for _, f := range fields {
		if *f.dst, err = floatParam(q, f.name); err != nil {
			return nil, err
		}
	}
	return report, nil
}
