package lobby

import (
	"math/rand"
	"time"
)

// spawnPowerUps places count power-ups on distinct random cells of an
// size x size board.
func spawnPowerUps(rng *rand.Rand, size, count int) []PowerUp {
	count = max(0, min(count, size*size))
	out := make([]PowerUp, 0, count)
	taken := make(map[[2]int]bool, count)
	for len(out) < count {
		cell := [2]int{rng.Intn(size), rng.Intn(size)}
		if taken[cell] {
			continue
		}
		taken[cell] = true
		out = append(out, PowerUp{X: cell[0], Y: cell[1], Type: PowerUpZeroGravity})
	}
	return out
}

// claimPowerUp hands the first unclaimed power-up on (x, y) to player.
// A held power-up is left alone.
func claimPowerUp(powerUps []PowerUp, player, x, y int, nowMs int64) bool {
	for i := range powerUps {
		p := &powerUps[i]
		if p.X != x || p.Y != y || p.Claimed() {
			continue
		}
		holder, at := player, nowMs
		p.Holder = &holder
		p.TimeActivated = &at
		return true
	}
	return false
}

// sweepPowerUps drops power-ups whose effect has run out. Expiry is only
// evaluated here, on a poll, so an unpolled lobby keeps stale entries.
func sweepPowerUps(powerUps []PowerUp, nowMs int64, lifetime time.Duration) []PowerUp {
	kept := powerUps[:0]
	for _, p := range powerUps {
		if !p.Expired(nowMs, lifetime) {
			kept = append(kept, p)
		}
	}
	return kept
}

func copyPowerUps(powerUps []PowerUp) []PowerUp {
	out := make([]PowerUp, len(powerUps))
	for i, p := range powerUps {
		out[i] = PowerUp{X: p.X, Y: p.Y, Type: p.Type}
		if p.Holder != nil {
			h := *p.Holder
			out[i].Holder = &h
		}
		if p.TimeActivated != nil {
			t := *p.TimeActivated
			out[i].TimeActivated = &t
		}
	}
	return out
}

// ActiveFor reports whether player holds a live power-up of kind at nowMs.
// Clients use it to decide whether zero gravity applies.
func ActiveFor(powerUps []PowerUp, player int, kind string, nowMs int64, lifetime time.Duration) bool {
	for _, p := range powerUps {
		if p.Type == kind && p.Holder != nil && *p.Holder == player && !p.Expired(nowMs, lifetime) {
			return true
		}
	}
	return false
}
