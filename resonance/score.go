// Package resonance implements the emotional-resonance core: the bounded
// penalty/recovery score, the utterance/loudness classifier, the alert
// dispatcher, and the monitor that orchestrates them over live audio input.
package resonance

import "time"

const (
	ScoreMin   = -9.9
	ScoreMax   = 9.9
	ScoreStart = 5.0

	stableAbove = 0.5
	tiltBelow   = -0.5

	// penaltyDebounce keeps one sustained real-world event (a long shout, a
	// burst of cursing picked up by both the loudness and speech paths) from
	// being counted as several infractions.
	penaltyDebounce = 2 * time.Second

	recoveryAfter = 30 * time.Second
	recoveryStep  = 0.25
)

type State int

const (
	Stable State = iota
	Neutral
	Tilt
)

func (s State) String() string {
	switch s {
	case Stable:
		return "stable"
	case Neutral:
		return "neutral"
	case Tilt:
		return "tilt"
	default:
		return "unknown"
	}
}

// StateOf derives the emotional state from a score. Pure.
func StateOf(score float64) State {
	switch {
	case score > stableAbove:
		return Stable
	case score < tiltBelow:
		return Tilt
	default:
		return Neutral
	}
}

// Engine owns the resonance score. Penalties drop it immediately (subject to
// the debounce window); sustained calm recovers it at recoveryStep per
// recoveryAfter. An accepted penalty resets the recovery clock, so recovery
// only accrues across quiet stretches.
//
// Not goroutine-safe; the Monitor serializes access.
type Engine struct {
	now func() time.Time

	score          float64
	lastInfraction time.Time
	lastRecovery   time.Time
}

// NewEngine returns an engine using the given clock (nil means time.Now).
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{now: now}
	e.Reset()
	return e
}

// Reset restores the session-start score and clears both clocks.
func (e *Engine) Reset() {
	e.score = ScoreStart
	e.lastInfraction = time.Time{}
	e.lastRecovery = e.now()
}

func (e *Engine) Score() float64 { return e.score }

func (e *Engine) State() State { return StateOf(e.score) }

// ApplyPenalty lowers the score by amount, clamped at ScoreMin. Calls inside
// the debounce window are discarded. Reports whether the penalty was
// accepted.
func (e *Engine) ApplyPenalty(amount float64) bool {
	now := e.now()
	if !e.lastInfraction.IsZero() && now.Sub(e.lastInfraction) < penaltyDebounce {
		return false
	}
	e.lastInfraction = now
	e.lastRecovery = now

	e.score -= amount
	if e.score < ScoreMin {
		e.score = ScoreMin
	}
	return true
}

// RecoveryTick advances the recovery clock; invoked on a fixed 1s cadence.
// After recoveryAfter of uninterrupted calm it raises the score one step,
// capped at ScoreMax. Reports whether the score changed.
func (e *Engine) RecoveryTick() bool {
	now := e.now()
	if now.Sub(e.lastRecovery) < recoveryAfter {
		return false
	}
	if e.score >= ScoreMax {
		return false
	}
	e.lastRecovery = now
	e.score += recoveryStep
	if e.score > ScoreMax {
		e.score = ScoreMax
	}
	return true
}
