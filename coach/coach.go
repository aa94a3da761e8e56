// Package coach formats monitor output for a coaching agent: the system-state
// context block prepended to every exchange, the psych-eval block added while
// the trader is tilting, and the one-shot tilt warning prompt.
package coach

import (
	"fmt"
	"strings"
	"sync"

	"pulse/resonance"
)

// Profile identifies the trader in the context block.
type Profile struct {
	Name string
	Tier string
}

// ContextBlock renders the current system state for the agent. The psych-eval
// section is appended whenever the trader is tilting so the agent reacts to
// it without being asked.
func ContextBlock(p Profile, u resonance.Update) string {
	var b strings.Builder
	b.WriteString("[CURRENT SYSTEM STATE]\n")
	name := p.Name
	if name == "" {
		name = "Trader"
	}
	tier := p.Tier
	if tier == "" {
		tier = "PULSE"
	}
	fmt.Fprintf(&b, "User: %s | Tier: %s\n", name, tier)
	fmt.Fprintf(&b, "Emotional Resonance: %+.1f (%s) | Tilt Count: %d\n",
		u.Score, u.State, u.TiltCount)
	if u.State == resonance.Tilt {
		b.WriteString("\n")
		b.WriteString(PsychEvalBlock(u))
	}
	return b.String()
}

// PsychEvalBlock renders the psych-eval section on demand, regardless of
// state.
func PsychEvalBlock(u resonance.Update) string {
	var b strings.Builder
	b.WriteString("[PSYCH EVAL]\n")
	fmt.Fprintf(&b, "Current State: %s\n", strings.ToUpper(u.State.String()))
	fmt.Fprintf(&b, "Resonance Score: %.1f\n", u.Score)
	b.WriteString("Note: If score < 0, user is tilting. If score > 5, user is flow state.\n")
	return b.String()
}

// DrillPrompt is the agent prompt issued when a tilt lands.
func DrillPrompt(tiltCount int) string {
	return fmt.Sprintf("User has tilted %d times. Provide a short, punchy, drill-sergeant style warning to snap them out of it.", tiltCount)
}

// Tracker issues the drill prompt exactly once per new tilt occurrence, no
// matter how many state updates arrive while the trader stays tilted.
type Tracker struct {
	mu   sync.Mutex
	seen int
}

// OnTilt consumes a tilt-count notification. It returns the drill prompt and
// true when the count is new.
func (t *Tracker) OnTilt(count int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if count <= t.seen {
		return "", false
	}
	t.seen = count
	return DrillPrompt(count), true
}

// Reset clears the tracker for a new session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.seen = 0
	t.mu.Unlock()
}
