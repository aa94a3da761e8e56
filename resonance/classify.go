package resonance

import (
	"fmt"
	"strings"
)

// Infraction is one detected behavioral signal. Ephemeral; the reason label
// is for logging and UI only.
type Infraction struct {
	Penalty float64
	Reason  string
}

const (
	penaltyCursesBatch = 5.0
	penaltyPerCurse    = 0.7
	penaltyAggressive  = 1.3
	penaltyLoudness    = 1.3

	// curse matches at or above this count collapse into one batch penalty
	curseBatchAt = 3

	// DefaultLoudThreshold is the 0-255 loudness average above which a speech
	// window counts as an aggressive tone.
	DefaultLoudThreshold = 150.0
)

var defaultCurseWords = []string{
	"fuck", "fucking", "fucked", "fucker", "fucks",
	"shit", "shitty", "bullshit",
	"damn", "dammit", "goddamn",
	"bitch", "bastard", "asshole", "ass",
	"crap", "piss", "pissed",
	"hell", "bloody",
	"cock", "dick", "pussy", "cunt",
	"motherfucker", "son of a bitch",
	"god damn it", "you have got to be kidding me", "oh my god",
}

var defaultAggressiveWords = []string{
	"stupid", "idiot", "hate", "lose", "losing", "bad", "worst",
	"trash", "useless", "garbage",
}

// rule matches an utterance against one infraction category. Rules run in
// order and the first hit wins, so curse detection shadows the
// aggressive-vocabulary check.
type rule func(text string) (Infraction, bool)

// Classifier maps utterances and loudness samples onto infractions. Word
// lists are data; extending them never touches the rule order.
type Classifier struct {
	curses        []string
	aggressive    []string
	loudThreshold float64
	rules         []rule
}

func NewClassifier() *Classifier {
	c := &Classifier{
		curses:        append([]string(nil), defaultCurseWords...),
		aggressive:    append([]string(nil), defaultAggressiveWords...),
		loudThreshold: DefaultLoudThreshold,
	}
	c.rules = []rule{c.matchCurses, c.matchAggressive}
	return c
}

// ExtendCurses adds substrings to the curse list.
func (c *Classifier) ExtendCurses(words ...string) {
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			c.curses = append(c.curses, w)
		}
	}
}

// ExtendAggressive adds substrings to the aggressive-vocabulary list.
func (c *Classifier) ExtendAggressive(words ...string) {
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			c.aggressive = append(c.aggressive, w)
		}
	}
}

// SetLoudThreshold overrides the aggressive-tone loudness threshold.
func (c *Classifier) SetLoudThreshold(v float64) {
	if v > 0 {
		c.loudThreshold = v
	}
}

// Utterance classifies one finalized lowercase utterance.
func (c *Classifier) Utterance(text string) (Infraction, bool) {
	for _, r := range c.rules {
		if inf, ok := r(text); ok {
			return inf, true
		}
	}
	return Infraction{}, false
}

// Loudness classifies one 0-255 loudness average.
func (c *Classifier) Loudness(avg float64) (Infraction, bool) {
	if avg > c.loudThreshold {
		return Infraction{Penalty: penaltyLoudness, Reason: "Aggressive Tone"}, true
	}
	return Infraction{}, false
}

func (c *Classifier) matchCurses(text string) (Infraction, bool) {
	count := 0
	for _, w := range c.curses {
		if strings.Contains(text, w) {
			count++
		}
	}
	switch {
	case count >= curseBatchAt:
		return Infraction{
			Penalty: penaltyCursesBatch,
			Reason:  fmt.Sprintf("Multiple Curses (%d detected)", count),
		}, true
	case count > 0:
		return Infraction{
			Penalty: float64(count) * penaltyPerCurse,
			Reason:  fmt.Sprintf("Curse Word(s) (%d)", count),
		}, true
	}
	return Infraction{}, false
}

func (c *Classifier) matchAggressive(text string) (Infraction, bool) {
	for _, w := range c.aggressive {
		if strings.Contains(text, w) {
			return Infraction{Penalty: penaltyAggressive, Reason: "Aggressive Language"}, true
		}
	}
	return Infraction{}, false
}
