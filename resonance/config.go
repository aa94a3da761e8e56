package resonance

import "pulse/tone"

type VoiceStyle string

const (
	StyleCalm         VoiceStyle = "calm"
	StyleMotivational VoiceStyle = "motivational"
	StyleDrill        VoiceStyle = "drill"
)

// ParseStyle maps a config string onto a voice style. Unrecognized values
// fall back to calm: a bad setting must never take the alert path down.
func ParseStyle(s string) VoiceStyle {
	switch VoiceStyle(s) {
	case StyleCalm, StyleMotivational, StyleDrill:
		return VoiceStyle(s)
	default:
		return StyleCalm
	}
}

func (s VoiceStyle) orDefault() VoiceStyle {
	switch s {
	case StyleCalm, StyleMotivational, StyleDrill:
		return s
	default:
		return StyleCalm
	}
}

// AlertConfig gates and shapes the alert machinery. Read at alert time, so
// settings changes apply on the next alert without a restart.
type AlertConfig struct {
	Enabled           bool       // master kill switch for all alerts
	VoiceEnabled      bool       // gate spoken alerts only
	EscalationEnabled bool       // gate the harsher line once tiltCount >= 3
	Tone              tone.Wave  // oscillator waveform
	Style             VoiceStyle // voice-line variant
}

func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Enabled:           true,
		VoiceEnabled:      true,
		EscalationEnabled: true,
		Tone:              tone.Sine,
		Style:             StyleDrill,
	}
}
