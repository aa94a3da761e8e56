package resonance

// Voice-line tables for the three coaching styles. Keep lines short and
// direct; the synthesis engine handles inflection.

var neutralLines = map[VoiceStyle]string{
	StyleCalm:         "Let's take a breath and refocus.",
	StyleMotivational: "Stay sharp. Opportunity is everywhere.",
	StyleDrill:        "Focus up! Get your head in the game.",
}

var tiltLines = map[VoiceStyle]string{
	StyleCalm:         "I'm detecting some stress. Let's pause.",
	StyleMotivational: "Don't let emotions drive. Stick to the plan.",
	StyleDrill:        "Lock in, trader. What are YOU doing?",
}

var escalationLines = map[VoiceStyle]string{
	StyleCalm:         "Please step away from the terminal for a moment.",
	StyleMotivational: "Protect your capital. Walk away.",
	StyleDrill:        "You are spiraling! Step away immediately! Session over!",
}

func neutralLine(style VoiceStyle) string    { return neutralLines[style.orDefault()] }
func tiltLine(style VoiceStyle) string       { return tiltLines[style.orDefault()] }
func escalationLine(style VoiceStyle) string { return escalationLines[style.orDefault()] }

// secondTiltLine is the forced warning spoken the moment the tilt count
// reaches two, independent of the regular per-transition line.
func secondTiltLine(style VoiceStyle) string {
	if style == StyleDrill {
		return "SECOND TILT INFRACTION! STEP AWAY FROM YOUR TRADING SETUP IMMEDIATELY!"
	}
	return "You've hit tilt twice. Please step away from your trading setup and take a break."
}
