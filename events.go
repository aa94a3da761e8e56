package main

// EventSink abstracts the display layer so the Bubble Tea TUI and the
// headless console output receive the same monitoring events.
type EventSink interface {
	SessionStart()
	SessionStop()
	ScoreUpdate(score float64, state string, tiltCount int)
	AudioLevel(level float64)
	Utterance(text string)
	Infraction(reason string, penalty, score float64)
	StatusLine(text string)
	DeviceLine(text string)
}
