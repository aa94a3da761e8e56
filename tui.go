package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type SessionStartMsg struct{}
type SessionStopMsg struct{}
type ScoreMsg struct {
	Score     float64
	State     string
	TiltCount int
}
type AudioLevelMsg struct{ Level float64 }
type UtteranceMsg struct{ Text string }
type InfractionMsg struct {
	Reason  string
	Penalty float64
	Score   float64
}
type StatusLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type tickMsg time.Time

type tuiModel struct {
	active        bool
	confirmStop   bool
	frame         int
	score         float64
	state         string
	tiltCount     int
	audioLevel    float64
	peakLevel     float64
	lastUtterance string
	lastReason    string
	lastPenalty   float64
	infractions   int
	sessionStart  time.Time
	statusLine    string
	deviceLine    string
	width, height int
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex

	// Session control, wired by main before the program starts.
	onStartRequest func()
	onStopRequest  func()
)

// State colors follow the alert palette: green flow, amber caution, red tilt.
var (
	stableStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	tiltStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
)

func NewTUIProgram() *tea.Program {
	m := tuiModel{score: 5.0, state: "stable"}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			if m.confirmStop {
				break
			}
			if m.active {
				m.confirmStop = true
			} else if onStartRequest != nil {
				go onStartRequest()
			}
		case "y":
			if m.confirmStop {
				m.confirmStop = false
				if onStopRequest != nil {
					go onStopRequest()
				}
			}
		case "n", "esc":
			m.confirmStop = false
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case SessionStartMsg:
		m.active = true
		m.confirmStop = false
		m.sessionStart = time.Now()
		m.score = 5.0
		m.state = "stable"
		m.tiltCount = 0
		m.audioLevel = 0
		m.peakLevel = 0
		m.lastUtterance = ""
		m.lastReason = ""
		m.infractions = 0

	case SessionStopMsg:
		m.active = false
		m.confirmStop = false
		m.audioLevel = 0

	case ScoreMsg:
		m.score = msg.Score
		m.state = msg.State
		m.tiltCount = msg.TiltCount

	case AudioLevelMsg:
		if m.active {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case UtteranceMsg:
		m.lastUtterance = msg.Text

	case InfractionMsg:
		m.infractions++
		m.lastReason = msg.Reason
		m.lastPenalty = msg.Penalty

	case StatusLineMsg:
		m.statusLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) stateStyle() lipgloss.Style {
	switch m.state {
	case "stable":
		return stableStyle
	case "tilt":
		return tiltStyle
	default:
		return neutralStyle
	}
}

// renderGauge draws the score on a fixed [-9.9, +9.9] bar with a moving
// marker.
func renderGauge(score float64, width int, style lipgloss.Style) string {
	if width < 21 {
		width = 21
	}
	pos := int((score + 9.9) / 19.8 * float64(width-1))
	if pos < 0 {
		pos = 0
	}
	if pos > width-1 {
		pos = width - 1
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == pos:
			b.WriteString(style.Render("█"))
		case i == width/2:
			b.WriteString(dimStyle.Render("┼"))
		default:
			b.WriteString(dimStyle.Render("─"))
		}
	}
	return b.String()
}

func renderLevelBar(level float64, width int) string {
	filled := int(level / 255 * float64(width))
	if filled > width {
		filled = width
	}
	style := dimStyle
	if level > 150 {
		style = tiltStyle
	}
	return style.Render(strings.Repeat("▮", filled)) +
		faintStyle.Render(strings.Repeat("▯", width-filled))
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	gaugeWidth := m.width - 16
	if gaugeWidth > 60 {
		gaugeWidth = 60
	}

	var lines []string
	lines = append(lines, titleStyle.Render("PULSE · emotional resonance monitor"))
	lines = append(lines, "")

	if m.active {
		elapsed := time.Since(m.sessionStart).Round(time.Second)
		lines = append(lines, tiltStyle.Render("● LIVE ")+dimStyle.Render(elapsed.String()))
	} else {
		lines = append(lines, dimStyle.Render("○ STANDBY"))
	}
	lines = append(lines, "")

	st := m.stateStyle()
	lines = append(lines, fmt.Sprintf("  %s  %s",
		st.Render(fmt.Sprintf("%+5.1f", m.score)),
		st.Render(strings.ToUpper(m.state))))
	lines = append(lines, "  "+renderGauge(m.score, gaugeWidth, st))
	lines = append(lines, "  "+faintStyle.Render(fmt.Sprintf("%-*s%s", gaugeWidth-4, "-9.9", "+9.9")))
	lines = append(lines, "")

	tiltLine := fmt.Sprintf("  Tilt count: %d", m.tiltCount)
	if m.tiltCount >= 2 {
		lines = append(lines, warnStyle.Render(tiltLine))
	} else {
		lines = append(lines, dimStyle.Render(tiltLine))
	}

	if m.active {
		lines = append(lines, "  "+dimStyle.Render("Mic level:  ")+renderLevelBar(m.audioLevel, 24))
		if time.Since(m.sessionStart) > 3*time.Second && m.peakLevel < 1 {
			lines = append(lines, warnStyle.Render("  ⚠ no microphone signal"))
		}
	}
	lines = append(lines, "")

	if m.lastUtterance != "" {
		lines = append(lines, dimStyle.Render("  Heard: ")+textStyle.Render(truncate(m.lastUtterance, m.width-10)))
	}
	if m.lastReason != "" {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("  Last infraction (#%d): ", m.infractions))+
			warnStyle.Render(fmt.Sprintf("%s  -%.1f", m.lastReason, m.lastPenalty)))
	}
	lines = append(lines, "")

	if m.statusLine != "" {
		lines = append(lines, dimStyle.Render("  "+m.statusLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, faintStyle.Render("  "+m.deviceLine))
	}
	lines = append(lines, "")

	if m.confirmStop {
		lines = append(lines, warnStyle.Render("  Stop the session? [y/n]"))
	} else if m.active {
		lines = append(lines, faintStyle.Render("  s")+faintStyle.Render(" stop · ")+
			faintStyle.Render("q")+faintStyle.Render(" quit"))
	} else {
		lines = append(lines, faintStyle.Render("  s")+faintStyle.Render(" start · ")+
			faintStyle.Render("q")+faintStyle.Render(" quit"))
	}
	lines = append(lines, faintStyle.Render("  pulse "+version))

	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// tuiSink forwards monitor events into the running Bubble Tea program.
type tuiSink struct{}

func (tuiSink) send(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s tuiSink) SessionStart() { s.send(SessionStartMsg{}) }
func (s tuiSink) SessionStop()  { s.send(SessionStopMsg{}) }

func (s tuiSink) ScoreUpdate(score float64, state string, tiltCount int) {
	s.send(ScoreMsg{Score: score, State: state, TiltCount: tiltCount})
}

func (s tuiSink) AudioLevel(level float64) { s.send(AudioLevelMsg{Level: level}) }
func (s tuiSink) Utterance(text string)    { s.send(UtteranceMsg{Text: text}) }

func (s tuiSink) Infraction(reason string, penalty, score float64) {
	s.send(InfractionMsg{Reason: reason, Penalty: penalty, Score: score})
}

func (s tuiSink) StatusLine(text string) { s.send(StatusLineMsg{Text: text}) }
func (s tuiSink) DeviceLine(text string) { s.send(DeviceLineMsg{Text: text}) }
