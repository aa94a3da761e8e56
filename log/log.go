// Package log writes diagnostics and the per-session infraction trail to
// files. Logging is optional; every call is a no-op until Init succeeds.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	sessionFile *os.File
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

// ResolveDir picks the log directory: explicit flag > PULSE_LOG_PATH env >
// OS default location.
func ResolveDir(flagPath string) (string, error) {
	if flagPath == "" {
		flagPath = os.Getenv("PULSE_LOG_PATH")
	}
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	sessionPath := filepath.Join(dir, "session_log.txt")
	sessionFile, err = os.OpenFile(sessionPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if sessionFile != nil {
		sessionFile.Close()
		sessionFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func sessionLine(format string, args ...any) {
	logMu.Lock()
	defer logMu.Unlock()
	if sessionFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, fmt.Sprintf(format, args...))
	sessionFile.WriteString(line)
}

// Infraction records an accepted penalty.
func Infraction(reason string, penalty, score float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("reason", reason).
		Float64("penalty", penalty).
		Float64("score", score).
		Msg("infraction")
	sessionLine("infraction\t%s\t-%.1f\t%.1f", reason, penalty, score)
}

// Transition records an emotional-state change.
func Transition(from, to string, score float64, tiltCount int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Float64("score", score).
		Int("tilt_count", tiltCount).
		Msg("state_transition")
	sessionLine("transition\t%s->%s\t%.1f\ttilts=%d", from, to, score, tiltCount)
}

// Utterance records a finalized speech fragment heard by the monitor.
func Utterance(text string) {
	if !logReady {
		return
	}
	sessionLine("utterance\t%s", text)
}

// SessionStart records the beginning of a monitoring session.
func SessionStart(provider, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("provider", provider).
		Str("device", device).
		Msg("session_start")
}

// SessionEnd records the end of a monitoring session.
func SessionEnd(elapsed time.Duration, tiltCount int, finalScore float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("elapsed_s", elapsed.Seconds()).
		Int("tilt_count", tiltCount).
		Float64("final_score", finalScore).
		Msg("session_end")
}
