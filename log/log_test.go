package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveDirFlagWins(t *testing.T) {
	t.Setenv("PULSE_LOG_PATH", "/env/path")
	got, err := ResolveDir("/flag/path")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/flag/path" {
		t.Errorf("got %q, want /flag/path", got)
	}
}

func TestResolveDirEnvFallback(t *testing.T) {
	t.Setenv("PULSE_LOG_PATH", "/env/path")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/env/path" {
		t.Errorf("got %q, want /env/path", got)
	}
}

func TestResolveDirRelativeFlag(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("relative flag not absolutized: %q", got)
	}
	if filepath.Base(got) != "logs" {
		t.Errorf("got %q, want .../logs", got)
	}
}

func TestSessionLogLines(t *testing.T) {
	SetDir(t.TempDir())
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	defer Close()

	Infraction("Aggressive Tone", 1.3, 3.7)
	Transition("stable", "neutral", 0.4, 0)
	Utterance("that was a bad fill")

	Close()

	data, err := os.ReadFile(filepath.Join(Dir(), "session_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		"infraction\tAggressive Tone\t-1.3\t3.7",
		"transition\tstable->neutral\t0.4\ttilts=0",
		"utterance\tthat was a bad fill",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("session log missing %q; got:\n%s", want, text)
		}
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	// Must not panic.
	Info("nothing")
	Infraction("x", 1, 1)
	Transition("a", "b", 0, 0)
}
