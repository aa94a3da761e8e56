// Package speak converts text to spoken audio through whatever synthesis
// engine the platform provides. Speaking a new line cancels the in-flight
// one; with no engine installed every call is a silent no-op.
package speak

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

// Announcer is the voice-output contract the alert machinery depends on.
type Announcer interface {
	Say(text string)
	Cancel()
}

type engine struct {
	name string
	args func(text string) []string
}

var engines = map[string][]engine{
	"darwin": {
		{name: "say", args: func(t string) []string { return []string{"-r", "200", t} }},
	},
	"linux": {
		{name: "espeak-ng", args: func(t string) []string { return []string{"-s", "185", t} }},
		{name: "espeak", args: func(t string) []string { return []string{"-s", "185", t} }},
		{name: "spd-say", args: func(t string) []string { return []string{"-w", t} }},
	},
	"windows": {
		{name: "powershell", args: func(t string) []string {
			script := fmt.Sprintf(
				"Add-Type -AssemblyName System.Speech; (New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak(%q)", t)
			return []string{"-NoProfile", "-Command", script}
		}},
	},
}

// Voice speaks through an external synthesis command. The zero value is a
// no-op; use New to resolve the platform engine.
type Voice struct {
	eng *engine

	mu      sync.Mutex
	current *exec.Cmd
}

// New resolves the first available synthesis engine for this platform.
// A Voice with no engine is still usable; it just stays silent.
func New() *Voice {
	v := &Voice{}
	for i, e := range engines[runtime.GOOS] {
		if _, err := exec.LookPath(e.name); err == nil {
			v.eng = &engines[runtime.GOOS][i]
			break
		}
	}
	return v
}

// Available reports whether a synthesis engine was found.
func (v *Voice) Available() bool { return v.eng != nil }

// EngineName returns the resolved engine command, or "" when none was found.
func (v *Voice) EngineName() string {
	if v.eng == nil {
		return ""
	}
	return v.eng.name
}

// Say cancels any in-flight utterance and speaks text. Fire-and-forget;
// failures are swallowed.
func (v *Voice) Say(text string) {
	if v.eng == nil || text == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelLocked()

	cmd := exec.Command(v.eng.name, v.eng.args(text)...)
	if err := cmd.Start(); err != nil {
		return
	}
	v.current = cmd
	go func() {
		cmd.Wait()
		v.mu.Lock()
		if v.current == cmd {
			v.current = nil
		}
		v.mu.Unlock()
	}()
}

// Cancel stops the in-flight utterance, if any.
func (v *Voice) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelLocked()
}

func (v *Voice) cancelLocked() {
	if v.current != nil && v.current.Process != nil {
		v.current.Process.Kill()
	}
	v.current = nil
}
