package resonance

import (
	"strings"
	"sync"
	"testing"
	"time"

	"pulse/speak"
	"pulse/tone"
)

type playedTone struct {
	freq float64
	dur  time.Duration
	vol  float64
}

// recordSynth captures every Play/Sweep call.
type recordSynth struct {
	mu     sync.Mutex
	plays  []playedTone
	sweeps [][]float64
}

func (r *recordSynth) Play(freq float64, _ tone.Wave, dur time.Duration, vol float64) {
	r.mu.Lock()
	r.plays = append(r.plays, playedTone{freq, dur, vol})
	r.mu.Unlock()
}

func (r *recordSynth) Sweep(freqs []float64, _ tone.Wave, _ time.Duration, _ float64) {
	r.mu.Lock()
	r.sweeps = append(r.sweeps, append([]float64(nil), freqs...))
	r.mu.Unlock()
}

func (r *recordSynth) playCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plays)
}

func (r *recordSynth) lastPlay() playedTone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plays[len(r.plays)-1]
}

func (r *recordSynth) sweepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sweeps)
}

func newTestDispatcher(cfg AlertConfig) (*Dispatcher, *recordSynth, *speak.Fake) {
	synth := &recordSynth{}
	voice := speak.NewFake()
	d := NewDispatcher(synth, voice, func() AlertConfig { return cfg })
	// Shrink real-time delays so tests settle fast.
	d.voiceDelay = time.Millisecond
	d.overrideDelay = 2 * time.Millisecond
	d.alarmInterval = 10 * time.Millisecond
	d.pick = func(int) int { return 0 }
	return d, synth, voice
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNeutralAlert(t *testing.T) {
	d, synth, voice := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Stable, Neutral, 0)

	if synth.playCount() != 1 {
		t.Fatalf("plays = %d, want 1 ambient tone", synth.playCount())
	}
	if got := synth.lastPlay(); !near(got.freq, neutralTones[0]) || !near(got.vol, ambientVol) {
		t.Errorf("ambient tone = %+v", got)
	}
	waitFor(t, func() bool { return len(voice.Spoken()) == 1 })
	if got := voice.Spoken()[0]; got != neutralLines[StyleDrill] {
		t.Errorf("spoken %q, want neutral drill line", got)
	}
}

func TestStableEntryHasNoVoiceLine(t *testing.T) {
	d, synth, voice := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Neutral, Stable, 0)

	if synth.playCount() != 1 {
		t.Fatalf("plays = %d, want 1", synth.playCount())
	}
	if got := synth.lastPlay(); !near(got.freq, stableTones[0]) {
		t.Errorf("tone freq = %v, want %v", got.freq, stableTones[0])
	}
	time.Sleep(20 * time.Millisecond)
	if n := len(voice.Spoken()); n != 0 {
		t.Errorf("stable entry spoke %d lines", n)
	}
}

func TestSweepOnStableToTilt(t *testing.T) {
	d, synth, _ := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Stable, Tilt, 1)

	if synth.sweepCount() != 1 {
		t.Fatalf("sweeps = %d, want 1", synth.sweepCount())
	}
	// Regular tilt alert still plays on top of the sweep.
	waitFor(t, func() bool { return synth.playCount() >= 1 })
}

func TestNoSweepFromNeutral(t *testing.T) {
	d, synth, _ := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Neutral, Tilt, 1)
	if synth.sweepCount() != 0 {
		t.Errorf("sweep played on neutral->tilt")
	}
}

func TestTiltAlarmBeats(t *testing.T) {
	d, synth, _ := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Neutral, Tilt, 1)
	// Ambient tone + immediate beat, then recurring beats.
	waitFor(t, func() bool { return synth.playCount() >= 4 })

	d.StateChanged(Tilt, Neutral, 1)
	time.Sleep(15 * time.Millisecond)
	settled := synth.playCount()
	time.Sleep(30 * time.Millisecond)
	if synth.playCount() != settled {
		t.Error("alarm kept beating after leaving tilt")
	}
}

func TestSecondTiltOverride(t *testing.T) {
	d, synth, voice := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Stable, Tilt, 2)

	waitFor(t, func() bool {
		for _, s := range voice.Spoken() {
			if strings.Contains(s, "SECOND TILT") {
				return true
			}
		}
		return false
	})
	if voice.Cancels() == 0 {
		t.Error("override did not cancel the in-flight line")
	}
	waitFor(t, func() bool {
		synth.mu.Lock()
		defer synth.mu.Unlock()
		for _, p := range synth.plays {
			if near(p.freq, overrideFreq) && p.dur == overrideDur {
				return true
			}
		}
		return false
	})
}

func TestNoOverrideOnFirstTilt(t *testing.T) {
	d, synth, voice := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Neutral, Tilt, 1)
	waitFor(t, func() bool { return len(voice.Spoken()) >= 1 })
	time.Sleep(20 * time.Millisecond)
	for _, s := range voice.Spoken() {
		if strings.Contains(s, "SECOND TILT") {
			t.Fatal("override line on first tilt")
		}
	}
	synth.mu.Lock()
	defer synth.mu.Unlock()
	for _, p := range synth.plays {
		if p.dur == overrideDur {
			t.Fatal("override tone on first tilt")
		}
	}
}

func TestEscalationLineAtThirdTilt(t *testing.T) {
	d, _, voice := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.StateChanged(Neutral, Tilt, 3)
	waitFor(t, func() bool { return len(voice.Spoken()) == 1 })
	if got := voice.Spoken()[0]; got != escalationLines[StyleDrill] {
		t.Errorf("spoken %q, want escalation line", got)
	}
}

func TestEscalationDisabledFallsBack(t *testing.T) {
	cfg := DefaultAlertConfig()
	cfg.EscalationEnabled = false
	d, _, voice := newTestDispatcher(cfg)
	defer d.Stop()

	d.StateChanged(Neutral, Tilt, 3)
	waitFor(t, func() bool { return len(voice.Spoken()) == 1 })
	if got := voice.Spoken()[0]; got != tiltLines[StyleDrill] {
		t.Errorf("spoken %q, want plain tilt line", got)
	}
}

func TestVoiceDisabled(t *testing.T) {
	cfg := DefaultAlertConfig()
	cfg.VoiceEnabled = false
	d, synth, voice := newTestDispatcher(cfg)
	defer d.Stop()

	d.StateChanged(Stable, Neutral, 0)
	if synth.playCount() != 1 {
		t.Errorf("tone suppressed along with voice")
	}
	time.Sleep(10 * time.Millisecond)
	if len(voice.Spoken()) != 0 {
		t.Error("spoke with voice disabled")
	}
}

func TestAlertsDisabled(t *testing.T) {
	cfg := DefaultAlertConfig()
	cfg.Enabled = false
	d, synth, voice := newTestDispatcher(cfg)
	defer d.Stop()

	d.StateChanged(Stable, Tilt, 2)
	d.PenaltyFeedback()
	time.Sleep(15 * time.Millisecond)
	if synth.playCount() != 0 || synth.sweepCount() != 0 {
		t.Error("tones played while disabled")
	}
	if len(voice.Spoken()) != 0 {
		t.Error("spoke while disabled")
	}
}

func TestPenaltyFeedback(t *testing.T) {
	d, synth, _ := newTestDispatcher(DefaultAlertConfig())
	defer d.Stop()

	d.PenaltyFeedback()
	if synth.playCount() != 1 {
		t.Fatalf("plays = %d, want 1", synth.playCount())
	}
	got := synth.lastPlay()
	if !near(got.freq, bassFreq) || got.dur != bassDur || !near(got.vol, bassVol) {
		t.Errorf("bass tone = %+v", got)
	}
}

func TestStopCancelsPendingAlerts(t *testing.T) {
	d, _, voice := newTestDispatcher(DefaultAlertConfig())
	d.voiceDelay = 50 * time.Millisecond
	d.StateChanged(Neutral, Tilt, 1)
	d.Stop()
	time.Sleep(70 * time.Millisecond)
	if len(voice.Spoken()) != 0 {
		t.Error("delayed line fired after Stop")
	}
	if voice.Cancels() == 0 {
		t.Error("Stop did not cancel voice")
	}
}
