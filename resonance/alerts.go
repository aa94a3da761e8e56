package resonance

import (
	"math/rand/v2"
	"sync"
	"time"

	"pulse/speak"
	"pulse/tone"
)

// Chord pools per state: bright major for stable, Em7 for neutral, low
// dissonance for tilt.
var (
	stableTones  = []float64{440, 523.25, 659.25, 783.99}  // A4 C5 E5 G5
	neutralTones = []float64{329.63, 392.00, 493.88, 587.33} // E4 G4 B4 D5
	tiltTones    = []float64{110, 123.47, 130.81, 146.83}
)

// sweepFreqs is the descending warning played on a sharp stable→tilt drop.
var sweepFreqs = []float64{440, 370, 294, 220} // A4 down to A3

const (
	ambientDur = 1500 * time.Millisecond
	ambientVol = 0.1
	tiltVol    = 0.25

	sweepNoteDur = 400 * time.Millisecond
	sweepVol     = 0.25

	bassFreq = 80.0
	bassDur  = 800 * time.Millisecond
	bassVol  = 0.3

	overrideFreq = 110.0
	overrideDur  = 2 * time.Second
	overrideVol  = 0.3

	escalationAt = 3
	overrideAt   = 2
)

// ToneSynth is the synthesis surface the dispatcher drives.
type ToneSynth interface {
	Play(freq float64, w tone.Wave, dur time.Duration, vol float64)
	Sweep(freqs []float64, w tone.Wave, noteDur time.Duration, vol float64)
}

type noopSynth struct{}

func (noopSynth) Play(float64, tone.Wave, time.Duration, float64)    {}
func (noopSynth) Sweep([]float64, tone.Wave, time.Duration, float64) {}

type noopVoice struct{}

func (noopVoice) Say(string) {}
func (noopVoice) Cancel()    {}

// Dispatcher translates state transitions and accepted penalties into audio
// feedback. All output is fire-and-forget; nothing here blocks or fails the
// state machinery.
type Dispatcher struct {
	synth  ToneSynth
	voice  speak.Announcer
	config func() AlertConfig
	pick   func(n int) int

	voiceDelay    time.Duration
	overrideDelay time.Duration
	alarmInterval time.Duration

	mu        sync.Mutex
	alarmStop chan struct{}
	timers    []*time.Timer
}

func NewDispatcher(synth ToneSynth, voice speak.Announcer, config func() AlertConfig) *Dispatcher {
	if config == nil {
		def := DefaultAlertConfig()
		config = func() AlertConfig { return def }
	}
	if synth == nil {
		synth = noopSynth{}
	}
	if voice == nil {
		voice = noopVoice{}
	}
	return &Dispatcher{
		synth:         synth,
		voice:         voice,
		config:        config,
		pick:          rand.IntN,
		voiceDelay:    400 * time.Millisecond,
		overrideDelay: 600 * time.Millisecond,
		alarmInterval: 2500 * time.Millisecond,
	}
}

// PenaltyFeedback plays the bass confirmation on every accepted penalty,
// independent of any state transition.
func (d *Dispatcher) PenaltyFeedback() {
	cfg := d.config()
	if !cfg.Enabled {
		return
	}
	d.synth.Play(bassFreq, cfg.Tone, bassDur, bassVol)
}

// StateChanged fires the full alert set for a transition from prev to next.
func (d *Dispatcher) StateChanged(prev, next State, tiltCount int) {
	cfg := d.config()
	if !cfg.Enabled {
		// Alerts were switched off mid-session; make sure no alarm lingers.
		d.stopAlarm()
		return
	}

	// Sharp drop straight from stable into tilt gets the descending warning
	// before the standard alert.
	if prev == Stable && next == Tilt {
		d.synth.Sweep(sweepFreqs, cfg.Tone, sweepNoteDur, sweepVol)
	}

	pool, vol := neutralTones, ambientVol
	switch next {
	case Stable:
		pool = stableTones
	case Tilt:
		pool, vol = tiltTones, tiltVol
	}
	d.synth.Play(pool[d.pick(len(pool))], cfg.Tone, ambientDur, vol)

	if next == Tilt {
		d.startAlarm()
	} else {
		d.stopAlarm()
	}

	if cfg.VoiceEnabled {
		var msg string
		switch next {
		case Neutral:
			msg = neutralLine(cfg.Style)
		case Tilt:
			if tiltCount >= escalationAt && cfg.EscalationEnabled {
				msg = escalationLine(cfg.Style)
			} else {
				msg = tiltLine(cfg.Style)
			}
		}
		// Stable entry has no voice line.
		if msg != "" {
			// Delay so the voice doesn't clash with the tone onset.
			d.after(d.voiceDelay, func() { d.voice.Say(msg) })
		}
	}

	// One-time dramatic beat the moment the second tilt lands, layered on
	// top of the regular alert.
	if next == Tilt && tiltCount == overrideAt {
		d.after(d.overrideDelay, func() {
			cfg := d.config()
			if !cfg.Enabled {
				return
			}
			d.synth.Play(overrideFreq, cfg.Tone, overrideDur, overrideVol)
			if cfg.VoiceEnabled {
				d.voice.Cancel()
				d.voice.Say(secondTiltLine(cfg.Style))
			}
		})
	}
}

// Stop cancels the continuous alarm, any pending delayed alerts, and any
// in-flight utterance.
func (d *Dispatcher) Stop() {
	d.stopAlarm()
	d.mu.Lock()
	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = nil
	d.mu.Unlock()
	d.voice.Cancel()
}

// startAlarm begins the recurring deep-bass alarm, playing immediately and
// then every alarmInterval until cancelled. No-op if already running.
func (d *Dispatcher) startAlarm() {
	d.mu.Lock()
	if d.alarmStop != nil {
		d.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	d.alarmStop = stop
	d.mu.Unlock()

	d.beat()
	go func() {
		ticker := time.NewTicker(d.alarmInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.beat()
			}
		}
	}()
}

func (d *Dispatcher) stopAlarm() {
	d.mu.Lock()
	if d.alarmStop != nil {
		close(d.alarmStop)
		d.alarmStop = nil
	}
	d.mu.Unlock()
}

func (d *Dispatcher) beat() {
	cfg := d.config()
	if !cfg.Enabled {
		return
	}
	d.synth.Play(bassFreq, cfg.Tone, bassDur, bassVol)
}

func (d *Dispatcher) after(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		fn()
		d.mu.Lock()
		for i, other := range d.timers {
			if other == t {
				d.timers = append(d.timers[:i], d.timers[i+1:]...)
				break
			}
		}
		d.mu.Unlock()
	})
	d.timers = append(d.timers, t)
}
