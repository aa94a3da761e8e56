package resonance

import (
	"context"
	"sync"
	"time"

	"pulse/audio"
	"pulse/log"
	"pulse/speak"
	"pulse/transcriber"
)

// Update is a snapshot of the monitor pushed to OnUpdate after every change.
type Update struct {
	Score     float64
	State     State
	TiltCount int
}

// Options wires a Monitor to its inputs and outputs. Capture and Transcriber
// are optional; the monitor degrades to whatever inputs it has.
type Options struct {
	Capture     audio.CaptureDevice
	Transcriber transcriber.Transcriber
	Synth       ToneSynth
	Voice       speak.Announcer
	Config      func() AlertConfig
	Classifier  *Classifier

	OnUpdate     func(Update)
	OnTilt       func(count int)
	OnInfraction func(reason string, penalty, score float64)
	OnUtterance  func(text string)
	OnLevel      func(level float64)

	Clock        func() time.Time
	TickInterval time.Duration
}

// Monitor runs the emotional resonance loop: it scores microphone loudness
// and transcribed speech, tracks the emotional state, and drives alerts.
type Monitor struct {
	mu         sync.Mutex
	engine     *Engine
	classifier *Classifier
	dispatcher *Dispatcher

	onUpdate     func(Update)
	onTilt       func(int)
	onInfraction func(string, float64, float64)
	onUtterance  func(string)
	onLevel      func(float64)

	capture      audio.CaptureDevice
	transcriber  transcriber.Transcriber
	meter        *audio.LevelMeter
	vad          *audio.VAD
	sess         transcriber.Session
	tickInterval time.Duration

	active    bool
	lastState State
	tiltCount int
	startedAt time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
}

// stateEvents is gathered under the monitor lock and emitted after unlock so
// consumers are free to call back into the monitor.
type stateEvents struct {
	update       Update
	transitioned bool
	prev         State
}

func NewMonitor(opts Options) *Monitor {
	cfg := opts.Config
	if cfg == nil {
		def := DefaultAlertConfig()
		cfg = func() AlertConfig { return def }
	}
	cl := opts.Classifier
	if cl == nil {
		cl = NewClassifier()
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	return &Monitor{
		engine:       NewEngine(opts.Clock),
		classifier:   cl,
		dispatcher:   NewDispatcher(opts.Synth, opts.Voice, cfg),
		onUpdate:     opts.OnUpdate,
		onTilt:       opts.OnTilt,
		onInfraction: opts.OnInfraction,
		onUtterance:  opts.OnUtterance,
		onLevel:      opts.OnLevel,
		capture:      opts.Capture,
		transcriber:  opts.Transcriber,
		meter:        audio.NewLevelMeter(),
		tickInterval: tick,
	}
}

// Start begins a monitoring session. The score resets to its starting value
// and input sources are acquired. Missing or failing inputs are logged and
// skipped; the monitor runs with whatever it has.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return
	}
	m.active = true
	m.engine.Reset()
	m.lastState = Stable
	m.tiltCount = 0
	m.startedAt = time.Now()
	m.stop = make(chan struct{})
	m.meter.Drain()

	if vad, err := audio.NewVAD(); err != nil {
		log.Warnf("vad unavailable, loudness will not be speech-gated: %v", err)
		m.vad = nil
	} else {
		m.vad = vad
	}

	if m.transcriber != nil {
		sess, err := m.transcriber.Listen(ctx)
		if err != nil {
			log.Warnf("transcription unavailable: %v", err)
			m.sess = nil
		} else {
			m.sess = sess
		}
	}

	if m.capture != nil {
		sess := m.sess
		m.capture.SetCallback(func(data []byte, _ uint32) {
			m.meter.Process(data)
			if m.vad != nil {
				m.vad.Process(data)
			}
			if sess != nil {
				sess.Feed(data)
			}
		})
		if err := m.capture.Start(); err != nil {
			log.Warnf("capture start failed: %v", err)
			m.capture.ClearCallback()
		}
	}

	ev := m.snapshotLocked()
	sess := m.sess
	stop := m.stop
	m.mu.Unlock()

	deviceName := "none"
	if m.capture != nil {
		deviceName = m.capture.DeviceName()
	}
	provider := "none"
	if m.transcriber != nil {
		provider = m.transcriber.Name()
	}
	log.SessionStart(provider, deviceName)

	if sess != nil {
		m.wg.Add(1)
		go m.utteranceLoop(sess, stop)
	}
	m.wg.Add(1)
	go m.tickLoop(stop)

	if m.onUpdate != nil {
		m.onUpdate(ev)
	}
}

// Stop ends the session. It is idempotent and safe to call concurrently with
// input delivery; no callback fires after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	close(m.stop)
	sess := m.sess
	m.sess = nil
	elapsed := time.Since(m.startedAt)
	score := m.engine.Score()
	tilts := m.tiltCount
	m.mu.Unlock()

	if m.capture != nil {
		m.capture.ClearCallback()
		m.capture.Stop()
	}
	if sess != nil {
		sess.Close()
	}
	m.dispatcher.Stop()
	m.wg.Wait()

	log.SessionEnd(elapsed, tilts, score)
}

// Active reports whether a session is running.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Snapshot returns the current score, state and tilt count.
func (m *Monitor) Snapshot() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Elapsed returns how long the current session has been running.
func (m *Monitor) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return 0
	}
	return time.Since(m.startedAt)
}

// HandleUtterance scores one finalized speech fragment.
func (m *Monitor) HandleUtterance(text string) {
	if m.onUtterance != nil {
		m.onUtterance(text)
	}
	log.Utterance(text)
	inf, ok := m.classifier.Utterance(text)
	if !ok {
		return
	}
	m.applyInfraction(inf)
}

// HandleLoudness scores one second of averaged microphone level. Callers
// outside the tick loop are assumed to have already established that the
// level belongs to speech.
func (m *Monitor) HandleLoudness(level float64) {
	inf, ok := m.classifier.Loudness(level)
	if !ok {
		return
	}
	m.applyInfraction(inf)
}

func (m *Monitor) applyInfraction(inf Infraction) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	if !m.engine.ApplyPenalty(inf.Penalty) {
		m.mu.Unlock()
		return
	}
	score := m.engine.Score()
	ev := m.refreshLocked()
	m.mu.Unlock()

	log.Infraction(inf.Reason, inf.Penalty, score)
	if m.onInfraction != nil {
		m.onInfraction(inf.Reason, inf.Penalty, score)
	}
	m.dispatcher.PenaltyFeedback()
	m.emit(ev)
}

func (m *Monitor) tickLoop(stop <-chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			level := m.meter.Drain()
			if m.onLevel != nil {
				m.onLevel(level)
			}
			speech := true
			if m.vad != nil {
				speech = m.vad.HasSpeechTick()
			}
			if speech {
				m.HandleLoudness(level)
			}
			m.mu.Lock()
			if !m.active {
				m.mu.Unlock()
				return
			}
			var ev stateEvents
			recovered := m.engine.RecoveryTick()
			if recovered {
				ev = m.refreshLocked()
			}
			m.mu.Unlock()
			if recovered {
				m.emit(ev)
			}
		}
	}
}

func (m *Monitor) utteranceLoop(sess transcriber.Session, stop <-chan struct{}) {
	defer m.wg.Done()
	for text := range sess.Utterances() {
		select {
		case <-stop:
			return
		default:
		}
		m.HandleUtterance(text)
	}
}

func (m *Monitor) snapshotLocked() Update {
	return Update{
		Score:     m.engine.Score(),
		State:     m.engine.State(),
		TiltCount: m.tiltCount,
	}
}

func (m *Monitor) refreshLocked() stateEvents {
	next := m.engine.State()
	prev := m.lastState
	ev := stateEvents{prev: prev}
	if next != prev {
		ev.transitioned = true
		m.lastState = next
		if next == Tilt {
			m.tiltCount++
		}
	}
	ev.update = m.snapshotLocked()
	return ev
}

func (m *Monitor) emit(ev stateEvents) {
	if ev.transitioned {
		log.Transition(ev.prev.String(), ev.update.State.String(), ev.update.Score, ev.update.TiltCount)
		if ev.update.State == Tilt && m.onTilt != nil {
			m.onTilt(ev.update.TiltCount)
		}
		m.dispatcher.StateChanged(ev.prev, ev.update.State, ev.update.TiltCount)
	}
	if m.onUpdate != nil {
		m.onUpdate(ev.update)
	}
}
