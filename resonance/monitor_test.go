package resonance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pulse/audio"
	"pulse/speak"
	"pulse/transcriber"
)

// updateSink collects OnUpdate and OnTilt callbacks.
type updateSink struct {
	mu      sync.Mutex
	updates []Update
	tilts   []int
	reasons []string
}

func (s *updateSink) onUpdate(u Update) {
	s.mu.Lock()
	s.updates = append(s.updates, u)
	s.mu.Unlock()
}

func (s *updateSink) onTilt(n int) {
	s.mu.Lock()
	s.tilts = append(s.tilts, n)
	s.mu.Unlock()
}

func (s *updateSink) onInfraction(reason string, _, _ float64) {
	s.mu.Lock()
	s.reasons = append(s.reasons, reason)
	s.mu.Unlock()
}

func (s *updateSink) last() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updates) == 0 {
		return Update{}
	}
	return s.updates[len(s.updates)-1]
}

func (s *updateSink) tiltCalls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.tilts...)
}

func (s *updateSink) infractionReasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reasons...)
}

func newTestMonitor(t *testing.T, opts Options) (*Monitor, *fakeClock, *updateSink, *recordSynth) {
	t.Helper()
	clk := newFakeClock()
	sink := &updateSink{}
	synth := &recordSynth{}
	opts.Clock = clk.Now
	opts.Synth = synth
	if opts.Voice == nil {
		opts.Voice = speak.NewFake()
	}
	opts.OnUpdate = sink.onUpdate
	opts.OnTilt = sink.onTilt
	opts.OnInfraction = sink.onInfraction
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Hour // keep the tick loop out of the way
	}
	m := NewMonitor(opts)
	m.dispatcher.voiceDelay = time.Millisecond
	m.dispatcher.overrideDelay = time.Millisecond
	m.dispatcher.alarmInterval = time.Hour
	m.dispatcher.pick = func(int) int { return 0 }
	return m, clk, sink, synth
}

func TestStartEmitsInitialUpdate(t *testing.T) {
	m, _, sink, _ := newTestMonitor(t, Options{})
	m.Start(context.Background())
	defer m.Stop()

	got := sink.last()
	if !near(got.Score, 5.0) || got.State != Stable || got.TiltCount != 0 {
		t.Errorf("initial update = %+v", got)
	}
	if !m.Active() {
		t.Error("not active after Start")
	}
}

func TestCurseSequenceScoring(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{})
	m.Start(context.Background())
	defer m.Stop()

	want := []float64{4.3, 3.6, 2.9}
	for i, w := range want {
		clk.Advance(3 * time.Second)
		m.HandleUtterance("damn slippage again")
		if got := sink.last(); !near(got.Score, w) {
			t.Fatalf("after curse %d: score = %v, want %v", i+1, got.Score, w)
		}
	}
	got := sink.last()
	if got.State != Stable || got.TiltCount != 0 {
		t.Errorf("final = %+v, want stable with no tilts", got)
	}
}

func TestDebounceAcrossSources(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{})
	m.Start(context.Background())
	defer m.Stop()

	clk.Advance(3 * time.Second)
	m.HandleLoudness(200)
	m.HandleUtterance("damn") // 1s window would land here; debounced

	got := sink.last()
	if !near(got.Score, 3.7) {
		t.Errorf("score = %v, want 3.7 (second penalty debounced)", got.Score)
	}
	reasons := sink.infractionReasons()
	if len(reasons) != 1 || reasons[0] != "Aggressive Tone" {
		t.Errorf("infractions = %v", reasons)
	}
}

func TestQuietLoudnessIgnored(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{})
	m.Start(context.Background())
	defer m.Stop()

	clk.Advance(3 * time.Second)
	m.HandleLoudness(120)
	if got := sink.last(); !near(got.Score, 5.0) {
		t.Errorf("score = %v after quiet loudness", got.Score)
	}
}

// driveToTiltEdge walks the score down to 0.8 with spaced single-curse hits.
func driveToTiltEdge(m *Monitor, clk *fakeClock) {
	for i := 0; i < 6; i++ {
		clk.Advance(3 * time.Second)
		m.HandleUtterance("damn")
	}
}

func TestStableToTiltTransition(t *testing.T) {
	m, clk, sink, synth := newTestMonitor(t, Options{})
	m.Start(context.Background())
	defer m.Stop()

	driveToTiltEdge(m, clk)
	if got := sink.last(); !near(got.Score, 0.8) || got.State != Stable {
		t.Fatalf("edge = %+v, want 0.8 stable", got)
	}

	clk.Advance(3 * time.Second)
	m.HandleUtterance("damn hell") // two curses, -1.4

	got := sink.last()
	if !near(got.Score, -0.6) || got.State != Tilt || got.TiltCount != 1 {
		t.Fatalf("after drop = %+v, want -0.6 tilt count 1", got)
	}
	if calls := sink.tiltCalls(); len(calls) != 1 || calls[0] != 1 {
		t.Errorf("OnTilt calls = %v, want [1]", calls)
	}
	if synth.sweepCount() != 1 {
		t.Errorf("sweeps = %d, want 1 on stable->tilt", synth.sweepCount())
	}
}

func TestStayingInTiltDoesNotRecount(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{})
	m.Start(context.Background())
	defer m.Stop()

	driveToTiltEdge(m, clk)
	clk.Advance(3 * time.Second)
	m.HandleUtterance("damn hell")

	clk.Advance(3 * time.Second)
	m.HandleUtterance("damn") // deeper into tilt

	got := sink.last()
	if got.State != Tilt || got.TiltCount != 1 {
		t.Errorf("got %+v, want tiltCount still 1", got)
	}
	if calls := sink.tiltCalls(); len(calls) != 1 {
		t.Errorf("OnTilt calls = %v, want exactly one", calls)
	}
}

func TestReenteringTiltIncrementsCount(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{})
	voice := speak.NewFake()
	m.dispatcher.voice = voice
	m.Start(context.Background())
	defer m.Stop()

	driveToTiltEdge(m, clk)
	clk.Advance(3 * time.Second)
	m.HandleUtterance("damn hell") // tilt #1

	// Recovery carries the score back over the boundary.
	m.mu.Lock()
	m.engine.score = 0.0
	ev := m.refreshLocked()
	m.mu.Unlock()
	m.emit(ev)

	if got := sink.last(); got.State != Neutral || got.TiltCount != 1 {
		t.Fatalf("after recovery = %+v, want neutral count 1", got)
	}

	clk.Advance(3 * time.Second)
	m.HandleUtterance("shit shit damn crap bloody") // batch -5.0, tilt #2

	got := sink.last()
	if got.State != Tilt || got.TiltCount != 2 {
		t.Fatalf("got %+v, want tiltCount 2", got)
	}
	if calls := sink.tiltCalls(); len(calls) != 2 || calls[1] != 2 {
		t.Errorf("OnTilt calls = %v, want [1 2]", calls)
	}
	// The second tilt triggers the delayed override line.
	waitFor(t, func() bool {
		for _, s := range voice.Spoken() {
			if s == secondTiltLine(StyleDrill) {
				return true
			}
		}
		return false
	})
}

func TestRecoveryThroughTickLoop(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{TickInterval: 2 * time.Millisecond})
	m.Start(context.Background())
	defer m.Stop()

	clk.Advance(3 * time.Second)
	m.HandleUtterance("shit shit damn crap bloody") // -5.0
	if got := sink.last(); !near(got.Score, 0.0) {
		t.Fatalf("score = %v, want 0.0", got.Score)
	}

	clk.Advance(31 * time.Second)
	waitFor(t, func() bool { return near(sink.last().Score, 0.25) })
}

func TestUtterancesFlowFromTranscriber(t *testing.T) {
	tr := transcriber.NewFake()
	m, clk, sink, _ := newTestMonitor(t, Options{Transcriber: tr})
	m.Start(context.Background())
	defer m.Stop()

	clk.Advance(3 * time.Second)
	tr.Session().Push("DAMN this fill")

	waitFor(t, func() bool { return len(sink.infractionReasons()) == 1 })
	if got := sink.last(); !near(got.Score, 4.3) {
		t.Errorf("score = %v, want 4.3", got.Score)
	}
}

func TestCaptureFeedsTranscriber(t *testing.T) {
	tr := transcriber.NewFake()
	dev := audio.NewFakeCapture()
	m, _, _, _ := newTestMonitor(t, Options{Transcriber: tr, Capture: dev})
	m.Start(context.Background())
	defer m.Stop()

	if !dev.Started() {
		t.Fatal("capture not started")
	}
	dev.Push(make([]byte, 640))
	if tr.Session().FedBytes() != 640 {
		t.Errorf("fed = %d, want 640", tr.Session().FedBytes())
	}
}

func TestFailOpenCaptureStart(t *testing.T) {
	dev := audio.NewFakeCapture()
	dev.FailStart(errors.New("device busy"))
	m, clk, sink, _ := newTestMonitor(t, Options{Capture: dev})

	m.Start(context.Background())
	defer m.Stop()

	if !m.Active() {
		t.Fatal("monitor gave up on capture failure")
	}
	// Speech path still scores.
	clk.Advance(3 * time.Second)
	m.HandleUtterance("damn")
	if got := sink.last(); !near(got.Score, 4.3) {
		t.Errorf("score = %v, want 4.3", got.Score)
	}
}

func TestFailOpenTranscriber(t *testing.T) {
	tr := transcriber.NewFake()
	tr.FailListen(errors.New("no network"))
	dev := audio.NewFakeCapture()
	m, _, _, _ := newTestMonitor(t, Options{Transcriber: tr, Capture: dev})

	m.Start(context.Background())
	defer m.Stop()

	if !m.Active() {
		t.Fatal("monitor gave up on transcriber failure")
	}
	if !dev.Started() {
		t.Error("capture abandoned along with transcription")
	}
	dev.Push(make([]byte, 640)) // must not panic with a nil session
}

func TestStopIsIdempotent(t *testing.T) {
	tr := transcriber.NewFake()
	dev := audio.NewFakeCapture()
	m, _, _, _ := newTestMonitor(t, Options{Transcriber: tr, Capture: dev})

	m.Start(context.Background())
	m.Stop()
	m.Stop()

	if m.Active() {
		t.Error("active after Stop")
	}
	if dev.Started() {
		t.Error("capture still running after Stop")
	}
}

func TestRestartResetsSession(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{})
	m.Start(context.Background())
	clk.Advance(3 * time.Second)
	m.HandleUtterance("shit shit damn crap bloody")
	m.Stop()

	m.Start(context.Background())
	defer m.Stop()
	got := sink.last()
	if !near(got.Score, 5.0) || got.TiltCount != 0 {
		t.Errorf("after restart = %+v, want fresh session", got)
	}
}

func TestIgnoredAfterStop(t *testing.T) {
	m, clk, sink, _ := newTestMonitor(t, Options{})
	m.Start(context.Background())
	m.Stop()

	clk.Advance(3 * time.Second)
	m.HandleUtterance("damn")
	if n := len(sink.infractionReasons()); n != 0 {
		t.Errorf("infraction recorded after Stop")
	}
}
