// Package tone synthesizes short audible waveforms: single notes with an
// exponential decay envelope and overlapping note sequences. Playback is
// fire-and-forget; on platforms without an audio sink every call is a no-op.
package tone

import (
	"math"
	"time"
)

const sampleRate = 44100

// floor of the decay envelope; matches an exponential ramp down to 1% gain
const envFloor = 0.01

type Wave string

const (
	Sine     Wave = "sine"
	Square   Wave = "square"
	Sawtooth Wave = "sawtooth"
	Triangle Wave = "triangle"
)

// ParseWave maps a config string onto a waveform, defaulting to sine for
// anything unrecognized.
func ParseWave(s string) Wave {
	switch Wave(s) {
	case Sine, Square, Sawtooth, Triangle:
		return Wave(s)
	default:
		return Sine
	}
}

func sample(w Wave, phase float64) float64 {
	theta := phase - math.Floor(phase)
	switch w {
	case Square:
		if theta < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*theta - 1
	case Triangle:
		return 1 - 4*math.Abs(theta-0.5)
	default:
		return math.Sin(2 * math.Pi * theta)
	}
}

// Render generates one note as mono s16 samples: the waveform at freq for
// dur, starting at vol and decaying exponentially to the envelope floor.
func Render(freq float64, w Wave, dur time.Duration, vol float64) []int16 {
	if vol <= 0 || dur <= 0 {
		return nil
	}
	if vol > 1 {
		vol = 1
	}
	n := int(float64(sampleRate) * dur.Seconds())
	samples := make([]int16, n)
	ratio := envFloor / vol
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		envelope := vol * math.Pow(ratio, t)
		v := sample(w, freq*float64(i)/sampleRate) * envelope
		samples[i] = int16(v * 32767)
	}
	return samples
}

// RenderSequence generates a sequence of notes that overlap slightly (each
// note starts 70% of the way through its predecessor), mixed into one buffer.
func RenderSequence(freqs []float64, w Wave, noteDur time.Duration, vol float64) []int16 {
	if len(freqs) == 0 {
		return nil
	}
	noteLen := int(float64(sampleRate) * noteDur.Seconds())
	step := noteLen * 7 / 10
	total := step*(len(freqs)-1) + noteLen
	mixed := make([]int16, total)
	for i, f := range freqs {
		note := Render(f, w, noteDur, vol)
		off := i * step
		for j, s := range note {
			v := int32(mixed[off+j]) + int32(s)
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			mixed[off+j] = int16(v)
		}
	}
	return mixed
}

var disabled bool

// Disable turns all playback into no-ops. Used in tests and headless runs.
func Disable() { disabled = true }

// Synth is the playback front end. The zero value is ready to use.
type Synth struct{}

// Play synthesizes and plays a single note asynchronously.
func (Synth) Play(freq float64, w Wave, dur time.Duration, vol float64) {
	if disabled {
		return
	}
	go playSamples(Render(freq, w, dur, vol))
}

// Sweep plays an overlapping note sequence asynchronously.
func (Synth) Sweep(freqs []float64, w Wave, noteDur time.Duration, vol float64) {
	if disabled {
		return
	}
	go playSamples(RenderSequence(freqs, w, noteDur, vol))
}
