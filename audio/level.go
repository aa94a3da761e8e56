package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// levelGain maps normalized RMS onto the 0-255 loudness scale. Conversational
// speech lands around 40-90; shouting directly into the mic exceeds 150.
const levelGain = 2.5

// LevelMeter accumulates raw PCM from the capture callback and reduces each
// sampling window to a single loudness average on the 0-255 scale.
//
// The capture callback and the sampler run on different goroutines, so the
// accumulator is locked. Drain resets the window.
type LevelMeter struct {
	mu         sync.Mutex
	sumSquares float64
	samples    int
}

func NewLevelMeter() *LevelMeter { return &LevelMeter{} }

// Process consumes a chunk of s16le PCM.
func (m *LevelMeter) Process(data []byte) {
	var sum float64
	n := 0
	for i := 0; i+1 < len(data); i += 2 {
		s := int16(binary.LittleEndian.Uint16(data[i:]))
		v := float64(s) / 32768.0
		sum += v * v
		n++
	}
	if n == 0 {
		return
	}
	m.mu.Lock()
	m.sumSquares += sum
	m.samples += n
	m.mu.Unlock()
}

// Drain returns the loudness average for the window accumulated since the
// previous call, scaled to 0-255, and resets the window. Returns 0 when no
// audio arrived.
func (m *LevelMeter) Drain() float64 {
	m.mu.Lock()
	sum, n := m.sumSquares, m.samples
	m.sumSquares, m.samples = 0, 0
	m.mu.Unlock()

	if n == 0 {
		return 0
	}
	rms := math.Sqrt(sum / float64(n))
	level := rms * 255 * levelGain
	if level > 255 {
		level = 255
	}
	return level
}
