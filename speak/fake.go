package speak

import "sync"

// Fake records announcements instead of speaking them. Used in tests and the
// headless harness.
type Fake struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Say(text string) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
}

func (f *Fake) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

// Spoken returns a copy of everything announced so far.
func (f *Fake) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

// Cancels returns how many times Cancel was called.
func (f *Fake) Cancels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}
