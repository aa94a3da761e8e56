package audio

import "sync"

// FakeCapture is an in-memory capture device for tests and the headless
// harness. Callers push PCM chunks into it; the registered callback receives
// them as if they came from a device.
type FakeCapture struct {
	mu      sync.Mutex
	cb      DataCallback
	started bool
	name    string

	startErr error
}

func NewFakeCapture() *FakeCapture {
	return &FakeCapture{name: "fake"}
}

// FailStart makes the next Start return err, for exercising the fail-open
// acquisition path.
func (f *FakeCapture) FailStart(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return f.name }

// Started reports whether the device is currently capturing.
func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Push feeds a PCM chunk to the registered callback, mimicking a device data
// callback. Dropped silently while stopped.
func (f *FakeCapture) Push(data []byte) {
	f.mu.Lock()
	cb := f.cb
	started := f.started
	f.mu.Unlock()
	if cb == nil || !started {
		return
	}
	cb(data, uint32(len(data)/BytesPerSample))
}
