package transcriber

import (
	"context"
	"strings"
	"sync"
)

// FakeTranscriber produces utterances pushed by the test instead of
// recognizing audio.
type FakeTranscriber struct {
	lang    string
	dialErr error

	mu       sync.Mutex
	sessions []*FakeSession
}

func NewFake() *FakeTranscriber { return &FakeTranscriber{} }

// FailListen makes Listen return err, for exercising the fail-open path.
func (f *FakeTranscriber) FailListen(err error) { f.dialErr = err }

func (f *FakeTranscriber) Name() string            { return "fake" }
func (f *FakeTranscriber) SetLanguage(lang string) { f.lang = lang }
func (f *FakeTranscriber) GetLanguage() string     { return f.lang }

func (f *FakeTranscriber) Listen(_ context.Context) (Session, error) {
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	s := &FakeSession{utterances: make(chan string, 16)}
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	return s, nil
}

// Session returns the most recently opened session.
func (f *FakeTranscriber) Session() *FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

type FakeSession struct {
	utterances chan string

	mu     sync.Mutex
	fed    int
	closed bool
}

// Push delivers a finalized utterance to the consumer, lowercased the way a
// real session would.
func (s *FakeSession) Push(text string) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.utterances <- strings.ToLower(text)
}

func (s *FakeSession) Feed(pcm []byte) {
	s.mu.Lock()
	s.fed += len(pcm)
	s.mu.Unlock()
}

// FedBytes reports how much PCM was fed into the session.
func (s *FakeSession) FedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fed
}

func (s *FakeSession) Utterances() <-chan string { return s.utterances }

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.utterances)
	}
	return nil
}
