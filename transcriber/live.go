package transcriber

import (
	"strings"
	"sync"
)

// segment is one recognition message from the raw stream. IsFinal marks a
// settled fragment; SpeechFinal marks the end of the spoken utterance.
type segment struct {
	Text        string
	IsFinal     bool
	SpeechFinal bool
}

type rawStream interface {
	Send(pcm []byte) error
	Recv() (segment, error)
	Close() error
}

// utteranceBuilder accumulates settled fragments until the endpoint fires,
// then yields the complete utterance lowercased.
type utteranceBuilder struct {
	parts []string
}

func (b *utteranceBuilder) Add(seg segment) (string, bool) {
	if seg.IsFinal && seg.Text != "" {
		b.parts = append(b.parts, seg.Text)
	}
	if !seg.SpeechFinal || len(b.parts) == 0 {
		return "", false
	}
	text := strings.ToLower(strings.Join(b.parts, " "))
	b.parts = b.parts[:0]
	return text, true
}

type liveSession struct {
	ws         rawStream
	audioCh    chan []byte
	utterances chan string

	closeOnce sync.Once
	sendDone  chan struct{}
}

func newLiveSession(ws rawStream) *liveSession {
	s := &liveSession{
		ws:         ws,
		audioCh:    make(chan []byte, 128),
		utterances: make(chan string, 16),
		sendDone:   make(chan struct{}),
	}

	go func() {
		defer close(s.sendDone)
		for pcm := range s.audioCh {
			if err := s.ws.Send(pcm); err != nil {
				return
			}
		}
	}()

	go func() {
		defer close(s.utterances)
		var b utteranceBuilder
		for {
			seg, err := s.ws.Recv()
			if err != nil {
				return
			}
			if text, ok := b.Add(seg); ok {
				select {
				case s.utterances <- text:
				default: // consumer stalled; drop rather than block recognition
				}
			}
		}
	}()

	return s
}

// Feed queues a PCM chunk. Drops when the send queue is full so the audio
// callback never blocks.
func (s *liveSession) Feed(pcm []byte) {
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	select {
	case s.audioCh <- buf:
	default:
	}
}

func (s *liveSession) Utterances() <-chan string { return s.utterances }

func (s *liveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.audioCh)
		<-s.sendDone
		err = s.ws.Close()
	})
	return err
}
