// Package transcriber turns the live microphone feed into finalized speech
// utterances. The monitor consumes utterances as discrete events; interim
// partial results are never surfaced.
package transcriber

import (
	"context"
	"fmt"
	"os"
)

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	// Listen opens a continuous recognition session. Feed it raw s16le PCM;
	// read finalized lowercase utterances from Utterances. The channel closes
	// when the stream ends.
	Listen(ctx context.Context) (Session, error)
}

type Session interface {
	Feed(pcm []byte)
	Utterances() <-chan string
	Close() error
}

// New builds a transcriber from the environment. Speech analysis is an
// enhancement; callers treat an error as "run without utterance input".
func New() (Transcriber, error) {
	if key := os.Getenv("DEEPGRAM_API_KEY"); key != "" {
		return NewDeepgram(key), nil
	}
	return nil, fmt.Errorf("set DEEPGRAM_API_KEY environment variable")
}
