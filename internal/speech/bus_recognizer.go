package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-translate/internal/bus"
	"github.com/loqalabs/loqa-translate/internal/protocol"
	"github.com/nats-io/nats.go"
)

type busRecognizer struct {
	client *bus.Client
	window time.Duration
}

// NewBusRecognizer delegates capture to a remote speech engine listening on
// protocol.SubjectSpeechSessionStart. window bounds how long a session may
// stay open on the remote side; zero means one minute.
func NewBusRecognizer(client *bus.Client, window time.Duration) Recognizer {
	if window <= 0 {
		window = time.Minute
	}
	return &busRecognizer{client: client, window: window}
}

func (r *busRecognizer) Recognize(ctx context.Context, opts Options) (Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, r.window)
	defer cancel()

	req := protocol.SpeechSessionRequest{
		SessionID:       uuid.NewString(),
		Language:        opts.Language,
		InterimResults:  opts.InterimResults,
		MaxAlternatives: opts.MaxAlternatives,
		Timestamp:       time.Now().UTC(),
	}
	var res protocol.SpeechResult
	if err := r.client.RequestJSON(ctx, protocol.SubjectSpeechSessionStart, req, &res); err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return Transcript{}, fmt.Errorf("%w: no speech engine on bus", ErrCapabilityUnavailable)
		}
		return Transcript{}, err
	}
	if res.Error != "" {
		return Transcript{}, &RecognitionError{Code: res.Error}
	}
	return Transcript{Text: res.Transcript, Confidence: res.Confidence}, nil
}
