package speech

import (
	"context"
	"errors"
	"fmt"
)

// Transcript is the finalized output of one recognition session.
type Transcript struct {
	Text       string
	Confidence float64
}

// Options configures a single capture session.
type Options struct {
	Language        string
	InterimResults  bool
	MaxAlternatives int
}

// sessionOptions returns the only configuration the listener ever uses:
// one final result with one alternative.
func sessionOptions(language string) Options {
	return Options{Language: language, InterimResults: false, MaxAlternatives: 1}
}

// Recognizer abstracts the host's speech-recognition capability. Recognize
// runs one session and resolves to exactly one transcript or an error.
type Recognizer interface {
	Recognize(ctx context.Context, opts Options) (Transcript, error)
}

// ErrCapabilityUnavailable means the host exposes no speech recognizer.
var ErrCapabilityUnavailable = errors.New("speech recognition capability unavailable")

// RecognitionError carries the provider-reported error kind, e.g. "no-speech".
type RecognitionError struct {
	Code string
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition error: %s", e.Code)
}

// ErrorCode extracts the provider code from err, or "" if err is not a
// RecognitionError.
func ErrorCode(err error) string {
	var rerr *RecognitionError
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return ""
}
