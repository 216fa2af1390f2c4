package speech

import (
	"context"
	"sync"
)

// MockRecognizer returns a scripted transcript or error code. A gate, when
// set, holds every session until it is closed.
type MockRecognizer struct {
	transcript string
	errorCode  string
	gate       <-chan struct{}

	mu    sync.Mutex
	calls []Options
}

func NewMockRecognizer(transcript, errorCode string) *MockRecognizer {
	return &MockRecognizer{transcript: transcript, errorCode: errorCode}
}

// WithGate makes sessions block until gate is closed.
func (m *MockRecognizer) WithGate(gate <-chan struct{}) *MockRecognizer {
	m.gate = gate
	return m
}

func (m *MockRecognizer) Recognize(ctx context.Context, opts Options) (Transcript, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()

	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		}
	}
	if m.errorCode != "" {
		return Transcript{}, &RecognitionError{Code: m.errorCode}
	}
	return Transcript{Text: m.transcript, Confidence: 1}, nil
}

// Calls returns the options of every session started so far.
func (m *MockRecognizer) Calls() []Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Options(nil), m.calls...)
}
