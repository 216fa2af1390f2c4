package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Handoff receives each finalized transcript exactly once.
type Handoff func(transcript string)

// Listener owns the lifecycle of speech capture sessions. Each session is
// configured for one final, single-alternative result and hands its
// transcript to the handoff untouched.
type Listener struct {
	recognizer Recognizer
	handoff    Handoff
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	language string

	active     atomic.Int32
	absentOnce sync.Once

	sessions metric.Int64Counter
	failures metric.Int64Counter
}

// NewListener binds recognizer to handoff. A nil recognizer models a host
// with no speech capability.
func NewListener(parent context.Context, recognizer Recognizer, defaultLanguage string, handoff Handoff, logger *slog.Logger) *Listener {
	ctx, cancel := context.WithCancel(parent)
	l := &Listener{
		recognizer: recognizer,
		handoff:    handoff,
		logger:     logger.With(slog.String("component", "speech-listener")),
		ctx:        ctx,
		cancel:     cancel,
		language:   defaultLanguage,
	}
	meter := otel.Meter("loqa-translate/speech")
	l.sessions, _ = meter.Int64Counter("speech_sessions_total", metric.WithDescription("Speech capture sessions started"))
	l.failures, _ = meter.Int64Counter("speech_errors_total", metric.WithDescription("Speech sessions that ended in an error"))
	return l
}

// SetLanguage rebinds the language used by the next session. A session
// already in flight keeps the language it started with.
func (l *Listener) SetLanguage(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	l.mu.Lock()
	l.language = code
	l.mu.Unlock()
	l.logger.Debug("speech language rebound", slog.String("language", code))
}

// Language reports the language the next session will use.
func (l *Listener) Language() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.language
}

// Listening reports whether any session is in flight.
func (l *Listener) Listening() bool {
	return l.active.Load() > 0
}

// StartListening begins one capture session. An empty languageCode uses the
// currently bound language. The returned task resolves once the session has
// produced a transcript (already handed off) or failed.
func (l *Listener) StartListening(languageCode string) *Task {
	task := newTask()
	language := strings.TrimSpace(languageCode)
	if language == "" {
		language = l.Language()
	}
	task.Language = language

	if l.recognizer == nil {
		l.absentOnce.Do(func() {
			l.logger.Error("speech recognition unavailable", slogError(ErrCapabilityUnavailable))
		})
		task.resolve(Transcript{}, ErrCapabilityUnavailable)
		return task
	}

	opts := sessionOptions(language)
	l.active.Add(1)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.active.Add(-1)
		task.resolve(l.run(opts))
	}()
	return task
}

func (l *Listener) run(opts Options) (Transcript, error) {
	ctx, span := otel.Tracer("loqa-translate/speech").Start(l.ctx, "speech.session")
	defer span.End()
	span.SetAttributes(attribute.String("speech.language", opts.Language))
	l.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("language", opts.Language)))

	l.logger.Info("speech session started", slog.String("language", opts.Language))
	transcript, err := l.recognizer.Recognize(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recognition failed")
		l.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("code", errorKind(err))))
		if errors.Is(err, ErrCapabilityUnavailable) {
			l.absentOnce.Do(func() {
				l.logger.Error("speech recognition unavailable", slogError(err))
			})
		} else {
			l.logger.Warn("speech recognition error",
				slog.String("code", ErrorCode(err)),
				slogError(err))
		}
		return Transcript{}, err
	}

	l.logger.Info("recognized speech", slog.Int("length", len(transcript.Text)))
	if l.handoff != nil {
		l.handoff(transcript.Text)
	}
	return transcript, nil
}

// Close stops outstanding sessions and waits for them to finish.
func (l *Listener) Close() {
	l.cancel()
	l.wg.Wait()
}

func errorKind(err error) string {
	if code := ErrorCode(err); code != "" {
		return code
	}
	if errors.Is(err, ErrCapabilityUnavailable) {
		return "unavailable"
	}
	return "internal"
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
