package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/loqalabs/loqa-translate/internal/display"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Requester turns text into a rendered translation. Each call is independent:
// no batching, no caching, no retry and no timeout. Failures are logged and
// leave the display untouched.
type Requester struct {
	client   *Client
	surface  display.Surface
	fallback string
	label    string
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	requests metric.Int64Counter
	failures metric.Int64Counter
}

func NewRequester(parent context.Context, client *Client, surface display.Surface, fallback, label string, logger *slog.Logger) *Requester {
	ctx, cancel := context.WithCancel(parent)
	r := &Requester{
		client:   client,
		surface:  surface,
		fallback: fallback,
		label:    label,
		logger:   logger.With(slog.String("component", "translation-requester")),
		ctx:      ctx,
		cancel:   cancel,
	}
	meter := otel.Meter("loqa-translate/translate")
	r.requests, _ = meter.Int64Counter("translation_requests_total", metric.WithDescription("Outbound translation requests"))
	r.failures, _ = meter.Int64Counter("translation_errors_total", metric.WithDescription("Translation requests that failed"))
	return r
}

// Translate starts one request in the background and renders its result.
// Overlapping calls are not ordered; the last to complete wins the display.
func (r *Requester) Translate(text, targetLanguage string) {
	if text == "" {
		r.logger.Warn("dropping empty translation request")
		return
	}
	target := r.target(targetLanguage)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		result, err := r.Lookup(r.ctx, text, target)
		if err != nil {
			r.logger.Error("error translating text", slog.String("target", target), slogError(err))
			return
		}
		r.surface.Show(r.label + result.Text)
	}()
}

// Lookup performs one request and returns the first candidate without
// touching the display.
func (r *Requester) Lookup(ctx context.Context, text, targetLanguage string) (Result, error) {
	target := r.target(targetLanguage)
	ctx, span := otel.Tracer("loqa-translate/translate").Start(ctx, "translate.request")
	defer span.End()
	span.SetAttributes(attribute.String("translate.target", target))

	r.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))

	result, err := r.client.Translate(ctx, text, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "translation failed")
		r.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("target", target),
			attribute.String("kind", failureKind(err)),
		))
		return Result{}, err
	}
	if result.DetectedLanguage != "" {
		span.SetAttributes(attribute.String("translate.detected", result.DetectedLanguage))
	}
	return result, nil
}

// Wait blocks until every background request has settled.
func (r *Requester) Wait() {
	r.wg.Wait()
}

// Close aborts outstanding requests on shutdown and waits for them.
func (r *Requester) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Requester) target(code string) string {
	if code = strings.TrimSpace(code); code != "" {
		return code
	}
	return r.fallback
}

func failureKind(err error) string {
	var perr *ProviderError
	switch {
	case errors.As(err, &perr):
		return "provider"
	case errors.Is(err, ErrNoCandidates), errors.Is(err, ErrMalformedResponse):
		return "response"
	case errors.Is(err, ErrEmptyText):
		return "input"
	default:
		return "network"
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
