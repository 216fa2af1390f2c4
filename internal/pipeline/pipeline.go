// Package pipeline connects speech capture to translation: every final
// transcript is translated into the language selected at that moment.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/loqalabs/loqa-translate/internal/selector"
	"github.com/loqalabs/loqa-translate/internal/speech"
	"github.com/loqalabs/loqa-translate/internal/translate"
)

type Pipeline struct {
	listener  *speech.Listener
	requester *translate.Requester
	selector  *selector.Selector
}

// New wires recognizer output into requester. recognizer may be nil when the
// host has no speech capability.
func New(ctx context.Context, recognizer speech.Recognizer, speechLanguage string, requester *translate.Requester, sel *selector.Selector, logger *slog.Logger) *Pipeline {
	p := &Pipeline{requester: requester, selector: sel}
	p.listener = speech.NewListener(ctx, recognizer, speechLanguage, p.handoff, logger)
	sel.OnChange(p.listener.SetLanguage)
	return p
}

func (p *Pipeline) handoff(transcript string) {
	p.requester.Translate(transcript, p.selector.Value())
}

// Listen starts one capture session in the currently bound language.
func (p *Pipeline) Listen() *speech.Task {
	return p.listener.StartListening("")
}

func (p *Pipeline) Listener() *speech.Listener {
	return p.listener
}

func (p *Pipeline) Requester() *translate.Requester {
	return p.requester
}

// Close cancels in-flight sessions and waits for them, then cancels and
// waits for the translations they started.
func (p *Pipeline) Close() {
	p.listener.Close()
	p.requester.Close()
}
