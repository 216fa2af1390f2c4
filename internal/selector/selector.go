// Package selector models the externally owned language control. Readers
// sample the current value at the moment they need it.
package selector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/loqalabs/loqa-translate/internal/bus"
	"github.com/loqalabs/loqa-translate/internal/protocol"
	"github.com/nats-io/nats.go"
)

type Selector struct {
	mu        sync.RWMutex
	value     string
	observers []func(string)
}

func New(initial string) *Selector {
	return &Selector{value: strings.TrimSpace(initial)}
}

// Value returns the selected code, or "" when nothing is selected.
func (s *Selector) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set changes the selection and notifies observers when it actually changed.
func (s *Selector) Set(code string) {
	code = strings.TrimSpace(code)
	s.mu.Lock()
	if code == s.value {
		s.mu.Unlock()
		return
	}
	s.value = code
	observers := append([]func(string){}, s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(code)
	}
}

// OnChange registers fn to run after every change.
func (s *Selector) OnChange(fn func(string)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Bind lets a remote UI drive the selector over protocol.SubjectLanguageSet.
func (s *Selector) Bind(client *bus.Client, logger *slog.Logger) (*nats.Subscription, error) {
	sub, err := client.Conn().Subscribe(protocol.SubjectLanguageSet, func(msg *nats.Msg) {
		var change protocol.LanguageChange
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			logger.Warn("failed to decode language change", slog.String("error", err.Error()))
			return
		}
		s.Set(change.Language)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe language changes: %w", err)
	}
	return sub, nil
}
