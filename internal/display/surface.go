// Package display holds the writable text region translations are rendered
// to. Every surface is overwritten wholesale; the last writer wins.
package display

import (
	"fmt"
	"io"
	"sync"
)

// Surface is a single writable text region.
type Surface interface {
	Show(text string)
}

// Memory keeps the current text in process.
type Memory struct {
	mu   sync.RWMutex
	text string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Show(text string) {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
}

// Text returns what is currently displayed.
func (m *Memory) Text() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text
}

// Writer prints each rendering as one line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Show(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.w, text)
}

// Fanout mirrors every rendering to several surfaces.
type Fanout []Surface

func (f Fanout) Show(text string) {
	for _, s := range f {
		if s != nil {
			s.Show(text)
		}
	}
}
