package display

import (
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-translate/internal/bus"
	"github.com/loqalabs/loqa-translate/internal/protocol"
)

// BusSurface publishes renderings so remote pages can display them.
type BusSurface struct {
	client *bus.Client
	logger *slog.Logger
}

func NewBusSurface(client *bus.Client, logger *slog.Logger) *BusSurface {
	return &BusSurface{client: client, logger: logger.With(slog.String("component", "display-bus"))}
}

func (b *BusSurface) Show(text string) {
	msg := protocol.TranslationDisplay{Text: text, Timestamp: time.Now().UTC()}
	if err := b.client.PublishJSON(protocol.SubjectDisplayOutput, msg); err != nil {
		b.logger.Warn("failed to publish display update", slog.String("error", err.Error()))
	}
}
