package speech

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/loqalabs/loqa-translate/internal/bus"
	"github.com/loqalabs/loqa-translate/internal/config"
	"github.com/loqalabs/loqa-translate/internal/natsserver"
	"github.com/loqalabs/loqa-translate/internal/protocol"
	"github.com/nats-io/nats.go"
)

func connectBus(t *testing.T) *bus.Client {
	t.Helper()
	srv, err := natsserver.StartEphemeral(newLogger())
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	client, err := bus.Connect(context.Background(), config.BusConfig{Servers: []string{srv.ClientURL()}, ConnectTimeout: 2000}, "speech-test", newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func serveEngine(t *testing.T, client *bus.Client, reply func(protocol.SpeechSessionRequest) protocol.SpeechResult) {
	t.Helper()
	sub, err := client.Conn().Subscribe(protocol.SubjectSpeechSessionStart, func(msg *nats.Msg) {
		var req protocol.SpeechSessionRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return
		}
		data, _ := json.Marshal(reply(req))
		_ = msg.Respond(data)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := client.Conn().Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	t.Cleanup(func() { _ = sub.Unsubscribe() })
}

func TestBusRecognizerTranscript(t *testing.T) {
	client := connectBus(t)
	serveEngine(t, client, func(req protocol.SpeechSessionRequest) protocol.SpeechResult {
		if req.SessionID == "" || req.MaxAlternatives != 1 || req.InterimResults {
			return protocol.SpeechResult{Error: "bad-request"}
		}
		return protocol.SpeechResult{SessionID: req.SessionID, Transcript: "hola " + req.Language}
	})

	rec := NewBusRecognizer(client, 2*time.Second)
	got, err := rec.Recognize(context.Background(), sessionOptions("es-ES"))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if got.Text != "hola es-ES" {
		t.Fatalf("unexpected transcript %q", got.Text)
	}
}

func TestBusRecognizerProviderError(t *testing.T) {
	client := connectBus(t)
	serveEngine(t, client, func(req protocol.SpeechSessionRequest) protocol.SpeechResult {
		return protocol.SpeechResult{SessionID: req.SessionID, Error: "no-speech"}
	})

	rec := NewBusRecognizer(client, 2*time.Second)
	_, err := rec.Recognize(context.Background(), sessionOptions("en-US"))
	if ErrorCode(err) != "no-speech" {
		t.Fatalf("expected no-speech, got %v", err)
	}
}

func TestBusRecognizerWithoutEngine(t *testing.T) {
	client := connectBus(t)
	rec := NewBusRecognizer(client, time.Second)
	_, err := rec.Recognize(context.Background(), sessionOptions("en-US"))
	if !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("expected capability error, got %v", err)
	}
}
