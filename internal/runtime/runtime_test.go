package runtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loqalabs/loqa-translate/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRuntime(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Q      string `json:"q"`
			Target string `json:"target"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Q == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"translations":[{"translatedText":"`+body.Target+`:`+body.Q+`","detectedSourceLanguage":"en"}]}}`)
	}))
	t.Cleanup(provider.Close)

	cfg.Translation.Endpoint = provider.URL
	rt := New(cfg, newLogger())
	if err := rt.setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(rt.teardown)

	srv := httptest.NewServer(rt.routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]string{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestListenRendersTranslation(t *testing.T) {
	cfg := config.Default()
	cfg.Translation.SelectorDefault = "es"
	srv := newTestRuntime(t, cfg)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/listen", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if body["language"] != "en-US" {
		t.Fatalf("unexpected session language %q", body["language"])
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, view := doJSON(t, http.MethodGet, srv.URL+"/translation", "")
		if view["text"] == "Translated Text: es:hello world" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("translation never reached the display")
}

func TestLanguageSelector(t *testing.T) {
	srv := newTestRuntime(t, config.Default())

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/language", `{"language":"fr-FR"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	_, body := doJSON(t, http.MethodGet, srv.URL+"/language", "")
	if body["language"] != "fr-FR" || body["speech_language"] != "fr-FR" {
		t.Fatalf("unexpected language state %v", body)
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/language", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", resp.StatusCode)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	srv := newTestRuntime(t, config.Default())

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/translate", `{"text":"hello","target_lang":"hi"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if body["translated_text"] != "hi:hello" || body["detected_language"] != "en" {
		t.Fatalf("unexpected translation %v", body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/detect-translate", `{"text":"hola","target_lang":"en"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected detect-translate status %d", resp.StatusCode)
	}
	if body["translated_text"] != "en:hola" || body["detected_language"] != "en" {
		t.Fatalf("unexpected detect-translate body %v", body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/translate", `{"text":""}`)
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "No text provided" {
		t.Fatalf("expected 400 for empty text, got %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/translate", `{"text":"fail","target_lang":"es"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 on provider failure, got %d", resp.StatusCode)
	}

	_, view := doJSON(t, http.MethodGet, srv.URL+"/translation", "")
	if view["text"] != "" {
		t.Fatalf("lookup must not touch the display, got %q", view["text"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestRuntime(t, config.Default())

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("runtime not started should not be ready, got %d", resp.StatusCode)
	}
}

func TestBusModeWiring(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.Enabled = true
	cfg.Bus.Embedded = true
	cfg.Bus.Port = -1
	cfg.Bus.StoreDir = t.TempDir()
	cfg.Display.Mode = "bus"
	srv := newTestRuntime(t, cfg)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/translate", `{"text":"hello","target_lang":"de"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestStartShutsDownTelemetryWhenSetupFails(t *testing.T) {
	var closed atomic.Int32
	orig := telemetrySetup
	telemetrySetup = func(config.Config, *slog.Logger) (func(context.Context) error, http.Handler, error) {
		return func(context.Context) error {
			closed.Add(1)
			return nil
		}, nil, nil
	}
	t.Cleanup(func() { telemetrySetup = orig })

	cfg := config.Default()
	cfg.Speech.Mode = "bus"
	if err := New(cfg, newLogger()).Start(context.Background()); err == nil {
		t.Fatal("expected setup to fail without a bus connection")
	}
	if closed.Load() != 1 {
		t.Fatalf("expected telemetry shutdown once, got %d", closed.Load())
	}
}
