package speech

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/loqalabs/loqa-translate/internal/config"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func writePCMToWav(t *testing.T, pcm []byte, sampleRate, channels int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer file.Close()

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   samples,
	}
	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

func TestExecRecognizerPassesLanguage(t *testing.T) {
	// Echo the language argument back as the transcript.
	script := writeScript(t, `echo "{\"transcript\":\"$2\",\"confidence\":0.9}"`)
	rec, err := NewExecRecognizer(config.SpeechConfig{Command: script})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	got, err := rec.Recognize(context.Background(), sessionOptions("fr-FR"))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if got.Text != "fr-FR" || got.Confidence != 0.9 {
		t.Fatalf("unexpected transcript %+v", got)
	}
}

func TestExecRecognizerReportsProviderError(t *testing.T) {
	script := writeScript(t, `echo '{"error":"no-speech"}'`)
	rec, err := NewExecRecognizer(config.SpeechConfig{Command: script})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	_, err = rec.Recognize(context.Background(), sessionOptions("en-US"))
	if ErrorCode(err) != "no-speech" {
		t.Fatalf("expected no-speech, got %v", err)
	}
}

func TestExecRecognizerCommandFailure(t *testing.T) {
	script := writeScript(t, `echo boom >&2; exit 3`)
	rec, err := NewExecRecognizer(config.SpeechConfig{Command: script})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	_, err = rec.Recognize(context.Background(), sessionOptions("en-US"))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected command failure with stderr, got %v", err)
	}
}

func TestExecRecognizerWithCapture(t *testing.T) {
	pcm := make([]byte, 3200)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	capture := writePCMToWav(t, pcm, 16000, 1)
	script := writeScript(t, `echo '{"transcript":"hello world"}'`)
	rec, err := NewExecRecognizer(config.SpeechConfig{Command: script, AudioPath: capture})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	got, err := rec.Recognize(context.Background(), sessionOptions("en-US"))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if got.Text != "hello world" {
		t.Fatalf("unexpected transcript %q", got.Text)
	}

	info, err := inspectCapture(capture)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.Frames != 1600 {
		t.Fatalf("unexpected capture info %+v", info)
	}
}

func TestExecRecognizerRejectsInvalidCapture(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "capture.wav")
	if err := os.WriteFile(capture, []byte("not audio"), 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	script := writeScript(t, `echo '{"transcript":"unused"}'`)
	rec, err := NewExecRecognizer(config.SpeechConfig{Command: script, AudioPath: capture})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	if _, err := rec.Recognize(context.Background(), sessionOptions("en-US")); err == nil {
		t.Fatal("expected error for invalid capture")
	}
}

func TestNewExecRecognizerEmptyCommand(t *testing.T) {
	if _, err := NewExecRecognizer(config.SpeechConfig{Command: "  "}); err == nil {
		t.Fatal("expected error for empty command")
	}
}
