package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/loqalabs/loqa-translate/internal/config"
	"github.com/mattn/go-shellwords"
)

type execRecognizer struct {
	cmd       []string
	audioPath string
	mu        sync.Mutex
}

type execResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// NewExecRecognizer runs a local speech engine command once per session.
// The command receives --language and --max-alternatives, plus --audio when
// a capture file is configured, and prints a JSON result on stdout.
func NewExecRecognizer(cfg config.SpeechConfig) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("speech command is empty")
	}
	return &execRecognizer{cmd: args, audioPath: cfg.AudioPath}, nil
}

func (r *execRecognizer) Recognize(ctx context.Context, opts Options) (Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmdArgs := append([]string{}, r.cmd[1:]...)
	cmdArgs = append(cmdArgs,
		"--language", opts.Language,
		"--max-alternatives", strconv.Itoa(opts.MaxAlternatives),
	)
	if opts.InterimResults {
		cmdArgs = append(cmdArgs, "--interim")
	}
	if r.audioPath != "" {
		info, err := inspectCapture(r.audioPath)
		if err != nil {
			return Transcript{}, err
		}
		if info.Frames == 0 {
			return Transcript{}, &RecognitionError{Code: "no-speech"}
		}
		cmdArgs = append(cmdArgs, "--audio", r.audioPath)
	}

	command := exec.CommandContext(ctx, r.cmd[0], cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Transcript{}, fmt.Errorf("speech command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Transcript{}, fmt.Errorf("decode speech response: %w", err)
	}
	if resp.Error != "" {
		return Transcript{}, &RecognitionError{Code: resp.Error}
	}
	return Transcript{Text: resp.Transcript, Confidence: resp.Confidence}, nil
}

type captureInfo struct {
	SampleRate int
	Channels   int
	Frames     int
}

// inspectCapture checks that path is a readable WAV capture before it is
// handed to the engine.
func inspectCapture(path string) (captureInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return captureInfo{}, fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()

	buf, err := wav.NewDecoder(file).FullPCMBuffer()
	if err != nil {
		return captureInfo{}, fmt.Errorf("read capture: %w", err)
	}
	if buf == nil {
		return captureInfo{}, fmt.Errorf("capture %s is not a valid wav file", path)
	}
	return describeBuffer(buf), nil
}

func describeBuffer(buf *audio.IntBuffer) captureInfo {
	if buf == nil || buf.Format == nil {
		return captureInfo{}
	}
	return captureInfo{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Frames:     buf.NumFrames(),
	}
}
