package protocol

import "time"

// SpeechSessionRequest asks a remote speech engine to capture one utterance.
type SpeechSessionRequest struct {
	SessionID       string    `json:"session_id"`
	Language        string    `json:"language"`
	InterimResults  bool      `json:"interim_results"`
	MaxAlternatives int       `json:"max_alternatives"`
	Timestamp       time.Time `json:"timestamp"`
}

// SpeechResult is the single reply to a SpeechSessionRequest. Exactly one of
// Transcript or Error is set.
type SpeechResult struct {
	SessionID  string  `json:"session_id"`
	Transcript string  `json:"transcript,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// TranslationDisplay carries rendered text for remote display surfaces.
type TranslationDisplay struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// LanguageChange is published by an external language selector.
type LanguageChange struct {
	Language string `json:"language"`
}

const (
	SubjectSpeechSessionStart = "speech.session.start"
	SubjectDisplayOutput      = "display.translation.output"
	SubjectLanguageSet        = "ui.language.set"
)
