package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	// TraceStdout prints spans when no OTLP endpoint is configured.
	TraceStdout bool `yaml:"trace_stdout"`
}

type HTTPConfig struct {
	Bind           string   `yaml:"bind"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	EnvFile     string            `yaml:"env_file"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	Speech      SpeechConfig      `yaml:"speech"`
	Translation TranslationConfig `yaml:"translation"`
	Display     DisplayConfig     `yaml:"display"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type SpeechConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Mode      string `yaml:"mode"` // mock, exec, bus
	Command   string `yaml:"command"`
	AudioPath string `yaml:"audio_path"`
	Language  string `yaml:"language"`
	// SessionWindowMS bounds a remote session in bus mode.
	SessionWindowMS int `yaml:"session_window_ms"`
	// MockTranscript and MockError script the mock recognizer.
	MockTranscript string `yaml:"mock_transcript"`
	MockError      string `yaml:"mock_error"`
}

type TranslationConfig struct {
	Endpoint        string `yaml:"endpoint"`
	APIKey          string `yaml:"api_key"`
	FallbackLang    string `yaml:"fallback_language"`
	SelectorDefault string `yaml:"selector_default"`
}

type DisplayConfig struct {
	Mode  string `yaml:"mode"` // memory, stdout, bus
	Label string `yaml:"label"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-translate",
		Environment: "development",
		EnvFile:     ".env",
		HTTP: HTTPConfig{
			Bind:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Speech: SpeechConfig{
			Enabled:         true,
			Mode:            "mock",
			Language:        "en-US",
			SessionWindowMS: 60000,
			MockTranscript:  "hello world",
		},
		Translation: TranslationConfig{
			Endpoint:     "https://translation.googleapis.com/language/translate/v2",
			FallbackLang: "en",
		},
		Display: DisplayConfig{
			Mode:  "memory",
			Label: "Translated Text: ",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadEnvFile populates the process environment from a dotenv file. Values
// already present in the environment win.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LOQA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_HTTP_PORT")
	overrideStringSlice(&cfg.HTTP.AllowedOrigins, "LOQA_HTTP_ALLOWED_ORIGINS")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "LOQA_TELEMETRY_TRACE_STDOUT")
	overrideBool(&cfg.Bus.Enabled, "LOQA_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOQA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LOQA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Speech.Enabled, "LOQA_SPEECH_ENABLED")
	overrideString(&cfg.Speech.Mode, "LOQA_SPEECH_MODE")
	overrideString(&cfg.Speech.Command, "LOQA_SPEECH_COMMAND")
	overrideString(&cfg.Speech.AudioPath, "LOQA_SPEECH_AUDIO_PATH")
	overrideString(&cfg.Speech.Language, "LOQA_SPEECH_LANGUAGE")
	overrideInt(&cfg.Speech.SessionWindowMS, "LOQA_SPEECH_SESSION_WINDOW_MS")
	overrideString(&cfg.Speech.MockTranscript, "LOQA_SPEECH_MOCK_TRANSCRIPT")
	overrideString(&cfg.Speech.MockError, "LOQA_SPEECH_MOCK_ERROR")
	overrideString(&cfg.Translation.Endpoint, "LOQA_TRANSLATE_ENDPOINT")
	overrideString(&cfg.Translation.APIKey, "LOQA_TRANSLATE_API_KEY")
	overrideString(&cfg.Translation.FallbackLang, "LOQA_TRANSLATE_FALLBACK_LANGUAGE")
	overrideString(&cfg.Translation.SelectorDefault, "LOQA_TRANSLATE_SELECTOR_DEFAULT")
	overrideString(&cfg.Display.Mode, "LOQA_DISPLAY_MODE")
	overrideString(&cfg.Display.Label, "LOQA_DISPLAY_LABEL")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

// Validate reports the first configuration problem found.
func Validate(cfg Config) error {
	return validate(cfg)
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Speech.Enabled {
		switch cfg.Speech.Mode {
		case "mock", "exec":
		case "bus":
			if !cfg.Bus.Enabled {
				return errors.New("speech.mode=bus requires bus.enabled")
			}
		default:
			return errors.New("speech.mode must be one of mock|exec|bus")
		}
		if cfg.Speech.Mode == "exec" && cfg.Speech.Command == "" {
			return errors.New("speech.command must be set when mode=exec")
		}
	}
	if cfg.Translation.Endpoint == "" {
		return errors.New("translation.endpoint must not be empty")
	}
	if cfg.Translation.FallbackLang == "" {
		return errors.New("translation.fallback_language must not be empty")
	}
	switch cfg.Display.Mode {
	case "memory", "stdout":
	case "bus":
		if !cfg.Bus.Enabled {
			return errors.New("display.mode=bus requires bus.enabled")
		}
	default:
		return errors.New("display.mode must be one of memory|stdout|bus")
	}
	return nil
}
