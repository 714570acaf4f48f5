package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Match    MatchConfig
	Backends BackendsConfig
	STT      STTConfig
	Store    StoreConfig
	Judges   JudgesConfig
	Capture  CaptureConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string
	Host           string
	Env            string // "development" or "production"
	AllowedOrigins []string
}

// MatchConfig holds the pacing of a match
type MatchConfig struct {
	IntroDelay     time.Duration
	CountdownTicks int
	TickInterval   time.Duration
	RecordDuration time.Duration
	TurnGap        time.Duration
	JudgingDelay   time.Duration
}

// BackendConfig is one text-generation binding
type BackendConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// BackendsConfig holds the text-generation bindings
type BackendsConfig struct {
	Featherless    BackendConfig
	K2             BackendConfig
	Referer        string
	Title          string
	TimeoutSeconds int
}

// STTConfig holds speech-to-text refinement settings
type STTConfig struct {
	APIKey         string
	Endpoint       string
	Model          string
	Language       string
	TimeoutSeconds int
}

// StoreConfig holds archive settings. An empty path disables the archive.
type StoreConfig struct {
	Path string
}

// JudgesConfig holds judge panel settings
type JudgesConfig struct {
	PanelFile string
	Pacing    time.Duration
}

// CaptureConfig holds capture limits
type CaptureConfig struct {
	MaxClipBytes int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json", "text" or "auto"
}

// Load reads an optional .env file, then builds configuration from
// environment variables with defaults. Variables already set win over the file.
func Load() *Config {
	_ = LoadEnvFile(getEnv("ENV_FILE", ".env"))
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Host:           getEnv("HOST", "0.0.0.0"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		},
		Match: MatchConfig{
			IntroDelay:     getEnvDuration("MATCH_INTRO_DELAY", 2500*time.Millisecond),
			CountdownTicks: getEnvInt("MATCH_COUNTDOWN_TICKS", 3),
			TickInterval:   getEnvDuration("MATCH_TICK_INTERVAL", time.Second),
			RecordDuration: time.Duration(getEnvInt("RECORD_SECONDS", 20)) * time.Second,
			TurnGap:        getEnvDuration("MATCH_TURN_GAP", 2*time.Second),
			JudgingDelay:   getEnvDuration("MATCH_JUDGING_DELAY", time.Second),
		},
		Backends: BackendsConfig{
			Featherless: BackendConfig{
				APIKey:  getEnv("FEATHERLESS_API_KEY", ""),
				BaseURL: getEnv("FEATHERLESS_BASE_URL", "https://api.featherless.ai/v1"),
				Model:   getEnv("FEATHERLESS_MODEL", "OmniDimen/OmniDimen-V1.5-4B-Emotion"),
			},
			K2: BackendConfig{
				APIKey:  getEnv("K2_API_KEY", ""),
				BaseURL: getEnv("K2_BASE_URL", ""),
				Model:   getEnv("K2_MODEL", "k2-think-v2"),
			},
			Referer:        getEnv("LLM_HTTP_REFERER", ""),
			Title:          getEnv("LLM_APP_TITLE", "raisebar"),
			TimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 60),
		},
		STT: STTConfig{
			APIKey:         getEnv("ELEVEN_LABS_API_KEY", ""),
			Endpoint:       getEnv("ELEVEN_LABS_STT_URL", "https://api.elevenlabs.io/v1/speech-to-text"),
			Model:          getEnv("ELEVEN_LABS_STT_MODEL", "scribe_v1"),
			Language:       getEnv("ELEVEN_LABS_LANGUAGE", "en"),
			TimeoutSeconds: getEnvInt("STT_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Path: getEnv("DB_PATH", "data/raisebar.db"),
		},
		Judges: JudgesConfig{
			PanelFile: getEnv("JUDGE_PANEL_FILE", ""),
			Pacing:    getEnvDuration("JUDGE_PACING", 1500*time.Millisecond),
		},
		Capture: CaptureConfig{
			MaxClipBytes: getEnvInt("MAX_CLIP_BYTES", 10<<20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "auto"),
		},
	}
}

// LoadEnvFile loads variables from path without overriding the environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the match cannot run with
func (c *Config) Validate() error {
	m := c.Match
	if m.IntroDelay <= 0 || m.TickInterval <= 0 || m.TurnGap <= 0 || m.JudgingDelay <= 0 {
		return errors.New("config: match delays must be positive")
	}
	if m.CountdownTicks <= 0 {
		return errors.New("config: MATCH_COUNTDOWN_TICKS must be positive")
	}
	if m.RecordDuration < m.TickInterval {
		return errors.New("config: RECORD_SECONDS must cover at least one tick")
	}
	if c.Judges.Pacing < 0 {
		return errors.New("config: JUDGE_PACING must not be negative")
	}
	if c.Capture.MaxClipBytes <= 0 {
		return errors.New("config: MAX_CLIP_BYTES must be positive")
	}
	switch c.Logging.Format {
	case "json", "text", "auto":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.Logging.Format)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as an integer or a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1.5s") or plain milliseconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
