// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Engines accepted by TTS_ENGINE.
const (
	EngineGTTS   = "gtts"
	EngineGoogle = "google"
	EnginePolly  = "polly"
)

type Config struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	VoiceDirectory string `env:"VOICE_DIRECTORY" envDefault:"voices"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	Locale        string        `env:"WELCOME_LOCALE" envDefault:"fr"`
	Timezone      string        `env:"WELCOME_TIMEZONE" envDefault:"UTC"`
	Denylist      []string      `env:"WELCOME_DENYLIST" envSeparator:","`
	AnnounceMoves bool          `env:"WELCOME_ANNOUNCE_MOVES" envDefault:"false"`
	GreetingsFile string        `env:"WELCOME_GREETINGS_FILE"`
	Cooldown      time.Duration `env:"WELCOME_COOLDOWN" envDefault:"0s"`
	HistoryLimit  int           `env:"WELCOME_HISTORY_LIMIT" envDefault:"20"`

	TTSEngine  string        `env:"TTS_ENGINE" envDefault:"gtts"`
	GTTSPath   string        `env:"GTTS_PATH" envDefault:"gtts-cli"`
	TTSRate    float64       `env:"TTS_RATE" envDefault:"1"`
	TTSBurst   int           `env:"TTS_BURST" envDefault:"3"`
	TTSTimeout time.Duration `env:"TTS_TIMEOUT" envDefault:"30s"`
	TTSRetries int           `env:"TTS_RETRIES" envDefault:"3"`

	PollyRegion string `env:"POLLY_REGION" envDefault:"eu-west-3"`
	PollyVoice  string `env:"POLLY_VOICE" envDefault:"Lea"`

	GoogleAPIKey string `env:"GOOGLE_TTS_API_KEY"`
	GoogleVoice  string `env:"GOOGLE_TTS_VOICE"`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	OTELEndpoint string `env:"OTEL_ENDPOINT"`
	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Load reads .env (if any) into the environment and parses the config from it.
// The returned config is validated, except for DiscordToken which only the
// bot itself needs; see RequireToken.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Locale = strings.ToLower(strings.TrimSpace(c.Locale))
	c.TTSEngine = strings.ToLower(strings.TrimSpace(c.TTSEngine))

	ids := c.Denylist[:0]
	for _, id := range c.Denylist {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.Denylist = ids
}

// Validate checks values that the environment parser cannot.
func (c *Config) Validate() error {
	switch c.TTSEngine {
	case EngineGTTS, EngineGoogle, EnginePolly:
	default:
		return fmt.Errorf("unknown TTS_ENGINE %q", c.TTSEngine)
	}

	if c.TTSEngine == EngineGoogle && c.GoogleAPIKey == "" {
		return errors.New("GOOGLE_TTS_API_KEY is required for the google engine")
	}

	if c.Locale == "" {
		return errors.New("WELCOME_LOCALE is empty")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid WELCOME_TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.VoiceDirectory == "" {
		return errors.New("VOICE_DIRECTORY is empty")
	}

	if c.TTSRate <= 0 {
		return fmt.Errorf("TTS_RATE must be positive, got %v", c.TTSRate)
	}
	if c.TTSBurst < 1 {
		c.TTSBurst = 1
	}
	if c.TTSRetries < 1 {
		c.TTSRetries = 1
	}

	if c.Cooldown < 0 {
		return fmt.Errorf("WELCOME_COOLDOWN must not be negative, got %s", c.Cooldown)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("WELCOME_HISTORY_LIMIT must not be negative, got %d", c.HistoryLimit)
	}

	return nil
}

// RequireToken fails when DISCORD_TOKEN is not set.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	return nil
}

// Location returns the configured timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
