// Package config provides the configuration structure for the SPECTER content tools.
package config

import (
	"fmt"
	"strings"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/spf13/viper"
)

// envPrefix namespaces config overrides: SPECTER_MIXER_SAMPLE_RATE, etc.
const envPrefix = "SPECTER"

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir    string `mapstructure:"base_logs_dir"    toml:"base_logs_dir"`
	ClipsDir       string `mapstructure:"clips_dir"        toml:"clips_dir"`
	EvidenceDir    string `mapstructure:"evidence_dir"     toml:"evidence_dir"`
	AudioOutputDir string `mapstructure:"audio_output_dir" toml:"audio_output_dir"`
	EnvFile        string `mapstructure:"env_file"         toml:"env_file"`
	CatalogFile    string `mapstructure:"catalog_file"     toml:"catalog_file"`
}

// ElevenLabsConfig holds the speech-synthesis service settings.
type ElevenLabsConfig struct {
	BaseURL        string `mapstructure:"base_url"        toml:"base_url"`
	ModelID        string `mapstructure:"model_id"        toml:"model_id"`
	OutputFormat   string `mapstructure:"output_format"   toml:"output_format"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// OpenAIConfig holds the image-synthesis service settings.
type OpenAIConfig struct {
	BaseURL                string  `mapstructure:"base_url"                 toml:"base_url"`
	Model                  string  `mapstructure:"model"                    toml:"model"`
	Size                   string  `mapstructure:"size"                     toml:"size"`
	Quality                string  `mapstructure:"quality"                  toml:"quality"`
	TimeoutSeconds         int     `mapstructure:"timeout_seconds"          toml:"timeout_seconds"`
	RequestIntervalSeconds float64 `mapstructure:"request_interval_seconds" toml:"request_interval_seconds"`
}

// MixerConfig holds the audio mixer settings.
type MixerConfig struct {
	SampleRate  int     `mapstructure:"sample_rate"   toml:"sample_rate"`
	CanvasMS    int     `mapstructure:"canvas_ms"     toml:"canvas_ms"`
	Seed        uint64  `mapstructure:"seed"          toml:"seed"`
	HumDB       float64 `mapstructure:"hum_db"        toml:"hum_db"`
	HumCutoffHz float64 `mapstructure:"hum_cutoff_hz" toml:"hum_cutoff_hz"`
	OutputName  string  `mapstructure:"output_name"   toml:"output_name"`
	BackupName  string  `mapstructure:"backup_name"   toml:"backup_name"`
	Bitrate     string  `mapstructure:"bitrate"       toml:"bitrate"`
	FFmpegPath  string  `mapstructure:"ffmpeg_path"   toml:"ffmpeg_path"`
}

// EvidenceConfig holds the evidence store settings.
type EvidenceConfig struct {
	Backend        string `mapstructure:"backend"         toml:"backend"` // "postgrest" or "postgres"
	Table          string `mapstructure:"table"           toml:"table"`
	PageSize       int    `mapstructure:"page_size"       toml:"page_size"`
	PublicBaseURL  string `mapstructure:"public_base_url" toml:"public_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// ArtifactsConfig configures the optional NATS object store mirror.
type ArtifactsConfig struct {
	NATSURL string `mapstructure:"nats_url" toml:"nats_url"`
	Bucket  string `mapstructure:"bucket"   toml:"bucket"`
}

// Config is the root configuration structure.
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"      toml:"paths"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs" toml:"elevenlabs"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"     toml:"openai"`
	Mixer      MixerConfig      `mapstructure:"mixer"      toml:"mixer"`
	Evidence   EvidenceConfig   `mapstructure:"evidence"   toml:"evidence"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"  toml:"artifacts"`
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("paths.base_logs_dir", "logs")
	v.SetDefault("paths.clips_dir", "scripts/audio/clips")
	v.SetDefault("paths.evidence_dir", "public/evidence")
	v.SetDefault("paths.audio_output_dir", "public/audio")
	v.SetDefault("paths.env_file", ".env.local")
	v.SetDefault("paths.catalog_file", "")

	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")
	v.SetDefault("elevenlabs.output_format", "mp3_44100_128")
	v.SetDefault("elevenlabs.timeout_seconds", 120)

	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "dall-e-3")
	v.SetDefault("openai.size", "1024x1024")
	v.SetDefault("openai.quality", "standard")
	v.SetDefault("openai.timeout_seconds", 180)
	v.SetDefault("openai.request_interval_seconds", 2.0)

	v.SetDefault("mixer.sample_rate", 44100)
	v.SetDefault("mixer.canvas_ms", 150000)
	v.SetDefault("mixer.seed", 1)
	v.SetDefault("mixer.hum_db", -40.0)
	v.SetDefault("mixer.hum_cutoff_hz", 200.0)
	v.SetDefault("mixer.output_name", "blackwood-recording.mp3")
	v.SetDefault("mixer.backup_name", "blackwood-recording-mixed.mp3")
	v.SetDefault("mixer.bitrate", "192k")
	v.SetDefault("mixer.ffmpeg_path", "ffmpeg")

	v.SetDefault("evidence.backend", "postgrest")
	v.SetDefault("evidence.table", "evidence")
	v.SetDefault("evidence.page_size", 1000)
	v.SetDefault("evidence.public_base_url", "/evidence")
	v.SetDefault("evidence.timeout_seconds", 30)

	v.SetDefault("artifacts.nats_url", "")
	v.SetDefault("artifacts.bucket", "SPECTER_ARTIFACTS")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Default returns the built-in configuration with environment overrides applied.
func Default() (*Config, error) {
	var cfg Config

	err := newViper().Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal default configuration: %w", err)
	}

	return &cfg, nil
}

// Load loads the configuration for the content tools. An explicit path is
// read as TOML on top of the defaults. Without a path the central
// configurator is consulted, and the defaults stand when it has nothing.
func Load(path string, log *logger.Logger) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if path != "" {
		log.Info("Loaded configuration from %s", path)

		return &cfg, nil
	}

	err = configurator.Load(&cfg, log)
	if err != nil {
		log.Warn("Central configuration unavailable, using defaults: %v", err)
	}

	return &cfg, nil
}
