// Package config_test tests the configuration loading for the content tools.
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigTOML = `
[paths]
base_logs_dir = "/tmp/specter-logs"
clips_dir = "audio/clips"
evidence_dir = "public/evidence"

[openai]
model = "dall-e-3"
quality = "hd"
request_interval_seconds = 0.5

[mixer]
sample_rate = 48000
seed = 7

[evidence]
backend = "postgres"
page_size = 250
`

func TestConfig_TOMLTags(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	err := toml.Unmarshal([]byte(testConfigTOML), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/specter-logs", cfg.Paths.BaseLogsDir)
	assert.Equal(t, "audio/clips", cfg.Paths.ClipsDir)
	assert.Equal(t, "hd", cfg.OpenAI.Quality)
	assert.InEpsilon(t, 0.5, cfg.OpenAI.RequestIntervalSeconds, 0.001)
	assert.Equal(t, 48000, cfg.Mixer.SampleRate)
	assert.Equal(t, uint64(7), cfg.Mixer.Seed)
	assert.Equal(t, "postgres", cfg.Evidence.Backend)
	assert.Equal(t, 250, cfg.Evidence.PageSize)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg, err := config.Default()
	require.NoError(t, err)

	assert.Equal(t, "scripts/audio/clips", cfg.Paths.ClipsDir)
	assert.Equal(t, "public/evidence", cfg.Paths.EvidenceDir)
	assert.Equal(t, "public/audio", cfg.Paths.AudioOutputDir)
	assert.Equal(t, ".env.local", cfg.Paths.EnvFile)
	assert.Equal(t, "eleven_multilingual_v2", cfg.ElevenLabs.ModelID)
	assert.Equal(t, "dall-e-3", cfg.OpenAI.Model)
	assert.Equal(t, "1024x1024", cfg.OpenAI.Size)
	assert.Equal(t, "standard", cfg.OpenAI.Quality)
	assert.InEpsilon(t, 2.0, cfg.OpenAI.RequestIntervalSeconds, 0.001)
	assert.Equal(t, 150000, cfg.Mixer.CanvasMS)
	assert.Equal(t, "blackwood-recording.mp3", cfg.Mixer.OutputName)
	assert.Equal(t, "blackwood-recording-mixed.mp3", cfg.Mixer.BackupName)
	assert.Equal(t, "/evidence", cfg.Evidence.PublicBaseURL)
	assert.Equal(t, 1000, cfg.Evidence.PageSize)
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "specter.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigTOML), 0o600))

	log, err := logger.New(dir, "test.log")
	require.NoError(t, err)

	defer log.Close()

	cfg, err := config.Load(path, log)
	require.NoError(t, err)

	assert.Equal(t, "audio/clips", cfg.Paths.ClipsDir)
	assert.Equal(t, 48000, cfg.Mixer.SampleRate)
	// Unset keys keep their defaults.
	assert.Equal(t, "public/audio", cfg.Paths.AudioOutputDir)
	assert.Equal(t, "1024x1024", cfg.OpenAI.Size)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	log, err := logger.New(dir, "test.log")
	require.NoError(t, err)

	defer log.Close()

	_, err = config.Load(filepath.Join(dir, "absent.toml"), log)
	require.Error(t, err)
}

func TestRequireEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{config.EnvSupabaseURL: "https://x.supabase.co"}
	getenv := func(name string) string { return env[name] }

	_, err := config.RequireEnv(getenv, config.EnvSupabaseURL, config.EnvSupabaseServiceKey)
	require.ErrorIs(t, err, config.ErrMissingCredential)
	assert.Contains(t, err.Error(), config.EnvSupabaseServiceKey)
	assert.NotContains(t, err.Error(), config.EnvSupabaseURL)

	env[config.EnvSupabaseServiceKey] = "service-key"

	creds, err := config.RequireEnv(getenv, config.EnvSupabaseURL, config.EnvSupabaseServiceKey)
	require.NoError(t, err)
	assert.Equal(t, "service-key", creds[config.EnvSupabaseServiceKey])
}

func TestLoadEnvFile_Overrides(t *testing.T) {
	const key = "SPECTER_TEST_ENV_FILE_KEY"

	t.Setenv(key, "old")

	path := filepath.Join(t.TempDir(), ".env.local")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n"+key+"=new\n"), 0o600))

	loaded, err := config.LoadEnvFile(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "new", os.Getenv(key))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	t.Parallel()

	loaded, err := config.LoadEnvFile(filepath.Join(t.TempDir(), ".env.local"))
	require.NoError(t, err)
	assert.False(t, loaded)
}
