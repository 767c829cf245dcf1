package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/book-expert/specter-content/internal/cli"
	"github.com/book-expert/specter-content/internal/config"
	"github.com/book-expert/specter-content/internal/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workspace struct {
	root       string
	configPath string
	clipsDir   string
	evidence   string
	audioDir   string
}

func newWorkspace(t *testing.T, extra string) *workspace {
	t.Helper()

	root := t.TempDir()
	ws := &workspace{
		root:     root,
		clipsDir: filepath.Join(root, "scripts", "audio", "clips"),
		evidence: filepath.Join(root, "public", "evidence"),
		audioDir: filepath.Join(root, "public", "audio"),
	}

	body := fmt.Sprintf(`[paths]
base_logs_dir = %q
clips_dir = %q
evidence_dir = %q
audio_output_dir = %q
env_file = %q

[openai]
request_interval_seconds = 0.0
%s`, filepath.Join(root, "logs"), ws.clipsDir, ws.evidence, ws.audioDir,
		filepath.Join(root, ".env.local"), extra)

	ws.configPath = filepath.Join(root, "specter.toml")
	require.NoError(t, os.WriteFile(ws.configPath, []byte(body), 0o600))

	return ws
}

type harness struct {
	deps   cli.Deps
	stdout *bytes.Buffer
	stderr *bytes.Buffer

	mu            sync.Mutex
	speechCalls   int
	imageRequests int
	artifactDials int
	artifacts     map[string][]byte
	store         *memoryStore
}

func newHarness(t *testing.T, env map[string]string) *harness {
	t.Helper()

	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, store: &memoryStore{}}
	h.deps = cli.Deps{
		Getenv:          func(name string) string { return env[name] },
		Stdin:           strings.NewReader(""),
		Stdout:          h.stdout,
		Stderr:          h.stderr,
		BootstrapLogDir: t.TempDir(),
		NewSpeech: func(*config.Config, string) (core.SpeechSynthesizer, error) {
			h.mu.Lock()
			defer h.mu.Unlock()

			h.speechCalls++

			return fakeSpeech{}, nil
		},
		NewImages: func(*config.Config, string) (core.ImageSynthesizer, core.ImageDownloader, error) {
			return h, h, nil
		},
		NewEvidenceStore: func(context.Context, *config.Config, config.Credentials) (core.EvidenceStore, func(), error) {
			return h.store, func() {}, nil
		},
		ConnectArtifacts: func(context.Context, string, string) (core.ObjectStore, func(), error) {
			h.mu.Lock()
			defer h.mu.Unlock()

			h.artifactDials++

			return h, func() {}, nil
		},
	}

	return h
}

func (h *harness) Upload(_ context.Context, key string, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.artifacts == nil {
		h.artifacts = map[string][]byte{}
	}

	h.artifacts[key] = data

	return nil
}

func (h *harness) Download(_ context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, "https://") {
		return []byte("png-bytes"), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.artifacts[key], nil
}

func (h *harness) GenerateImage(context.Context, string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.imageRequests++

	return "https://images.example/tmp.png", nil
}

func (h *harness) run(t *testing.T, build func(cli.Deps) *cobra.Command, args ...string) int {
	t.Helper()

	cmd := build(h.deps)
	cmd.SetArgs(args)

	return cli.ExecuteContext(context.Background(), cmd, h.stderr)
}

type fakeSpeech struct{}

func (fakeSpeech) Synthesize(_ context.Context, dst io.Writer, text, voiceID string, _ core.VoiceSettings) (int64, error) {
	n, err := io.WriteString(dst, voiceID+":"+text)

	return int64(n), err
}

func (fakeSpeech) ListVoices(context.Context) ([]core.Voice, error) {
	return []core.Voice{{ID: "v-1", Name: "Adam", Category: "premade"}}, nil
}

type memoryStore struct {
	records []core.EvidenceRecord
	updated map[string]string
}

func (m *memoryStore) ListEvidence(context.Context) ([]core.EvidenceRecord, error) {
	return m.records, nil
}

func (m *memoryStore) UpdateImageURL(_ context.Context, id, imageURL string) error {
	if m.updated == nil {
		m.updated = map[string]string{}
	}

	m.updated[id] = imageURL

	return nil
}

var speechEnv = map[string]string{config.EnvElevenLabsAPIKey: "xi-key"}

func TestVoices_TooFewIDsIsUsageError(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, speechEnv)

	code := h.run(t, cli.NewVoicesCommand, "--config", ws.configPath, "--generate", "chen", "elderly")

	assert.Equal(t, cli.ExitError, code)
	assert.Zero(t, h.speechCalls, "no client built before usage is valid")
	assert.Contains(t, h.stdout.String(), "Usage: specter-voices --generate <chen_id> <elderly_id> <young_id>")
	assert.Contains(t, h.stderr.String(), "usage error")
	assert.NoDirExists(t, ws.clipsDir)
}

const artifactsSection = `
[artifacts]
nats_url = "nats://127.0.0.1:1"
`

func TestVoices_PreflightFailuresNeverDialArtifacts(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, artifactsSection)

	usage := newHarness(t, speechEnv)
	code := usage.run(t, cli.NewVoicesCommand, "--config", ws.configPath, "--generate", "chen")
	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, usage.stderr.String(), "usage error")
	assert.Zero(t, usage.artifactDials)

	missingKey := newHarness(t, nil)
	code = missingKey.run(t, cli.NewVoicesCommand, "--config", ws.configPath, "--generate", "a", "b", "c")
	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, missingKey.stdout.String(), "ELEVENLABS_API_KEY not set!")
	assert.Zero(t, missingKey.artifactDials)

	images := newHarness(t, nil)
	code = images.run(t, cli.NewImagesCommand, "--config", ws.configPath)
	assert.Equal(t, cli.ExitError, code)
	assert.Zero(t, images.artifactDials)
}

func TestVoices_GenerateMirrorsClips(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, artifactsSection)
	h := newHarness(t, speechEnv)

	code := h.run(t, cli.NewVoicesCommand, "--config", ws.configPath, "--generate", "c-id", "e-id", "y-id")
	require.Equal(t, cli.ExitOK, code, h.stderr.String())

	assert.Equal(t, 1, h.artifactDials)
	assert.Len(t, h.artifacts, 12)
	assert.True(t, strings.HasPrefix(string(h.artifacts["clips/elderly_whisper.mp3"]), "e-id:"))
}

func TestVoices_MissingKey(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, nil)

	code := h.run(t, cli.NewVoicesCommand, "--config", ws.configPath, "--generate", "a", "b", "c")

	assert.Equal(t, cli.ExitError, code)
	assert.Zero(t, h.speechCalls)
	assert.Contains(t, h.stdout.String(), "ELEVENLABS_API_KEY not set!")
	assert.Contains(t, h.stderr.String(), config.ErrMissingCredential.Error())
}

func TestVoices_ListsVoicesWithoutGenerate(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, speechEnv)

	code := h.run(t, cli.NewVoicesCommand, "--config", ws.configPath)

	assert.Equal(t, cli.ExitOK, code)
	assert.Contains(t, h.stdout.String(), "Name: Adam")
	assert.Contains(t, h.stdout.String(), "specter-voices --generate <chen_id> <elderly_id> <young_id>")
}

func TestVoices_Generate(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, speechEnv)

	code := h.run(t, cli.NewVoicesCommand, "--config", ws.configPath, "--generate", "c-id", "e-id", "y-id")
	require.Equal(t, cli.ExitOK, code, h.stderr.String())

	entries, err := os.ReadDir(ws.clipsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 12)

	whisper, err := os.ReadFile(filepath.Join(ws.clipsDir, "elderly_whisper.mp3"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(whisper), "e-id:"))
	assert.Contains(t, h.stdout.String(), "GENERATION COMPLETE!")
	assert.Contains(t, h.stdout.String(), "Generated: 12")
}

func TestImages_AllExist(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, map[string]string{config.EnvOpenAIAPIKey: "sk-test"})

	cat, err := catalog.Default()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(ws.evidence, 0o750))

	for _, spec := range cat.EvidenceImages {
		require.NoError(t, os.WriteFile(filepath.Join(ws.evidence, spec.Filename), []byte("png"), 0o600))
	}

	code := h.run(t, cli.NewImagesCommand, "--config", ws.configPath)

	assert.Equal(t, cli.ExitOK, code)
	assert.Zero(t, h.imageRequests)
	assert.Contains(t, h.stdout.String(), "All images already exist! Nothing to generate.")
}

func TestImages_DeclineAndYes(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, map[string]string{config.EnvOpenAIAPIKey: "sk-test"})
	h.deps.Stdin = strings.NewReader("n\n")

	code := h.run(t, cli.NewImagesCommand, "--config", ws.configPath)
	assert.Equal(t, cli.ExitOK, code)
	assert.Zero(t, h.imageRequests)
	assert.Contains(t, h.stdout.String(), "Estimated cost: $0.68")
	assert.Contains(t, h.stdout.String(), "Aborted.")
	assert.NoDirExists(t, ws.evidence)

	code = h.run(t, cli.NewImagesCommand, "--config", ws.configPath, "--yes")
	require.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Equal(t, 17, h.imageRequests)
	assert.Contains(t, h.stdout.String(), "Success: 17")

	data, err := os.ReadFile(filepath.Join(ws.evidence, "hartwell-thermal.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestImages_MissingKey(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, nil)

	code := h.run(t, cli.NewImagesCommand, "--config", ws.configPath)

	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, h.stdout.String(), "ERROR: OPENAI_API_KEY environment variable not set")
}

func TestEvidence_MissingCredentials(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, map[string]string{config.EnvSupabaseURL: "https://x.supabase.co"})

	code := h.run(t, cli.NewEvidenceCommand, "--config", ws.configPath)

	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, h.stdout.String(), "Error: Database credentials not found.")
	assert.Contains(t, h.stdout.String(), config.EnvSupabaseServiceKey)
}

func TestEvidence_PostgresBackendNeedsDatabaseURL(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "\n[evidence]\nbackend = \"postgres\"\n")
	h := newHarness(t, map[string]string{
		config.EnvSupabaseURL:        "https://x.supabase.co",
		config.EnvSupabaseServiceKey: "service",
	})

	code := h.run(t, cli.NewEvidenceCommand, "--config", ws.configPath)

	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, h.stdout.String(), config.EnvDatabaseURL)
}

func TestEvidence_UnknownBackend(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "\n[evidence]\nbackend = \"sqlite\"\n")
	h := newHarness(t, nil)

	code := h.run(t, cli.NewEvidenceCommand, "--config", ws.configPath)

	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, h.stderr.String(), cli.ErrUnknownBackend.Error())
}

func TestEvidence_UpdatesRows(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, map[string]string{
		config.EnvSupabaseURL:        "https://x.supabase.co",
		config.EnvSupabaseServiceKey: "service",
	})
	h.store.records = []core.EvidenceRecord{{ID: "11", Title: "Property Records"}}

	require.NoError(t, os.MkdirAll(ws.evidence, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(ws.evidence, "hartwell-property-records.png"), []byte("png"), 0o600))

	code := h.run(t, cli.NewEvidenceCommand, "--config", ws.configPath)
	require.Equal(t, cli.ExitOK, code, h.stderr.String())

	assert.Equal(t, map[string]string{"11": "/evidence/hartwell-property-records.png"}, h.store.updated)
	assert.Contains(t, h.stdout.String(), "SPECTER Evidence Image Database Updater")
	assert.Contains(t, h.stdout.String(), "Updated: 1")
}

func TestMix_AllPlaceholders(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, `
[mixer]
sample_rate = 8000
output_name = "blackwood-recording.wav"
backup_name = "blackwood-recording-mixed.wav"
`)
	h := newHarness(t, nil)

	code := h.run(t, cli.NewMixCommand, "--config", ws.configPath)
	require.Equal(t, cli.ExitOK, code, h.stderr.String())

	assert.FileExists(t, filepath.Join(ws.audioDir, "blackwood-recording.wav"))
	assert.FileExists(t, filepath.Join(ws.clipsDir, "blackwood-recording-mixed.wav"))
	assert.Contains(t, h.stdout.String(), "MIXING THE BLACKWOOD RECORDING")
	assert.Contains(t, h.stdout.String(), "Duration: 31.3 seconds")
	assert.Contains(t, h.stdout.String(), "Placeholders used for 12 missing clips")
}

func TestCommonFlags_BadCatalog(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t, "")
	h := newHarness(t, nil)

	code := h.run(t, cli.NewMixCommand, "--config", ws.configPath, "--catalog", filepath.Join(ws.root, "absent.toml"))

	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, h.stderr.String(), "failed to load catalog")
}
