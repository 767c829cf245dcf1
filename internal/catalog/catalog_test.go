package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Contents(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"chen", "elderly", "young"}, cat.RoleNames())
	require.Len(t, cat.Dialogue, 12)
	assert.Equal(t, "chen_01_intro.mp3", cat.Dialogue[0].Filename)
	assert.Equal(t, "chen_possessed.mp3", cat.Dialogue[11].Filename)
	assert.Len(t, cat.EvidenceImages, 17)
	assert.Len(t, cat.EvidenceLinks, 17)
	assert.Equal(t, "hartwell-property-records.png", cat.ImageMap()["Property Records"])
	assert.Equal(t, "hartwell-emma-drawing.png", cat.ImageMap()["Interview: Emma Hartwell (Age 7)"])

	whisper := cat.Dialogue[9]
	assert.Equal(t, "elderly", whisper.Role)
	assert.InEpsilon(t, 0.3, whisper.Stability, 0.001)
	assert.InEpsilon(t, 0.5, whisper.Similarity, 0.001)
}

func TestDefault_MixTimeline(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)

	assert.Equal(t, 3, cat.Mix.ReverbTaps)
	assert.Len(t, cat.Mix.Steps, 16)

	clips := cat.Mix.ClipNames()
	require.Len(t, clips, 12)

	dialogue := make(map[string]struct{}, len(cat.Dialogue))
	for _, line := range cat.Dialogue {
		dialogue[line.Filename] = struct{}{}
	}

	for _, clip := range clips {
		assert.Contains(t, dialogue, clip)
	}
}

func TestAssignVoices(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)

	_, err = cat.AssignVoices([]string{"a", "b"})
	require.ErrorIs(t, err, catalog.ErrNotEnoughVoices)

	voices, err := cat.AssignVoices([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chen": "a", "elderly": "b", "young": "c"}, voices)
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	const roles = `
[voices]
[[voices.roles]]
name = "chen"
`

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name: "duplicate dialogue filename",
			body: roles + `
[[dialogue]]
filename = "a.mp3"
role = "chen"
text = "one"
[[dialogue]]
filename = "a.mp3"
role = "chen"
text = "two"
`,
			wantErr: catalog.ErrDuplicateFilename,
		},
		{
			name: "undeclared role",
			body: roles + `
[[dialogue]]
filename = "a.mp3"
role = "ghost"
text = "boo"
`,
			wantErr: catalog.ErrUnknownRole,
		},
		{
			name: "duplicate image filename",
			body: `
[[evidence_images]]
filename = "x.png"
prompt = "p"
[[evidence_images]]
filename = "x.png"
prompt = "q"
`,
			wantErr: catalog.ErrDuplicateFilename,
		},
		{
			name: "step with clip and static",
			body: `
[[mix.steps]]
clip = "a.mp3"
static_ms = 100
advance_ms = 100
`,
			wantErr: catalog.ErrInvalidCatalog,
		},
		{
			name: "static without advance",
			body: `
[[mix.steps]]
static_ms = 100
`,
			wantErr: catalog.ErrInvalidCatalog,
		},
		{
			name: "stability out of range",
			body: roles + `
[[dialogue]]
filename = "a.mp3"
role = "chen"
text = "one"
stability = 1.5
`,
			wantErr: catalog.ErrInvalidCatalog,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := catalog.Decode(strings.NewReader(tc.body))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDecode_MixEffectDefaults(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Decode(strings.NewReader(`
[mix]
[[mix.steps]]
clip = "a.mp3"
reverb_delay_ms = 80
`))
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultReverbTaps, cat.Mix.ReverbTaps)
	assert.InDelta(t, catalog.DefaultReverbStepDB, cat.Mix.ReverbStepDB, 1e-9)
	assert.Equal(t, catalog.DefaultStaticFadeMS, cat.Mix.StaticFadeMS)

	cat, err = catalog.Decode(strings.NewReader(`
[mix]
reverb_taps = 1
static_fade_ms = 20
`))
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Mix.ReverbTaps)
	assert.InDelta(t, catalog.DefaultReverbStepDB, cat.Mix.ReverbStepDB, 1e-9)
	assert.Equal(t, 20, cat.Mix.StaticFadeMS)
}

func TestDecode_UnknownKey(t *testing.T) {
	t.Parallel()

	_, err := catalog.Decode(strings.NewReader("[[dialogue]]\nfilenam = \"typo.mp3\"\n"))
	require.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.toml")
	body := `
[[evidence_links]]
title = "Property Records"
filename = "records.png"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cat, err := catalog.Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Property Records": "records.png"}, cat.ImageMap())
	assert.Empty(t, cat.Dialogue)
}
