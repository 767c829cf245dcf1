package imagegen_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/book-expert/specter-content/internal/imagegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("content policy rejection")

type fakeSynth struct {
	prompts []string
	failOn  map[string]bool
}

func (f *fakeSynth) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.failOn[prompt] {
		return "", errRejected
	}

	return "https://images.example/" + prompt, nil
}

type fakeDownloader struct{}

func (fakeDownloader) Download(_ context.Context, url string) ([]byte, error) {
	return []byte("png:" + url), nil
}

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++

	return ctx.Err()
}

type fixedConfirmer struct {
	answer  bool
	prompts []string
}

func (c *fixedConfirmer) Confirm(prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)

	return c.answer, nil
}

var testSpecs = []catalog.EvidenceImageSpec{
	{Filename: "a.png", Case: "Hartwell", Evidence: "Police Report", Prompt: "p-a"},
	{Filename: "b.png", Case: "Hartwell", Evidence: "Thermal", Prompt: "p-b"},
	{Filename: "c.png", Case: "Blackwood", Evidence: "Waveform", Prompt: "p-c"},
}

type fixture struct {
	dir       string
	synth     *fakeSynth
	pacer     *countingPacer
	confirmer *fixedConfirmer
	out       *bytes.Buffer
	gen       *imagegen.Generator
}

func newFixture(t *testing.T, answer bool, quality string) *fixture {
	t.Helper()

	dir := t.TempDir()

	log, err := logger.New(dir, "imagegen-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	f := &fixture{
		dir:       filepath.Join(dir, "evidence"),
		synth:     &fakeSynth{failOn: map[string]bool{}},
		pacer:     &countingPacer{},
		confirmer: &fixedConfirmer{answer: answer},
		out:       &bytes.Buffer{},
	}

	f.gen, err = imagegen.NewGenerator(imagegen.Dependencies{
		Synth:      f.synth,
		Downloader: fakeDownloader{},
		Pacer:      f.pacer,
		Confirmer:  f.confirmer,
		Log:        log,
		Out:        f.out,
	}, f.dir, quality)
	require.NoError(t, err)

	return f
}

func TestRun_AllExist(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, "standard")
	require.NoError(t, os.MkdirAll(f.dir, 0o750))

	for _, spec := range testSpecs {
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, spec.Filename), []byte("original "+spec.Filename), 0o600))
	}

	result, err := f.gen.Run(context.Background(), "run", testSpecs)
	require.NoError(t, err)

	assert.Contains(t, f.out.String(), "All images already exist! Nothing to generate.")
	assert.Empty(t, f.synth.prompts)
	assert.Empty(t, f.confirmer.prompts)
	assert.Zero(t, f.pacer.waits)
	assert.Equal(t, 3, result.Tally.Skipped)

	for _, spec := range testSpecs {
		data, readErr := os.ReadFile(filepath.Join(f.dir, spec.Filename))
		require.NoError(t, readErr)
		assert.Equal(t, "original "+spec.Filename, string(data))
	}
}

func TestRun_GeneratesOnlyMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, "hd")
	require.NoError(t, os.MkdirAll(f.dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "a.png"), []byte("keep"), 0o600))

	result, err := f.gen.Run(context.Background(), "run", testSpecs)
	require.NoError(t, err)
	assert.False(t, result.Aborted)

	assert.Equal(t, []string{"p-b", "p-c"}, f.synth.prompts)
	assert.Equal(t, 2, f.pacer.waits)
	assert.Equal(t, 1, result.Tally.Skipped)
	assert.Equal(t, 2, result.Tally.Succeeded)

	data, err := os.ReadFile(filepath.Join(f.dir, "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "png:https://images.example/p-b", string(data))

	out := f.out.String()
	assert.Contains(t, out, "Skipping 1 existing images")
	assert.Contains(t, out, "Estimated cost: $0.16")
	assert.Contains(t, out, "[Case: Hartwell]")
	assert.Contains(t, out, "[Case: Blackwood]")
	assert.Contains(t, out, "(1/2) Thermal")
	assert.Contains(t, out, "(2/2) Waveform")
	assert.Equal(t, []string{"Proceed with image generation? (y/n): "}, f.confirmer.prompts)
}

func TestRun_Declined(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false, "standard")

	result, err := f.gen.Run(context.Background(), "run", testSpecs)
	require.NoError(t, err)
	assert.True(t, result.Aborted)
	assert.Contains(t, f.out.String(), "Estimated cost: $0.12")
	assert.Contains(t, f.out.String(), "Aborted.")
	assert.Empty(t, f.synth.prompts)

	_, err = os.Stat(f.dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_IsolatesFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, "standard")
	f.synth.failOn["p-a"] = true

	result, err := f.gen.Run(context.Background(), "run", testSpecs)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Tally.Succeeded)
	require.Equal(t, 1, result.Tally.Failed())
	assert.Equal(t, "a.png", result.Tally.Failures[0].Item)
	require.ErrorIs(t, result.Tally.Failures[0].Err, errRejected)

	_, err = os.Stat(filepath.Join(f.dir, "a.png"))
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(f.dir, "c.png"))
}

func TestEstimateCost(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.36, imagegen.EstimateCost(17, "hd"), 1e-9)
	assert.InDelta(t, 0.68, imagegen.EstimateCost(17, "standard"), 1e-9)
	assert.Zero(t, imagegen.EstimateCost(0, "hd"))
}

func TestLineConfirmer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"  Y  \n", true},
		{"y", true},
		{"yes\n", false},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tc := range tests {
		var out bytes.Buffer

		confirmer := imagegen.NewLineConfirmer(strings.NewReader(tc.input), &out)

		got, err := confirmer.Confirm("Proceed? ")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Equal(t, "Proceed? ", out.String())
	}
}

func TestNewPacer(t *testing.T) {
	t.Parallel()

	pacer := imagegen.NewPacer(time.Hour)

	// The first wait is immediate.
	require.NoError(t, pacer.Wait(context.Background()))

	// The next would exceed the deadline, so Wait fails straight away.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.Error(t, pacer.Wait(ctx))

	unpaced := imagegen.NewPacer(0)
	for range 5 {
		require.NoError(t, unpaced.Wait(context.Background()))
	}

	assert.Equal(t, 2*time.Second, imagegen.IntervalFromSeconds(2))
	assert.Zero(t, imagegen.IntervalFromSeconds(-1))
}
