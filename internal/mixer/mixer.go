// Package mixer assembles the Blackwood recording from its dialogue clips
// and generated effects, following the catalog's timeline.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/audio"
	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/book-expert/specter-content/internal/fsutil"
	"github.com/book-expert/specter-content/internal/objectstore"
)

// Defaults for the Blackwood recording.
const (
	DefaultCanvasMS    = 150000
	DefaultHumDB       = -40.0
	DefaultHumCutoffHz = 200.0
	HeadroomDB         = 0.1
	PlaceholderMS      = 1000
)

const (
	logFmtMissingClip = "[%s] Clip %s not found, using %d ms of silence"
	logFmtOverrun     = "[%s] Timeline ends at %d ms, past the %d ms canvas; output is cut at the canvas"
	logFmtExported    = "[%s] Exported %s (%d ms)"
	logFmtPlaced      = "[%s] Placed %s at %d ms (%d ms)"
)

// Static errors.
var (
	ErrClipsDirEmpty = errors.New("clips directory cannot be empty")
	ErrNoOutputs     = errors.New("at least one output path is required")
	ErrSampleRate    = errors.New("sample rate must be positive")
)

// Exporter writes a finished segment to a file.
type Exporter interface {
	ExportFile(ctx context.Context, seg *audio.Segment, path, bitrate string) error
}

// Options configures a Mixer.
type Options struct {
	ClipsDir    string
	OutputPaths []string
	SampleRate  int
	CanvasMS    int
	Seed        uint64
	HumDB       float64
	HumCutoffHz float64
	Bitrate     string
}

// Event is one placement on the timeline.
type Event struct {
	Name       string
	StartMS    int
	DurationMS int
}

// Result describes a finished mix.
type Result struct {
	Segment  *audio.Segment
	Events   []Event
	CursorMS int
	Missing  []string
	Outputs  []string
}

// Mixer builds and exports the recording.
type Mixer struct {
	opts     Options
	mix      catalog.Mix
	exporter Exporter
	log      *logger.Logger
	mirror   *objectstore.Mirror
	out      io.Writer
}

// New creates a mixer for the given timeline. mirror may be nil.
func New(
	opts Options,
	mix catalog.Mix,
	exporter Exporter,
	log *logger.Logger,
	out io.Writer,
	mirror *objectstore.Mirror,
) (*Mixer, error) {
	if opts.ClipsDir == "" {
		return nil, ErrClipsDirEmpty
	}

	if len(opts.OutputPaths) == 0 {
		return nil, ErrNoOutputs
	}

	if opts.SampleRate == 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}

	if opts.SampleRate < 0 {
		return nil, ErrSampleRate
	}

	if opts.CanvasMS <= 0 {
		opts.CanvasMS = DefaultCanvasMS
	}

	if opts.HumCutoffHz <= 0 {
		opts.HumCutoffHz = DefaultHumCutoffHz
	}

	if out == nil {
		out = io.Discard
	}

	return &Mixer{opts: opts, mix: mix, exporter: exporter, log: log, mirror: mirror, out: out}, nil
}

// LoadClips decodes every clip the timeline names. A missing file becomes
// a second of silence and is reported in the returned list; a file that
// exists but cannot be decoded is an error.
func (m *Mixer) LoadClips(runID string) (map[string]*audio.Segment, []string, error) {
	names := m.mix.ClipNames()
	clips := make(map[string]*audio.Segment, len(names))

	var missing []string

	for _, name := range names {
		path := filepath.Join(m.opts.ClipsDir, name)

		exists, err := fsutil.Exists(path)
		if err != nil {
			return nil, nil, err
		}

		if !exists {
			fmt.Fprintf(m.out, "Warning: %s not found\n", name)
			m.log.Warn(logFmtMissingClip, runID, name, PlaceholderMS)

			clips[name] = audio.Silent(PlaceholderMS, m.opts.SampleRate)
			missing = append(missing, name)

			continue
		}

		seg, err := audio.DecodeFile(path, m.opts.SampleRate)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load clip: %w", err)
		}

		clips[name] = seg
	}

	return clips, missing, nil
}

// Assemble lays the clips and effects out on the canvas and returns the
// trimmed, hum-dressed, normalized mix.
func (m *Mixer) Assemble(runID string, clips map[string]*audio.Segment) (*Result, error) {
	rate := m.opts.SampleRate
	noise := audio.NewNoiseSource(rate, m.opts.Seed)

	fmt.Fprintln(m.out, "Creating effects...")

	hum := noise.Hum(m.opts.CanvasMS, m.opts.HumDB, m.opts.HumCutoffHz)
	canvas := audio.Silent(m.opts.CanvasMS, rate)

	fmt.Fprintln(m.out, "Building mix...")

	result := &Result{}
	cursor := 0

	for i, step := range m.mix.Steps {
		var (
			placed  *audio.Segment
			name    string
			advance int
		)

		if step.IsClip() {
			clip, ok := clips[step.Clip]
			if !ok {
				return nil, fmt.Errorf("clip %s was not loaded", step.Clip)
			}

			placed = audio.Chain{
				audio.GainEffect{DB: step.GainDB},
				audio.CombReverb{DelayMS: step.ReverbDelayMS, Taps: m.mix.ReverbTaps, StepDB: m.mix.ReverbStepDB},
			}.Apply(clip)
			name = step.Clip
			advance = clip.DurationMS() + step.PauseMS
		} else {
			placed = noise.StaticBurst(step.StaticMS, step.StaticDB, m.mix.StaticFadeMS, step.FadeOutMS)
			name = fmt.Sprintf("static-%d", i+1)
			advance = step.AdvanceMS
		}

		canvas = canvas.Overlay(placed, cursor)
		result.Events = append(result.Events, Event{Name: name, StartMS: cursor, DurationMS: placed.DurationMS()})
		m.log.Info(logFmtPlaced, runID, name, cursor, placed.DurationMS())

		cursor += advance
	}

	result.CursorMS = cursor

	length := cursor
	if cursor > m.opts.CanvasMS {
		m.log.Warn(logFmtOverrun, runID, cursor, m.opts.CanvasMS)
		fmt.Fprintf(m.out, "Warning: timeline runs to %d ms, past the %d ms canvas\n", cursor, m.opts.CanvasMS)

		length = m.opts.CanvasMS
	}

	final := canvas.Slice(0, length)
	final = final.Overlay(hum.Slice(0, length), 0)
	result.Segment = final.Normalize(HeadroomDB)

	return result, nil
}

// Run loads the clips, assembles the mix and exports it to every output
// path. The first output is mirrored to the artifact store.
func (m *Mixer) Run(ctx context.Context, runID string) (*Result, error) {
	fmt.Fprintln(m.out, "\nLoading clips...")

	clips, missing, err := m.LoadClips(runID)
	if err != nil {
		return nil, err
	}

	result, err := m.Assemble(runID, clips)
	if err != nil {
		return nil, err
	}

	result.Missing = missing
	duration := result.Segment.DurationMS()

	for i, path := range m.opts.OutputPaths {
		if i == 0 {
			fmt.Fprintf(m.out, "\nExporting to: %s\n", path)
		}

		err = m.exporter.ExportFile(ctx, result.Segment, path, m.opts.Bitrate)
		if err != nil {
			return result, fmt.Errorf("failed to export %s: %w", path, err)
		}

		m.log.Info(logFmtExported, runID, path, duration)
		result.Outputs = append(result.Outputs, path)
	}

	fmt.Fprintf(m.out, "\n✓ Complete! Duration: %.1f seconds\n", float64(duration)/1000)
	fmt.Fprintf(m.out, "  File: %s\n", m.opts.OutputPaths[0])

	for _, backup := range m.opts.OutputPaths[1:] {
		fmt.Fprintf(m.out, "  Backup: %s\n", backup)
	}

	m.mirror.File(ctx, objectstore.AudioKey(filepath.Base(m.opts.OutputPaths[0])), m.opts.OutputPaths[0])

	return result, nil
}
