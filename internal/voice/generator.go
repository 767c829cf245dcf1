// Package voice generates the dialogue clips of the recording by sending
// each scripted line to a speech synthesizer.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/book-expert/specter-content/internal/core"
	"github.com/book-expert/specter-content/internal/fsutil"
	"github.com/book-expert/specter-content/internal/objectstore"
)

// Static errors.
var (
	ErrClipsDirEmpty  = errors.New("clips directory cannot be empty")
	ErrNoVoiceForRole = errors.New("no voice assigned to role")
)

const (
	logFmtGenerating   = "[%s] Generating %s with voice %s"
	logFmtSaved        = "[%s] Saved %s (%s)"
	logFmtLineFailed   = "[%s] Failed to generate %s: %v"
	logFmtBatchStarted = "[%s] Generating %d clips into %s"
	logFmtBatchDone    = "[%s] Clip batch finished: %s"
	previewRunes       = 50
)

// Generator writes one clip per dialogue line.
type Generator struct {
	synth    core.SpeechSynthesizer
	log      *logger.Logger
	mirror   *objectstore.Mirror
	clipsDir string
	out      io.Writer
}

// NewGenerator creates a generator that writes clips into clipsDir and
// reports progress to out. mirror may be nil.
func NewGenerator(
	synth core.SpeechSynthesizer,
	log *logger.Logger,
	clipsDir string,
	out io.Writer,
	mirror *objectstore.Mirror,
) (*Generator, error) {
	if clipsDir == "" {
		return nil, ErrClipsDirEmpty
	}

	return &Generator{
		synth:    synth,
		log:      log,
		mirror:   mirror,
		clipsDir: clipsDir,
		out:      out,
	}, nil
}

// Generate synthesizes every line in order. voices maps role names to voice
// identifiers. A failed line is recorded in the tally and the batch goes on;
// the returned error is reserved for failures that stop the whole batch.
func (g *Generator) Generate(
	ctx context.Context,
	runID string,
	lines []catalog.DialogueLine,
	voices map[string]string,
) (*core.Tally, error) {
	tally := &core.Tally{RunID: runID}

	err := fsutil.EnsureDir(g.clipsDir)
	if err != nil {
		return tally, err
	}

	g.log.Info(logFmtBatchStarted, runID, len(lines), g.clipsDir)

	for _, line := range lines {
		err = ctx.Err()
		if err != nil {
			return tally, fmt.Errorf("clip generation interrupted: %w", err)
		}

		err = g.generateLine(ctx, runID, line, voices)
		if err != nil {
			g.log.Error(logFmtLineFailed, runID, line.Filename, err)
			fmt.Fprintf(g.out, "  ✗ Failed: %s: %v\n", line.Filename, err)
			tally.Fail(line.Filename, err)

			continue
		}

		tally.Succeed()
	}

	g.log.Info(logFmtBatchDone, runID, tally.String())

	return tally, nil
}

func (g *Generator) generateLine(
	ctx context.Context,
	runID string,
	line catalog.DialogueLine,
	voices map[string]string,
) error {
	voiceID, ok := voices[line.Role]
	if !ok || voiceID == "" {
		return fmt.Errorf("%w: %s", ErrNoVoiceForRole, line.Role)
	}

	fmt.Fprintf(g.out, "\nGenerating: %s\n", line.Filename)
	fmt.Fprintf(g.out, "  Text: %s\n", preview(line.Text))
	g.log.Info(logFmtGenerating, runID, line.Filename, voiceID)

	outputPath := filepath.Join(g.clipsDir, line.Filename)
	settings := core.VoiceSettings{Stability: line.Stability, Similarity: line.Similarity}

	var written int64

	err := fsutil.WriteFileAtomic(outputPath, func(w io.Writer) error {
		n, synthErr := g.synth.Synthesize(ctx, w, line.Text, voiceID, settings)
		written = n

		return synthErr
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(g.out, "  ✓ Saved: %s\n", outputPath)
	g.log.Info(logFmtSaved, runID, outputPath, fsutil.FormatFileSize(written))
	g.mirror.File(ctx, objectstore.ClipKey(line.Filename), outputPath)

	return nil
}

// PrintVoices writes the account's voices followed by the instructions for
// picking one voice per role.
func PrintVoices(out io.Writer, voices []core.Voice, roles []catalog.Role, command string) {
	banner := strings.Repeat("=", 60)

	fmt.Fprintf(out, "\n%s\nAVAILABLE VOICES\n%s\n", banner, banner)

	for _, v := range voices {
		fmt.Fprintf(out, "\nName: %s\n", v.Name)
		fmt.Fprintf(out, "  ID: %s\n", v.ID)
		fmt.Fprintf(out, "  Category: %s\n", v.Category)

		if len(v.Labels) > 0 {
			fmt.Fprintf(out, "  Labels: %s\n", formatLabels(v.Labels))
		}
	}

	fmt.Fprintf(out, "\n%s\nNEXT STEPS\n%s\n", banner, banner)
	fmt.Fprintln(out, "\nBased on the available voices above, select one voice per role:")
	fmt.Fprintln(out)

	placeholders := make([]string, 0, len(roles))

	for i, role := range roles {
		fmt.Fprintf(out, "%d. %s\n", i+1, role.Description)
		placeholders = append(placeholders, "<"+role.Name+"_id>")
	}

	fmt.Fprintln(out, "\nRun with the chosen voice IDs to generate the clips:")
	fmt.Fprintf(out, "  %s --generate %s\n", command, strings.Join(placeholders, " "))
}

func formatLabels(labels map[string]string) string {
	pairs := make([]string, 0, len(labels))
	for key, value := range labels {
		pairs = append(pairs, key+": "+value)
	}

	sort.Strings(pairs)

	return strings.Join(pairs, ", ")
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}

	return string(runes[:previewRunes]) + "..."
}
