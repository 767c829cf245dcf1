// Package imagegen generates the evidence images that are not yet on disk.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/book-expert/specter-content/internal/core"
	"github.com/book-expert/specter-content/internal/fsutil"
	"github.com/book-expert/specter-content/internal/objectstore"
)

// Per-image prices in dollars.
const (
	CostHD       = 0.080
	CostStandard = 0.040
	QualityHD    = "hd"
)

const (
	confirmPrompt = "Proceed with image generation? (y/n): "

	logFmtPartition   = "[%s] %d images exist, %d to generate"
	logFmtGenerating  = "[%s] Generating %s"
	logFmtSaved       = "[%s] Saved %s (%s)"
	logFmtImageFailed = "[%s] Failed to generate %s: %v"
	logFmtAborted     = "[%s] Operator declined image generation"
)

// ErrEvidenceDirEmpty is returned when the generator has nowhere to write.
var ErrEvidenceDirEmpty = errors.New("evidence directory cannot be empty")

// EstimateCost returns the dollar cost of generating count images.
func EstimateCost(count int, quality string) float64 {
	rate := CostStandard
	if quality == QualityHD {
		rate = CostHD
	}

	return float64(count) * rate
}

// Partition splits specs into those whose file already exists in dir and
// those that still need generating. Order is preserved.
func Partition(dir string, specs []catalog.EvidenceImageSpec) (existing, pending []catalog.EvidenceImageSpec, err error) {
	for _, spec := range specs {
		found, statErr := fsutil.Exists(filepath.Join(dir, spec.Filename))
		if statErr != nil {
			return nil, nil, statErr
		}

		if found {
			existing = append(existing, spec)
		} else {
			pending = append(pending, spec)
		}
	}

	return existing, pending, nil
}

// Dependencies are the collaborators a Generator calls.
type Dependencies struct {
	Synth      core.ImageSynthesizer
	Downloader core.ImageDownloader
	Pacer      core.Pacer
	Confirmer  core.Confirmer
	Mirror     *objectstore.Mirror
	Log        *logger.Logger
	Out        io.Writer
}

// Result reports how a run ended.
type Result struct {
	Tally   *core.Tally
	Aborted bool
}

// Generator fills the evidence directory with the catalog's images.
type Generator struct {
	deps        Dependencies
	evidenceDir string
	quality     string
}

// NewGenerator creates a generator writing into evidenceDir.
func NewGenerator(deps Dependencies, evidenceDir, quality string) (*Generator, error) {
	if evidenceDir == "" {
		return nil, ErrEvidenceDirEmpty
	}

	if deps.Out == nil {
		deps.Out = io.Discard
	}

	return &Generator{deps: deps, evidenceDir: evidenceDir, quality: quality}, nil
}

// Run generates every missing image after the operator confirms the cost.
// Existing files are never requested again. Per-image failures are counted
// and the batch continues.
func (g *Generator) Run(ctx context.Context, runID string, specs []catalog.EvidenceImageSpec) (*Result, error) {
	out := g.deps.Out
	result := &Result{Tally: &core.Tally{RunID: runID}}

	existing, pending, err := Partition(g.evidenceDir, specs)
	if err != nil {
		return result, err
	}

	for range existing {
		result.Tally.Skip()
	}

	g.deps.Log.Info(logFmtPartition, runID, len(existing), len(pending))

	if len(existing) > 0 {
		fmt.Fprintf(out, "Skipping %d existing images\n", len(existing))
	}

	if len(pending) == 0 {
		fmt.Fprintln(out, "\nAll images already exist! Nothing to generate.")
		fmt.Fprintf(out, "Delete images from %s/ to regenerate them.\n", g.evidenceDir)

		return result, nil
	}

	fmt.Fprintf(out, "Generating %d new images...\n\n", len(pending))
	fmt.Fprintf(out, "Estimated cost: $%.2f\n\n", EstimateCost(len(pending), g.quality))

	proceed, err := g.deps.Confirmer.Confirm(confirmPrompt)
	if err != nil {
		return result, fmt.Errorf("failed to read confirmation: %w", err)
	}

	if !proceed {
		fmt.Fprintln(out, "Aborted.")
		g.deps.Log.Info(logFmtAborted, runID)

		result.Aborted = true

		return result, nil
	}

	fmt.Fprintln(out)

	err = fsutil.EnsureDir(g.evidenceDir)
	if err != nil {
		return result, err
	}

	currentCase := ""

	for i, spec := range pending {
		if spec.Case != currentCase {
			currentCase = spec.Case
			fmt.Fprintf(out, "\n[Case: %s]\n", currentCase)
		}

		fmt.Fprintf(out, "(%d/%d) %s\n", i+1, len(pending), spec.Evidence)

		err = g.deps.Pacer.Wait(ctx)
		if err != nil {
			return result, fmt.Errorf("image generation interrupted: %w", err)
		}

		err = g.generateOne(ctx, runID, spec)
		if err != nil {
			fmt.Fprintf(out, "  ✗ Error generating %s: %v\n", spec.Filename, err)
			g.deps.Log.Error(logFmtImageFailed, runID, spec.Filename, err)
			result.Tally.Fail(spec.Filename, err)

			continue
		}

		result.Tally.Succeed()
	}

	return result, nil
}

func (g *Generator) generateOne(ctx context.Context, runID string, spec catalog.EvidenceImageSpec) error {
	fmt.Fprintf(g.deps.Out, "  Generating: %s\n", spec.Filename)
	g.deps.Log.Info(logFmtGenerating, runID, spec.Filename)

	url, err := g.deps.Synth.GenerateImage(ctx, spec.Prompt)
	if err != nil {
		return err
	}

	data, err := g.deps.Downloader.Download(ctx, url)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(g.evidenceDir, spec.Filename)

	err = fsutil.WriteBytesAtomic(outputPath, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(g.deps.Out, "  ✓ Saved: %s\n", spec.Filename)
	g.deps.Log.Info(logFmtSaved, runID, outputPath, fsutil.FormatFileSize(int64(len(data))))
	g.deps.Mirror.File(ctx, objectstore.EvidenceKey(spec.Filename), outputPath)

	return nil
}
