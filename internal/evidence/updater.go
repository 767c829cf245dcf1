// Package evidence links generated evidence images to their database rows.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/core"
	"github.com/book-expert/specter-content/internal/fsutil"
)

// DefaultPublicBaseURL is the path the web app serves evidence images from.
const DefaultPublicBaseURL = "/evidence"

const (
	imageExtension = ".png"

	logFmtImages   = "[%s] Evidence images on disk: %s"
	logFmtUnmapped = "[%s] No image mapping for evidence %q"
	logFmtMissing  = "[%s] Image %s for %q not found"
	logFmtUpdated  = "[%s] Updated evidence %s (%q) to %s"
	logFmtPlanned  = "[%s] Dry run: would update evidence %s (%q) to %s"
	logFmtFailed   = "[%s] Failed to update evidence %s (%q): %v"
)

// ErrEvidenceDirEmpty is returned when no image directory is configured.
var ErrEvidenceDirEmpty = errors.New("evidence directory cannot be empty")

// Options configures an Updater.
type Options struct {
	EvidenceDir   string
	PublicBaseURL string
	DryRun        bool
}

// Result reports what a run did. In a dry run Tally.Succeeded counts the
// rows that would have been updated.
type Result struct {
	Tally       *core.Tally
	Unmapped    []string
	ImagesFound int
	Records     int
	DryRun      bool
}

// Updater sets each evidence row's image URL to the image mapped to its title.
type Updater struct {
	store    core.EvidenceStore
	imageMap map[string]string
	opts     Options
	log      *logger.Logger
	out      io.Writer
}

// NewUpdater creates an updater. imageMap maps evidence titles to image
// filenames.
func NewUpdater(
	store core.EvidenceStore,
	imageMap map[string]string,
	opts Options,
	log *logger.Logger,
	out io.Writer,
) (*Updater, error) {
	if opts.EvidenceDir == "" {
		return nil, ErrEvidenceDirEmpty
	}

	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = DefaultPublicBaseURL
	}

	if out == nil {
		out = io.Discard
	}

	return &Updater{store: store, imageMap: imageMap, opts: opts, log: log, out: out}, nil
}

// PublicURL returns the URL the web app uses for filename.
func PublicURL(base, filename string) string {
	return strings.TrimRight(base, "/") + "/" + filename
}

// Run walks every evidence row once. Rows whose title has no mapping are
// left alone, rows whose image is absent are counted missing, rows already
// pointing at the right URL are skipped, and the rest are updated. A failed
// update is counted and the run continues.
func (u *Updater) Run(ctx context.Context, runID string) (*Result, error) {
	result := &Result{Tally: &core.Tally{RunID: runID}, DryRun: u.opts.DryRun}

	images, err := fsutil.ListByExtension(u.opts.EvidenceDir, imageExtension)
	if err != nil {
		return result, err
	}

	result.ImagesFound = len(images)
	u.log.Info(logFmtImages, runID, strings.Join(fsutil.SortedKeys(images), ", "))
	fmt.Fprintf(u.out, "Found %d images in evidence folder\n\n", len(images))

	records, err := u.store.ListEvidence(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read evidence records: %w", err)
	}

	result.Records = len(records)
	fmt.Fprintf(u.out, "Found %d evidence records in database\n\n", len(records))

	for _, record := range records {
		err = ctx.Err()
		if err != nil {
			return result, fmt.Errorf("evidence update interrupted: %w", err)
		}

		u.apply(ctx, runID, record, images, result)
	}

	return result, nil
}

func (u *Updater) apply(
	ctx context.Context,
	runID string,
	record core.EvidenceRecord,
	images map[string]struct{},
	result *Result,
) {
	filename, ok := u.imageMap[record.Title]
	if !ok {
		fmt.Fprintf(u.out, "⚠ No image mapping for: %s\n", record.Title)
		u.log.Warn(logFmtUnmapped, runID, record.Title)
		result.Unmapped = append(result.Unmapped, record.Title)

		return
	}

	if _, found := images[filename]; !found {
		fmt.Fprintf(u.out, "✗ Image not found: %s (for: %s)\n", filename, record.Title)
		u.log.Warn(logFmtMissing, runID, filename, record.Title)
		result.Tally.Miss()

		return
	}

	newURL := PublicURL(u.opts.PublicBaseURL, filename)
	if record.ImageURL != nil && *record.ImageURL == newURL {
		result.Tally.Skip()

		return
	}

	if u.opts.DryRun {
		fmt.Fprintf(u.out, "~ Would update: %s\n  → %s\n", record.Title, newURL)
		u.log.Info(logFmtPlanned, runID, record.ID, record.Title, newURL)
		result.Tally.Succeed()

		return
	}

	err := u.store.UpdateImageURL(ctx, record.ID, newURL)
	if err != nil {
		fmt.Fprintf(u.out, "✗ Failed to update %s: %v\n", record.Title, err)
		u.log.Error(logFmtFailed, runID, record.ID, record.Title, err)
		result.Tally.Fail(record.Title, err)

		return
	}

	fmt.Fprintf(u.out, "✓ Updated: %s\n  → %s\n", record.Title, newURL)
	u.log.Info(logFmtUpdated, runID, record.ID, record.Title, newURL)
	result.Tally.Succeed()
}

// PrintSummary writes the closing report for a run.
func PrintSummary(out io.Writer, result *Result) {
	banner := strings.Repeat("=", 60)
	title := "UPDATE COMPLETE"

	if result.DryRun {
		title = "DRY RUN COMPLETE (no rows changed)"
	}

	fmt.Fprintf(out, "\n%s\n%s\n%s\n", banner, title, banner)
	fmt.Fprintf(out, "Updated: %d\n", result.Tally.Succeeded)
	fmt.Fprintf(out, "Skipped (already set): %d\n", result.Tally.Skipped)
	fmt.Fprintf(out, "Missing images: %d\n", result.Tally.Missing)
	fmt.Fprintf(out, "Failed: %d\n", result.Tally.Failed())

	if len(result.Unmapped) > 0 {
		fmt.Fprintf(out, "Unmapped titles: %d\n", len(result.Unmapped))
	}

	if result.Tally.Succeeded > 0 && !result.DryRun {
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Commit and push changes to GitHub")
		fmt.Fprintln(out, "2. Redeploy the web app")
		fmt.Fprintln(out, "3. Test the evidence display on the live site")
	}
}
