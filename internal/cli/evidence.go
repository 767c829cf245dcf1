package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/specter-content/internal/config"
	"github.com/book-expert/specter-content/internal/evidence"
	"github.com/spf13/cobra"
)

// EvidenceTool is the evidence database updater's command name.
const EvidenceTool = "specter-evidence"

const flagDryRun = "dry-run"

// NewEvidenceCommand builds specter-evidence.
func NewEvidenceCommand(deps Deps) *cobra.Command {
	var (
		flags  commonFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   EvidenceTool,
		Short: "Point each evidence record at its generated image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvidence(cmd, deps, &flags, dryRun)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, flagDryRun, false, "Report the changes without updating any record")
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	return cmd
}

func runEvidence(cmd *cobra.Command, deps Deps, flags *commonFlags, dryRun bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(deps, flags, EvidenceTool)
	if err != nil {
		return err
	}
	defer s.close(deps.Stderr)

	names, err := evidenceCredentials(s.cfg.Evidence.Backend)
	if err != nil {
		return err
	}

	creds, err := config.RequireEnv(deps.Getenv, names...)
	if err != nil {
		printDatabaseCredentialBanner(out, s.cfg.Paths.EnvFile, names)
		s.log.Error("Database credentials missing: %v", err)

		return err
	}

	store, closeStore, err := deps.NewEvidenceStore(ctx, s.cfg, creds)
	if err != nil {
		return fmt.Errorf("failed to open evidence store: %w", err)
	}
	defer closeStore()

	updater, err := evidence.NewUpdater(store, s.catalog.ImageMap(), evidence.Options{
		EvidenceDir:   s.cfg.Paths.EvidenceDir,
		PublicBaseURL: s.cfg.Evidence.PublicBaseURL,
		DryRun:        dryRun,
	}, s.log, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\nSPECTER Evidence Image Database Updater\n%s\n", banner(), banner())
	fmt.Fprintf(out, "Evidence directory: %s\n\n", s.cfg.Paths.EvidenceDir)

	result, err := updater.Run(ctx, s.runID)
	if err != nil {
		s.log.Error("Evidence update failed: %v", err)

		return err
	}

	evidence.PrintSummary(out, result)
	s.log.Info("Evidence update finished: %s", result.Tally.String())

	return nil
}

func printDatabaseCredentialBanner(out io.Writer, envFile string, names []string) {
	fmt.Fprintln(out, "Error: Database credentials not found.")
	fmt.Fprintf(out, "Make sure %s contains %s\n", envFile, strings.Join(names, " and "))
}
