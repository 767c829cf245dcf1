package cli

import (
	"fmt"
	"io"

	"github.com/book-expert/specter-content/internal/config"
	"github.com/book-expert/specter-content/internal/core"
	"github.com/book-expert/specter-content/internal/imagegen"
	"github.com/spf13/cobra"
)

// ImagesTool is the evidence-image generator's command name.
const ImagesTool = "specter-images"

const flagYes = "yes"

// NewImagesCommand builds specter-images.
func NewImagesCommand(deps Deps) *cobra.Command {
	var (
		flags commonFlags
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   ImagesTool,
		Short: "Generate the missing evidence images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImages(cmd, deps, &flags, yes)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&yes, flagYes, "y", false, "Skip the cost confirmation prompt")
	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	return cmd
}

func runImages(cmd *cobra.Command, deps Deps, flags *commonFlags, yes bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(deps, flags, ImagesTool)
	if err != nil {
		return err
	}
	defer s.close(deps.Stderr)

	creds, err := config.RequireEnv(deps.Getenv, config.EnvOpenAIAPIKey)
	if err != nil {
		printImageKeyBanner(out)
		s.log.Error("Image credential missing: %v", err)

		return err
	}

	synth, downloader, err := deps.NewImages(s.cfg, creds[config.EnvOpenAIAPIKey])
	if err != nil {
		return err
	}

	var confirmer core.Confirmer = imagegen.NewLineConfirmer(cmd.InOrStdin(), out)
	if yes {
		confirmer = imagegen.AutoConfirm{}
	}

	gen, err := imagegen.NewGenerator(imagegen.Dependencies{
		Synth:      synth,
		Downloader: downloader,
		Pacer:      imagegen.NewPacer(imagegen.IntervalFromSeconds(s.cfg.OpenAI.RequestIntervalSeconds)),
		Confirmer:  confirmer,
		Mirror:     s.openMirror(ctx, deps),
		Log:        s.log,
		Out:        out,
	}, s.cfg.Paths.EvidenceDir, s.cfg.OpenAI.Quality)
	if err != nil {
		return err
	}

	specs := s.catalog.EvidenceImages

	fmt.Fprintf(out, "%s\nSPECTER Evidence Image Generator\n%s\n", banner(), banner())
	fmt.Fprintf(out, "Output directory: %s\n", s.cfg.Paths.EvidenceDir)
	fmt.Fprintf(out, "Total images: %d\n", len(specs))
	fmt.Fprintf(out, "Model: %s\n", s.cfg.OpenAI.Model)
	fmt.Fprintf(out, "Size: %s\n", s.cfg.OpenAI.Size)
	fmt.Fprintf(out, "Quality: %s\n\n", s.cfg.OpenAI.Quality)

	result, err := gen.Run(ctx, s.runID, specs)
	if err != nil {
		return err
	}

	if result.Aborted || result.Tally.Succeeded+result.Tally.Failed() == 0 {
		return nil
	}

	fmt.Fprintf(out, "\n%s\nGENERATION COMPLETE\n%s\n", banner(), banner())
	fmt.Fprintf(out, "Skipped: %d\n", result.Tally.Skipped)
	fmt.Fprintf(out, "Success: %d\n", result.Tally.Succeeded)
	fmt.Fprintf(out, "Failed: %d\n", result.Tally.Failed())
	fmt.Fprintf(out, "Output: %s\n", s.cfg.Paths.EvidenceDir)

	if result.Tally.Succeeded > 0 {
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Review the generated images")
		fmt.Fprintf(out, "2. Run %s to link them to the evidence records\n", EvidenceTool)
	}

	return nil
}

func printImageKeyBanner(out io.Writer) {
	fmt.Fprintln(out, banner())
	fmt.Fprintf(out, "ERROR: %s environment variable not set\n", config.EnvOpenAIAPIKey)
	fmt.Fprintln(out, banner())
	fmt.Fprintln(out, "\nTo set your API key, run:")
	fmt.Fprintf(out, "  export %s=\"your-api-key-here\"\n", config.EnvOpenAIAPIKey)
	fmt.Fprintln(out, "\nGet your API key from: https://platform.openai.com/api-keys")
}
