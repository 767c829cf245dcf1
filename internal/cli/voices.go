package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/book-expert/specter-content/internal/config"
	"github.com/book-expert/specter-content/internal/voice"
	"github.com/spf13/cobra"
)

// VoicesTool is the voice-clip generator's command name.
const VoicesTool = "specter-voices"

const flagGenerate = "generate"

// NewVoicesCommand builds specter-voices. Without --generate it lists the
// account's voices; with it, the positional arguments are the voice ids for
// each role in catalog order.
func NewVoicesCommand(deps Deps) *cobra.Command {
	var (
		flags    commonFlags
		generate bool
	)

	cmd := &cobra.Command{
		Use:   VoicesTool + " [--generate <chen_id> <elderly_id> <young_id>]",
		Short: "List speech voices or generate the Blackwood dialogue clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVoices(cmd, deps, &flags, generate, args)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&generate, flagGenerate, false, "Generate the dialogue clips with the given voice ids")
	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	return cmd
}

func runVoices(cmd *cobra.Command, deps Deps, flags *commonFlags, generate bool, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(deps, flags, VoicesTool)
	if err != nil {
		return err
	}
	defer s.close(deps.Stderr)

	creds, err := config.RequireEnv(deps.Getenv, config.EnvElevenLabsAPIKey)
	if err != nil {
		printSpeechKeyBanner(out)
		s.log.Error("Speech credential missing: %v", err)

		return err
	}

	var assigned map[string]string

	if generate {
		assigned, err = s.catalog.AssignVoices(args)
		if errors.Is(err, catalog.ErrNotEnoughVoices) {
			fmt.Fprintf(out, "Usage: %s --generate %s\n", VoicesTool, rolePlaceholders(s.catalog))

			return fmt.Errorf("%w: %w", ErrUsage, err)
		}

		if err != nil {
			return err
		}
	}

	synth, err := deps.NewSpeech(s.cfg, creds[config.EnvElevenLabsAPIKey])
	if err != nil {
		return err
	}

	if !generate {
		voices, listErr := synth.ListVoices(ctx)
		if listErr != nil {
			s.log.Error("Failed to list voices: %v", listErr)

			return fmt.Errorf("failed to list voices: %w", listErr)
		}

		voice.PrintVoices(out, voices, s.catalog.Voices.Roles, VoicesTool)

		return nil
	}

	gen, err := voice.NewGenerator(synth, s.log, s.cfg.Paths.ClipsDir, out, s.openMirror(ctx, deps))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Generating Blackwood Recording clips...")

	tally, err := gen.Generate(ctx, s.runID, s.catalog.Dialogue, assigned)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\nGENERATION COMPLETE!\n%s\n", banner(), banner())
	fmt.Fprintf(out, "Generated: %d\n", tally.Succeeded)
	fmt.Fprintf(out, "Failed: %d\n", tally.Failed())
	fmt.Fprintf(out, "Clips saved to: %s\n", s.cfg.Paths.ClipsDir)

	return nil
}

func rolePlaceholders(cat *catalog.Catalog) string {
	names := cat.RoleNames()
	placeholders := make([]string, len(names))

	for i, name := range names {
		placeholders[i] = "<" + name + "_id>"
	}

	return strings.Join(placeholders, " ")
}

func printSpeechKeyBanner(out io.Writer) {
	fmt.Fprintln(out, banner())
	fmt.Fprintf(out, "%s not set!\n\n", config.EnvElevenLabsAPIKey)
	fmt.Fprintln(out, "Please run:")
	fmt.Fprintf(out, "  export %s='your-api-key-here'\n\n", config.EnvElevenLabsAPIKey)
	fmt.Fprintln(out, "Then run this command again.")
	fmt.Fprintln(out, banner())
}
