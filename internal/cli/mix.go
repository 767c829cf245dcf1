package cli

import (
	"fmt"
	"path/filepath"

	"github.com/book-expert/specter-content/internal/audio"
	"github.com/book-expert/specter-content/internal/mixer"
	"github.com/spf13/cobra"
)

// MixTool is the audio mixer's command name.
const MixTool = "specter-mix"

// NewMixCommand builds specter-mix.
func NewMixCommand(deps Deps) *cobra.Command {
	var flags commonFlags

	cmd := &cobra.Command{
		Use:   MixTool,
		Short: "Assemble the Blackwood recording from the dialogue clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMix(cmd, deps, &flags)
		},
	}

	flags.register(cmd)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	return cmd
}

func runMix(cmd *cobra.Command, deps Deps, flags *commonFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(deps, flags, MixTool)
	if err != nil {
		return err
	}
	defer s.close(deps.Stderr)

	m := s.cfg.Mixer

	mx, err := mixer.New(mixer.Options{
		ClipsDir: s.cfg.Paths.ClipsDir,
		OutputPaths: []string{
			filepath.Join(s.cfg.Paths.AudioOutputDir, m.OutputName),
			filepath.Join(s.cfg.Paths.ClipsDir, m.BackupName),
		},
		SampleRate:  m.SampleRate,
		CanvasMS:    m.CanvasMS,
		Seed:        m.Seed,
		HumDB:       m.HumDB,
		HumCutoffHz: m.HumCutoffHz,
		Bitrate:     m.Bitrate,
	}, s.catalog.Mix, audio.Exporter{FFmpegPath: m.FFmpegPath}, s.log, out, s.openMirror(ctx, deps))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\nMIXING THE BLACKWOOD RECORDING\n%s\n", banner(), banner())

	result, err := mx.Run(ctx, s.runID)
	if err != nil {
		s.log.Error("Mix failed: %v", err)

		return err
	}

	if len(result.Missing) > 0 {
		fmt.Fprintf(out, "  Placeholders used for %d missing clips\n", len(result.Missing))
	}

	return nil
}
