package commands

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/cmd/keeper/opts"
	"github.com/walteh/keeper/pkg/status"
)

// NewBackupCmd creates the backup command
func NewBackupCmd(o *opts.RootOpts) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Bring the local archive up to date",
		Long: `Backup updates the configured zip file with the current catalog.
It will:
1. Reuse the previous zip as a base, or skip everything if it already matches the server
2. Download new and changed files, checking each against its published hash
3. Remove files and artifacts that left the catalog
4. Write a new zip and report its checksum`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			showBar := !o.Quiet && !noProgress
			lines := o.Out
			if showBar {
				lines = nil
			}
			tracker := status.New(ctx, lines, o.Verbosity >= 2)
			observer := newProgressObserver(ctx, tracker, o.Out, showBar)

			engine, err := o.NewEngine(ctx, observer)
			if err != nil {
				return err
			}

			o.Console.Header("backup")
			sum, err := engine.Sync(ctx)
			observer.stop()

			for _, line := range status.FormatSummary(sum) {
				o.Console.Line(line)
			}
			if err != nil {
				return errors.Errorf("backing up: %w", err)
			}

			switch {
			case sum.Skipped:
				o.Console.Success("nothing to do")
			case sum.ArtifactsFailed > 0 || sum.ArtifactsIncomplete > 0:
				o.Console.Warningf("backup written with %d artifacts missing content, the next run will retry them",
					sum.ArtifactsFailed+sum.ArtifactsIncomplete)
			default:
				o.Console.Success("backup complete")
			}
			if !sum.Skipped && !sum.Reported {
				o.Console.Warning("the archive could not be told about this backup")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "list artifacts instead of drawing a progress bar")

	return cmd
}
