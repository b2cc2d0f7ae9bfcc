package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/cmd/keeper/opts"
	"github.com/walteh/keeper/pkg/operation"
	"github.com/walteh/keeper/pkg/status"
)

// NewStatusCmd creates a new status command
func NewStatusCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the local archive is current",
		Long: `Status reads the manifest of the local zip without extracting it and
compares its checksum with the one the server publishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			engine, err := o.NewEngine(ctx, nil)
			if err != nil {
				return err
			}

			rep, err := engine.Status(ctx)
			if err != nil {
				return errors.Errorf("checking status: %w", err)
			}

			printStatus(o, rep)
			return nil
		},
	}

	return cmd
}

func printStatus(o *opts.RootOpts, rep *operation.StatusReport) {
	info := pterm.Info.WithWriter(o.Out).WithPrefix(pterm.Prefix{Text: "📦"})
	warn := pterm.Warning.WithWriter(o.Out).WithPrefix(pterm.Prefix{Text: "⚠️"})
	ok := pterm.Success.WithWriter(o.Out).WithPrefix(pterm.Prefix{Text: "✅"})

	switch {
	case !rep.ArchivePresent:
		warn.Printfln("no archive at %s yet", rep.ArchivePath)
	case rep.Corrupt:
		warn.Printfln("%s is not a readable zip, the next backup will move it aside", rep.ArchivePath)
	case rep.Manifest == nil:
		warn.Printfln("%s has no manifest, the next backup will rebuild it", rep.ArchivePath)
	default:
		m := rep.Manifest
		info.Printfln("archive:   %s", rep.ArchivePath)
		info.Printfln("created:   %s", m.CreatedAt)
		info.Printfln("artifacts: %d", rep.Artifacts)
		info.Printfln("size:      %s", status.HumanBytes(m.Size))
		info.Printfln("checksum:  %s", m.Checksum)
	}

	if !rep.ServerKnown {
		warn.Println("the server checksum could not be fetched")
		return
	}
	info.Printfln("server:    %s", rep.ServerChecksum)

	if rep.UpToDate {
		ok.Println("up to date")
	} else {
		warn.Printfln("out of date, run %q", "keeper backup")
	}
}
