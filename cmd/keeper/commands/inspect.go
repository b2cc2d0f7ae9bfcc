package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/cmd/keeper/opts"
	"github.com/walteh/keeper/pkg/archive"
	"github.com/walteh/keeper/pkg/status"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [glob]",
		Short: "List the files in the local archive",
		Long: `Inspect lists the entries of the backup zip without extracting it.
An optional doublestar glob filters the entries, for example:

  keeper inspect 'artifacts/*/metadata.json'
  keeper inspect '**/*.pdf'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := o.LoadConfig(ctx)
			if err != nil {
				return err
			}

			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}

			r, err := archive.Open(cfg.Backup.ZipFile)
			if err != nil {
				return errors.Errorf("opening archive: %w", err)
			}
			defer r.Close()

			entries, err := r.List(pattern)
			if err != nil {
				return err
			}

			data := pterm.TableData{{"Name", "Size", "Modified"}}
			var total uint64
			for _, e := range entries {
				total += e.Size
				data = append(data, []string{e.Name, status.HumanBytes(int64(e.Size)), e.Modified.UTC().Format("2006-01-02 15:04")})
			}

			if err := pterm.DefaultTable.WithHasHeader().WithWriter(o.Out).WithData(data).Render(); err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			_, err = fmt.Fprintf(o.Out, "\n%d files, %s\n", len(entries), status.HumanBytes(int64(total)))
			return err
		},
	}

	return cmd
}
