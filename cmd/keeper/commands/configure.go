package commands

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/cmd/keeper/opts"
	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/config"
)

// NewConfigureCmd creates the configure command
func NewConfigureCmd(o *opts.RootOpts) *cobra.Command {
	var (
		email   string
		zipFile string
		logFile string
		newID   bool
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Create or update the config file",
		Long: `Configure writes the config file, creating it with a fresh keeper id when
it does not exist yet. Only the values passed as flags are changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx, o.ConfigPath)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				cfg = config.Empty(uuid.NewString())
				o.Console.Infof("creating %s", o.ConfigPath)
			case err != nil:
				return err
			}

			if newID {
				cfg.Keeper.ID = uuid.NewString()
			}
			if cmd.Flags().Changed("email") {
				cfg.Keeper.Email = email
			}
			if cmd.Flags().Changed("zip-file") {
				cfg.Backup.ZipFile = zipFile
			}
			if cmd.Flags().Changed("backup-log-file") {
				cfg.Backup.LogFile = logFile
			}

			if err := config.Write(ctx, o.ConfigPath, cfg); err != nil {
				return err
			}

			o.Console.Successf("keeper %s configured", cfg.Keeper.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "contact email sent with backup reports, empty to clear")
	cmd.Flags().StringVar(&zipFile, "zip-file", "", "where the backup zip is kept")
	cmd.Flags().StringVar(&logFile, "backup-log-file", "", "log file used by backup runs")
	cmd.Flags().BoolVar(&newID, "new-id", false, "replace the keeper id with a fresh one")

	return cmd
}
