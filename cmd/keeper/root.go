package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/cmd/keeper/commands"
	"github.com/walteh/keeper/cmd/keeper/opts"
	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/config"
	"github.com/walteh/keeper/pkg/log"
)

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string) int {
	o := &opts.RootOpts{
		Console: log.NewConsole(os.Stdout),
		Out:     os.Stdout,
	}
	defer o.Close()

	cmd := newRootCmd(o)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		o.Console.Error(err.Error())
		if errors.Is(err, apperr.ErrCancelled) || errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}

// newRootCmd builds the command tree around o
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keeper",
		Short: "Keep a verified local copy of the Ace Archive",
		Long: `keeper mirrors every artifact of the archive catalog into a single zip
file. Each run only downloads what changed since the previous zip, checks
every file against its published hash, and reports the result back so the
archive knows how many up to date copies exist.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Logging settings may come from the config file. Commands that
			// need the config report its error themselves.
			cfg, cfgErr := o.LoadConfig(cmd.Context())
			ctx, err := o.SetupLogging(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if cfgErr != nil {
				zerolog.Ctx(ctx).Debug().Err(cfgErr).Msg("no usable config file")
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	addRootFlags(cmd, o)

	cmd.AddCommand(
		commands.NewBackupCmd(o),
		commands.NewConfigureCmd(o),
		commands.NewStatusCmd(o),
		commands.NewInspectCmd(o),
		newVersionCmd(o),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	defaultConfig := config.DefaultPath
	if v, ok := os.LookupEnv("KEEPER_CONFIG"); ok && v != "" {
		defaultConfig = v
	}

	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", defaultConfig, "config file path (yaml, json or hcl)")
	cmd.PersistentFlags().CountVarP(&o.Verbosity, "verbose", "v", "increase log verbosity, repeat for more")
	cmd.PersistentFlags().BoolVarP(&o.Quiet, "quiet", "q", false, "do not log to stderr")
	cmd.PersistentFlags().StringVarP(&o.LogFile, "log-file", "l", "", "append logs to this file")
}
