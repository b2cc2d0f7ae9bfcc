package opts

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/config"
	"github.com/walteh/keeper/pkg/log"
	"github.com/walteh/keeper/pkg/operation"
	"github.com/walteh/keeper/pkg/remote"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigPath string
	Verbosity  int
	Quiet      bool
	LogFile    string

	Console *log.Console
	Out     io.Writer

	cfg    *config.Config
	cfgErr error
	closer io.Closer
}

// LoadConfig reads the config file once, applies KEEPER_* overrides and
// expands paths. The result is cached for the rest of the process.
func (o *RootOpts) LoadConfig(ctx context.Context) (*config.Config, error) {
	if o.cfg != nil || o.cfgErr != nil {
		return o.cfg, o.cfgErr
	}

	cfg, err := config.Load(ctx, o.ConfigPath)
	if err == nil {
		cfg.ApplyEnv(os.LookupEnv)
		err = cfg.ExpandPaths()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		o.cfgErr = errors.Errorf("loading config: %w", err)
		return nil, o.cfgErr
	}

	o.cfg = cfg
	return cfg, nil
}

// SetupLogging builds the process logger from the flags and, when
// available, the config file, and returns ctx carrying it.
func (o *RootOpts) SetupLogging(ctx context.Context, cfg *config.Config) (context.Context, error) {
	logOpts := log.Options{
		Verbosity: o.Verbosity,
		LogFile:   o.LogFile,
		Quiet:     o.Quiet,
	}
	if cfg != nil {
		if logOpts.LogFile == "" {
			logOpts.LogFile = cfg.Backup.LogFile
		}
		if cfg.Backup.LogVerbose && logOpts.Verbosity < 3 {
			logOpts.Verbosity = 3
		}
	}

	logger, closer, err := log.New(logOpts)
	if err != nil {
		return ctx, errors.Errorf("setting up logging: %w", err)
	}
	o.closer = closer
	return logger.WithContext(ctx), nil
}

// Close releases the log file.
func (o *RootOpts) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// NewEngine wires the backup engine to the configured service endpoints.
func (o *RootOpts) NewEngine(ctx context.Context, observer operation.Observer) (*operation.Engine, error) {
	cfg, err := o.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	client, err := remote.NewClient(remote.Options{
		CatalogURL:  cfg.API.CatalogURL,
		ChecksumURL: cfg.API.ChecksumURL,
		BackupsURL:  cfg.API.BackupsURL,
	})
	if err != nil {
		return nil, errors.Errorf("creating api client: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("catalog_url", cfg.API.CatalogURL).
		Str("zip_file", cfg.Backup.ZipFile).
		Int("concurrency", cfg.Backup.Concurrency).
		Msg("creating backup engine")

	return operation.New(operation.Options{
		KeeperID:    cfg.Keeper.ID,
		KeeperEmail: cfg.Keeper.Email,
		ArchivePath: cfg.Backup.ZipFile,
		Concurrency: cfg.Backup.Concurrency,
		Catalog:     client,
		Checksums:   client,
		Reporter:    client,
		Fetcher:     client,
		Observer:    observer,
	})
}
