package operation

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/archive"
	"github.com/walteh/keeper/pkg/catalog"
	"github.com/walteh/keeper/pkg/snapshot"
	"github.com/walteh/keeper/pkg/verify"
)

// StatusReport is a read-only view of the archive against the server.
type StatusReport struct {
	ArchivePath    string
	ArchivePresent bool
	// Corrupt is set when the archive exists but is not a readable zip
	Corrupt bool
	// Manifest is nil when the archive has none
	Manifest  *snapshot.Manifest
	Artifacts int

	ServerChecksum string
	ServerKnown    bool
	// UpToDate means the next Sync would skip all work
	UpToDate bool
}

// Status inspects the archive and asks the server for its checksum.
// Nothing is written.
func (e *Engine) Status(ctx context.Context) (*StatusReport, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("checking status")

	rep := &StatusReport{ArchivePath: e.opts.ArchivePath}

	server, ok := e.opts.Checksums.ServerChecksum(ctx)
	if ok {
		rep.ServerKnown = true
		rep.ServerChecksum = server.Checksum
	}

	r, err := archive.Open(e.opts.ArchivePath)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		logger.Debug().Msg("no archive yet")
		return rep, nil
	case errors.Is(err, apperr.ErrCorruptContainer):
		rep.ArchivePresent = true
		rep.Corrupt = true
		return rep, nil
	case err != nil:
		return nil, errors.Errorf("opening archive: %w", err)
	}
	defer r.Close()
	rep.ArchivePresent = true

	if m, err := readManifest(r); err == nil {
		rep.Manifest = m
	} else {
		logger.Debug().Err(err).Msg("archive has no usable manifest")
	}

	entries, err := r.List(snapshot.ArtifactsDir + "/*/" + catalog.MetadataFileName)
	if err != nil {
		return nil, errors.Errorf("listing artifacts: %w", err)
	}
	rep.Artifacts = len(entries)

	rep.UpToDate = rep.Manifest != nil && ok &&
		rep.Manifest.FormatVersion == snapshot.FormatVersion &&
		server.FormatVersion == snapshot.FormatVersion &&
		verify.Equal(rep.Manifest.Checksum, server.Checksum)

	return rep, nil
}
