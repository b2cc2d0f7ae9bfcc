// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/archive"
	"github.com/walteh/keeper/pkg/remote"
	"github.com/walteh/keeper/pkg/snapshot"
	"github.com/walteh/keeper/pkg/verify"
)

// 🔄 Sync runs one backup. The returned Summary is always non-nil and its
// State is StateDone or StateFailed.
func (e *Engine) Sync(ctx context.Context) (*Summary, error) {
	logger := zerolog.Ctx(ctx)
	sum := &Summary{State: StateStart}

	fail := func(err error) (*Summary, error) {
		if ctx.Err() != nil && !errors.Is(err, apperr.ErrCancelled) {
			err = errors.Errorf("%w: %w", apperr.ErrCancelled, err)
		}
		e.enter(ctx, sum, StateFailed)
		logger.Error().Err(err).Msg("backup failed")
		return sum, err
	}

	e.enter(ctx, sum, StateResolveBase)
	work, err := os.MkdirTemp(e.opts.WorkDir, "keeper-*")
	if err != nil {
		return fail(errors.Errorf("creating working directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			logger.Warn().Err(err).Str("dir", work).Msg("could not remove working directory")
		}
	}()

	skip, err := e.resolveBase(ctx, work, sum)
	if err != nil {
		return fail(errors.Errorf("resolving incremental base: %w", err))
	}
	if skip {
		sum.Skipped = true
		e.enter(ctx, sum, StateDone)
		return sum, nil
	}

	if err := ctx.Err(); err != nil {
		return fail(errors.WithStack(err))
	}
	e.enter(ctx, sum, StateReconcile)
	if err := e.reconcile(ctx, work, sum); err != nil {
		return fail(errors.Errorf("reconciling snapshot: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return fail(errors.WithStack(err))
	}
	e.enter(ctx, sum, StateRepackage)
	if _, err := archive.Write(ctx, work, e.opts.ArchivePath); err != nil {
		return fail(errors.Errorf("repackaging snapshot: %w", err))
	}

	e.enter(ctx, sum, StateReport)
	err = e.opts.Reporter.ReportBackup(ctx, remote.BackupReport{
		FormatVersion: snapshot.FormatVersion,
		KeeperID:      e.opts.KeeperID,
		Checksum:      sum.Checksum,
		Size:          sum.TotalSize,
		Email:         e.opts.KeeperEmail,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("backup committed locally but could not be reported")
	} else {
		sum.Reported = true
	}

	e.enter(ctx, sum, StateDone)
	return sum, nil
}

func (e *Engine) enter(ctx context.Context, sum *Summary, next State) {
	zerolog.Ctx(ctx).Debug().Str("from", sum.State.String()).Str("to", next.String()).Msg("backup state")
	sum.State = next
}

// resolveBase prepares work from the previous archive. It returns true
// when the archive already matches the server and nothing needs doing.
func (e *Engine) resolveBase(ctx context.Context, work string, sum *Summary) (bool, error) {
	logger := zerolog.Ctx(ctx)
	path := e.opts.ArchivePath

	r, err := archive.Open(path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		logger.Info().Str("archive", path).Msg("no previous archive, starting a full backup")
		return false, nil
	case errors.Is(err, apperr.ErrCorruptContainer):
		logger.Warn().Err(err).Str("archive", path).Msg("previous archive is not a valid zip")
		return false, e.moveAside(ctx, sum)
	case err != nil:
		return false, err
	}

	local := manifestChecksum(ctx, r)
	if local != "" {
		if server, ok := e.opts.Checksums.ServerChecksum(ctx); ok &&
			server.FormatVersion == snapshot.FormatVersion && verify.Equal(local, server.Checksum) {
			if m, err := readManifest(r); err == nil {
				sum.Manifest = m
				sum.TotalSize = m.Size
			}
			r.Close()
			sum.Checksum = local
			logger.Info().Str("checksum", local).Msg("archive already matches the server, nothing to do")
			return true, nil
		}
	}

	n, err := r.Extract(ctx, work)
	if closeErr := r.Close(); closeErr != nil {
		logger.Debug().Err(closeErr).Msg("closing previous archive")
	}
	if err != nil {
		if !errors.Is(err, apperr.ErrCorruptContainer) {
			return false, err
		}
		logger.Warn().Err(err).Int("extracted", n).Msg("previous archive is only partly readable, discarding it")
		if err := clearDir(work); err != nil {
			return false, err
		}
		return false, e.moveAside(ctx, sum)
	}

	logger.Info().Int("files", n).Str("archive", path).Msg("using previous archive as incremental base")
	return false, nil
}

func (e *Engine) moveAside(ctx context.Context, sum *Summary) error {
	moved, err := archive.MoveAside(e.opts.ArchivePath, e.clock)
	if err != nil {
		return err
	}
	sum.ArchiveMovedAside = moved
	zerolog.Ctx(ctx).Warn().Str("moved_to", moved).Msg("kept the unreadable archive aside, starting a full backup")
	return nil
}

func readManifest(r *archive.Reader) (*snapshot.Manifest, error) {
	data, err := r.ReadFile(snapshot.ManifestName)
	if err != nil {
		return nil, err
	}
	return snapshot.ParseManifest(data)
}

// manifestChecksum is the checksum stored in the archive, or empty when the
// manifest is missing or unusable.
func manifestChecksum(ctx context.Context, r *archive.Reader) string {
	m, err := readManifest(r)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("previous archive has no usable manifest")
		return ""
	}
	if m.FormatVersion != snapshot.FormatVersion {
		zerolog.Ctx(ctx).Debug().Int("format_version", m.FormatVersion).Msg("previous manifest has another format")
		return ""
	}
	return m.Checksum
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.Errorf("clearing %s: %w", dir, err)
		}
	}
	return nil
}
