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

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/artifact"
	"github.com/walteh/keeper/pkg/catalog"
	"github.com/walteh/keeper/pkg/snapshot"
)

// outcome is what happened to one artifact during reconcile.
type outcome struct {
	id        string
	dirName   string
	relocated bool
	result    artifact.Result
	pruned    []string
	err       error
}

func (o outcome) updated() bool {
	return o.relocated || o.result.FilesFetched > 0 || o.result.MetadataUpdated || len(o.pruned) > 0
}

func (o outcome) report() ArtifactReport {
	return ArtifactReport{
		ID:           o.id,
		DirName:      o.dirName,
		FilesFetched: o.result.FilesFetched,
		FilesFailed:  o.result.FilesFailed,
		Relocated:    o.relocated,
		Updated:      o.err == nil && o.updated(),
		Err:          o.err,
	}
}

// reconcile makes work match the catalog and writes its manifest.
func (e *Engine) reconcile(ctx context.Context, work string, sum *Summary) error {
	logger := zerolog.Ctx(ctx)

	records, err := e.opts.Catalog.ListCatalog(ctx)
	if err != nil {
		return errors.Errorf("listing catalog: %w", err)
	}
	sum.Artifacts = len(records)

	store, err := snapshot.Open(ctx, work, e.clock)
	if err != nil {
		return err
	}

	records, rejected := uniqueDirNames(ctx, records)
	sum.ArtifactsFailed += rejected

	expected := make(map[string]struct{}, len(records))
	for _, rec := range records {
		expected[rec.DirName()] = struct{}{}
	}

	moved, err := store.DetectRenames(ctx, expected)
	if err != nil {
		return errors.Errorf("detecting renamed artifacts: %w", err)
	}
	if err := store.MatchAliases(ctx, records, expected, moved); err != nil {
		return errors.Errorf("matching url aliases: %w", err)
	}

	outcomes, err := e.syncAll(ctx, store, records, moved)
	if err != nil {
		return err
	}

	metadata := make([]catalog.Metadata, 0, len(records))
	for i, o := range outcomes {
		sum.add(o)
		if o.err == nil && !o.result.Incomplete() {
			metadata = append(metadata, records[i].Metadata())
		}
	}

	pruned, err := store.PruneToExpected(ctx, expected)
	if err != nil {
		return errors.Errorf("pruning snapshot: %w", err)
	}
	sum.PrunedPaths += pruned.Len()

	if err := store.WriteReadme(); err != nil {
		return err
	}

	checksum, err := snapshot.AggregateChecksum(metadata)
	if err != nil {
		return errors.Errorf("computing checksum: %w", err)
	}
	manifest, err := store.WriteManifest(ctx, e.opts.KeeperID, checksum, sum.TotalSize, e.opts.KeeperEmail)
	if err != nil {
		return err
	}
	sum.Checksum = checksum
	sum.Manifest = manifest

	logger.Info().
		Int("artifacts", sum.Artifacts).
		Int("updated", sum.ArtifactsUpdated).
		Int("relocated", sum.ArtifactsRelocated).
		Int("failed", sum.ArtifactsFailed).
		Int("files_fetched", sum.FilesFetched).
		Int("pruned", sum.PrunedPaths).
		Msg("snapshot reconciled")
	return nil
}

// syncAll fans artifact work out over at most Concurrency goroutines. Only
// cancellation is returned as an error; per-artifact failures are recorded
// in the outcomes, which are indexed like records.
func (e *Engine) syncAll(ctx context.Context, store *snapshot.Store, records []catalog.ArtifactRecord, moved map[string]string) ([]outcome, error) {
	unit := artifact.New(store.Root(), store.ArtifactRoot(), e.opts.Fetcher)

	obs := newDispatcher(ctx, e.opts.Observer)
	defer obs.Close()
	obs.OnTotal(len(records))

	outcomes := make([]outcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		i, rec := i, rec
		g.Go(func() error {
			outcomes[i] = syncOne(gctx, unit, rec, moved[rec.ID])
			obs.OnArtifactDone(outcomes[i].report())
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("syncing artifacts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return outcomes, nil
}

func syncOne(ctx context.Context, unit *artifact.Unit, rec catalog.ArtifactRecord, oldDir string) outcome {
	logger := zerolog.Ctx(ctx).With().Str("artifact", rec.ID).Logger()
	out := outcome{id: rec.ID, dirName: rec.DirName()}

	if oldDir != "" && oldDir != rec.DirName() {
		got, err := unit.Relocate(ctx, oldDir, rec.DirName())
		switch {
		case err != nil:
			logger.Warn().Err(err).Str("from", oldDir).Msg("could not relocate renamed artifact")
		case got == unit.Dir(rec):
			out.relocated = true
		}
	}

	res, err := unit.Sync(ctx, rec)
	out.result = res
	if err != nil {
		logger.Error().Err(err).Msg("artifact sync failed")
		out.err = err
		return out
	}

	pruned, err := unit.PruneStaleFiles(ctx, rec)
	out.pruned = pruned
	if err != nil {
		logger.Error().Err(err).Msg("pruning artifact failed")
		out.err = err
	}
	return out
}

// uniqueDirNames drops every record whose directory name is already taken
// by an earlier record. Two artifacts cannot share one directory.
func uniqueDirNames(ctx context.Context, records []catalog.ArtifactRecord) ([]catalog.ArtifactRecord, int) {
	logger := zerolog.Ctx(ctx)

	owners := make(map[string]string, len(records))
	out := make([]catalog.ArtifactRecord, 0, len(records))
	rejected := 0
	for _, rec := range records {
		dir := rec.DirName()
		if owner, ok := owners[dir]; ok {
			logger.Error().
				Err(errors.Errorf("directory %q already belongs to %s: %w", dir, owner, apperr.ErrConflict)).
				Str("artifact", rec.ID).
				Msg("skipping artifact")
			rejected++
			continue
		}
		owners[dir] = rec.ID
		out = append(out, rec)
	}
	return out, rejected
}
