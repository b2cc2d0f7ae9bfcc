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

// Package artifact keeps a single artifact directory in line with its
// catalog record.
package artifact

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/canonical"
	"github.com/walteh/keeper/pkg/catalog"
	"github.com/walteh/keeper/pkg/confine"
	"github.com/walteh/keeper/pkg/remote"
	"github.com/walteh/keeper/pkg/verify"
)

const partialPattern = ".keeper-*.partial"

// Unit operates on artifact directories below artifactRoot. Destructive
// operations are confined to workingRoot.
type Unit struct {
	workingRoot  string
	artifactRoot string
	fetcher      remote.Fetcher
}

// Result summarizes one Sync.
type Result struct {
	BytesOnDisk     int64
	FilesFetched    int
	FilesFailed     int
	MetadataUpdated bool
}

// Incomplete is true when at least one file could not be brought up to date.
func (r Result) Incomplete() bool {
	return r.FilesFailed > 0
}

// 🏭 New creates a Unit.
func New(workingRoot, artifactRoot string, fetcher remote.Fetcher) *Unit {
	return &Unit{
		workingRoot:  workingRoot,
		artifactRoot: artifactRoot,
		fetcher:      fetcher,
	}
}

// Dir is the on-disk directory for rec.
func (u *Unit) Dir(rec catalog.ArtifactRecord) string {
	return filepath.Join(u.artifactRoot, rec.DirName())
}

// 🔄 Sync brings the directory of rec up to date. Files whose content
// already matches the expected hash are never fetched again. A file that
// fails to fetch is logged and counted, and the rest of the artifact still
// syncs. Conflicts and local I/O errors are returned.
func (u *Unit) Sync(ctx context.Context, rec catalog.ArtifactRecord) (Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("artifact", rec.ID).Logger()
	var res Result

	dir := u.Dir(rec)
	if err := confine.Within(u.workingRoot, dir); err != nil {
		return res, errors.Errorf("syncing %s: %w", rec.ID, err)
	}
	if err := ensureDir(dir); err != nil {
		return res, err
	}

	seen := map[string]struct{}{}
	for _, f := range rec.Files {
		if err := ctx.Err(); err != nil {
			return res, errors.WithStack(err)
		}

		name := f.SanitizedName
		if name == catalog.MetadataFileName {
			logger.Error().Str("file", f.Filename).Msg("file name collides with the metadata file, skipping")
			res.FilesFailed++
			continue
		}
		if _, dup := seen[name]; dup {
			logger.Error().Str("file", f.Filename).Str("name", name).Msg("two files map to the same name, skipping the later one")
			res.FilesFailed++
			continue
		}
		seen[name] = struct{}{}

		path := filepath.Join(dir, name)
		size, current, err := matches(ctx, path, f)
		if err != nil {
			return res, errors.Errorf("checking %s: %w", path, err)
		}
		if current {
			logger.Debug().Str("file", name).Msg("on-disk hash matches, skipping fetch")
			res.BytesOnDisk += size
			continue
		}

		n, err := u.fetch(ctx, dir, path, f)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, errors.WithStack(ctxErr)
			}
			logger.Error().Err(err).Str("file", name).Str("url", f.URL).Msg("failed to fetch file")
			res.FilesFailed++
			continue
		}
		logger.Info().Str("file", name).Int64("bytes", n).Msg("fetched file")
		res.FilesFetched++
		res.BytesOnDisk += n
	}

	changed, err := canonical.WriteFile(filepath.Join(dir, catalog.MetadataFileName), rec.Metadata())
	if err != nil {
		return res, errors.Errorf("writing metadata for %s: %w", rec.ID, err)
	}
	if changed {
		logger.Info().Msg("wrote updated metadata")
	}
	res.MetadataUpdated = changed

	return res, nil
}

// fetch downloads f into a partial file next to path and renames it into
// place. The content is hashed while streaming; a mismatch keeps the file
// but fails the fetch so the artifact is reported incomplete.
func (u *Unit) fetch(ctx context.Context, dir, path string, f catalog.FileEntry) (int64, error) {
	h, err := verify.NewHash(f.HashAlgorithm)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, partialPattern)
	if err != nil {
		return 0, errors.Errorf("creating partial file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := u.fetcher.Fetch(ctx, f.URL, io.MultiWriter(tmp, h))
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = errors.Errorf("closing partial file: %w", closeErr)
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Errorf("moving %s into place: %w", path, err)
	}

	if got := verify.Encode(h); !verify.Equal(got, f.Hash) {
		return n, errors.Errorf("content of %s hashes to %s, catalog expects %s: %w", f.URL, got, f.Hash, apperr.ErrTransientFetch)
	}
	return n, nil
}

// matches reports whether path already holds the expected content.
func matches(ctx context.Context, path string, f catalog.FileEntry) (int64, bool, error) {
	digest, err := verify.HashFile(ctx, path, f.HashAlgorithm)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if !verify.Equal(digest, f.Hash) {
		return 0, false, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0, false, errors.Errorf("stat %s: %w", path, err)
	}
	return fi.Size(), true, nil
}

func ensureDir(dir string) error {
	fi, err := os.Lstat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.Mkdir(dir, 0o755); err != nil {
			return errors.Errorf("creating %s: %w", dir, err)
		}
		return nil
	case err != nil:
		return errors.Errorf("stat %s: %w", dir, err)
	case !fi.IsDir():
		return errors.Errorf("%s exists and is not a directory: %w", dir, apperr.ErrConflict)
	}
	return nil
}
