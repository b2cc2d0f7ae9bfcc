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

package artifact

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/catalog"
	"github.com/walteh/keeper/pkg/confine"
)

// 🧹 PruneStaleFiles removes everything in the artifact directory that is
// neither one of its catalog files nor the metadata file, then removes
// subdirectories left empty. It does nothing, and says so in the log, when
// the directory is not a real directory inside the working root.
func (u *Unit) PruneStaleFiles(ctx context.Context, rec catalog.ArtifactRecord) ([]string, error) {
	logger := zerolog.Ctx(ctx).With().Str("artifact", rec.ID).Logger()

	dir := u.Dir(rec)
	if err := confine.Within(u.workingRoot, dir); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("refusing to prune outside the working root")
		return nil, nil
	}

	fi, err := os.Lstat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Errorf("stat %s: %w", dir, err)
	}
	if !fi.IsDir() {
		logger.Error().Str("dir", dir).Msg("refusing to prune a path that is not a directory")
		return nil, nil
	}

	expected := map[string]struct{}{catalog.MetadataFileName: {}}
	for _, f := range rec.Files {
		expected[f.SanitizedName] = struct{}{}
	}

	p := &pruner{root: u.workingRoot, base: dir, expected: expected}
	if _, err := p.walk(ctx, dir); err != nil {
		return p.removed, err
	}

	for _, path := range p.removed {
		logger.Info().Str("path", path).Msg("pruned stale path")
	}
	return p.removed, nil
}

type pruner struct {
	root     string
	base     string
	expected map[string]struct{}
	removed  []string
}

// walk visits dir depth first and reports whether it ended up empty.
// Symlinks are treated as files and never followed.
func (p *pruner) walk(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.WithStack(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, errors.Errorf("reading %s: %w", dir, err)
	}

	remaining := 0
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())

		if e.IsDir() {
			empty, err := p.walk(ctx, path)
			if err != nil {
				return false, err
			}
			if !empty {
				remaining++
				continue
			}
			if err := p.remove(path); err != nil {
				return false, err
			}
			continue
		}

		if dir == p.base {
			if _, ok := p.expected[e.Name()]; ok {
				remaining++
				continue
			}
		}
		if err := p.remove(path); err != nil {
			return false, err
		}
	}

	return remaining == 0, nil
}

func (p *pruner) remove(path string) error {
	if err := confine.Remove(p.root, path); err != nil {
		return err
	}
	p.removed = append(p.removed, path)
	return nil
}
