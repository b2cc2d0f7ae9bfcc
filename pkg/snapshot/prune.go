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

package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/confine"
)

// PruneResult lists what PruneToExpected removed.
type PruneResult struct {
	Artifacts []string
	Root      []string
}

// Len is the total number of removed paths.
func (p PruneResult) Len() int {
	return len(p.Artifacts) + len(p.Root)
}

// 🧹 PruneToExpected removes every entry under the artifacts directory that
// is not named in expected, and every entry at the root other than the
// artifacts directory, the manifest and the readme. Each removal is checked
// against the snapshot root first and refused, with a log line, when it
// would escape it.
func (s *Store) PruneToExpected(ctx context.Context, expected map[string]struct{}) (PruneResult, error) {
	var res PruneResult

	artifacts, err := s.pruneDir(ctx, s.artifactRoot, expected)
	if err != nil {
		return res, err
	}
	res.Artifacts = artifacts

	root, err := s.pruneDir(ctx, s.root, map[string]struct{}{
		ArtifactsDir: {},
		ManifestName: {},
		ReadmeName:   {},
	})
	if err != nil {
		return res, err
	}
	res.Root = root

	return res, nil
}

func (s *Store) pruneDir(ctx context.Context, dir string, keep map[string]struct{}) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", dir, err)
	}

	var removed []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, errors.WithStack(err)
		}
		if _, ok := keep[e.Name()]; ok {
			continue
		}

		path := filepath.Join(dir, e.Name())
		if err := confine.Remove(s.root, path); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("refusing to prune")
			continue
		}
		logger.Info().Str("path", path).Msg("pruned")
		removed = append(removed, path)
	}

	sort.Strings(removed)
	return removed, nil
}
