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
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/catalog"
)

// 🔎 DetectRenames finds artifact directories that are not expected under
// their current name and recovers the artifact id each one holds from its
// metadata file. The result maps artifact id to the directory name found on
// disk. Directories without readable metadata are left for pruning. When two
// directories claim the same id the first in lexical order wins.
func (s *Store) DetectRenames(ctx context.Context, expected map[string]struct{}) (map[string]string, error) {
	logger := zerolog.Ctx(ctx)

	dirs, err := s.ArtifactDirs()
	if err != nil {
		return nil, err
	}

	moved := map[string]string{}
	for _, dir := range dirs {
		if _, ok := expected[dir]; ok {
			continue
		}

		id, err := s.ReadArtifactID(dir)
		if err != nil {
			logger.Debug().Err(err).Str("dir", dir).Msg("unexpected directory has no usable metadata")
			continue
		}

		if prev, ok := moved[id]; ok {
			logger.Warn().Str("id", id).Str("kept", prev).Str("ignored", dir).Msg("several directories claim the same artifact")
			continue
		}
		moved[id] = dir
	}

	if len(moved) > 0 {
		logger.Info().Int("count", len(moved)).Msg("detected renamed artifacts")
	}
	return moved, nil
}

// MatchAliases extends moved with unexpected directories whose name matches
// an alias of a record, for directories whose metadata could not be read.
// A directory is only claimed once and a record that already has a match
// keeps it.
func (s *Store) MatchAliases(ctx context.Context, records []catalog.ArtifactRecord, expected map[string]struct{}, moved map[string]string) error {
	logger := zerolog.Ctx(ctx)

	dirs, err := s.ArtifactDirs()
	if err != nil {
		return err
	}

	claimed := map[string]struct{}{}
	for _, dir := range moved {
		claimed[dir] = struct{}{}
	}

	available := map[string]struct{}{}
	for _, dir := range dirs {
		if _, ok := expected[dir]; ok {
			continue
		}
		if _, ok := claimed[dir]; ok {
			continue
		}
		available[dir] = struct{}{}
	}

	for _, rec := range records {
		if _, ok := moved[rec.ID]; ok {
			continue
		}
		for _, alias := range rec.AliasDirNames() {
			if _, ok := available[alias]; !ok {
				continue
			}
			if id, err := s.ReadArtifactID(alias); err == nil && id != rec.ID {
				continue
			}
			logger.Debug().Str("id", rec.ID).Str("dir", alias).Msg("matched renamed artifact by url alias")
			moved[rec.ID] = alias
			delete(available, alias)
			break
		}
	}
	return nil
}

// ReadArtifactID returns the id stored in the metadata file of dir.
func (s *Store) ReadArtifactID(dir string) (string, error) {
	path := filepath.Join(s.artifactRoot, dir, catalog.MetadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", path, err)
	}

	var md struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &md); err != nil {
		return "", errors.Errorf("decoding %s: %w", path, err)
	}
	if md.ID == "" {
		return "", errors.Errorf("%s has no id", path)
	}
	return md.ID, nil
}
