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

// Package snapshot manages the working tree of one backup run: the
// artifacts directory, the manifest and the readme at its root.
package snapshot

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/jonboulle/clockwork"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
)

const (
	// ArtifactsDir holds one directory per catalog artifact.
	ArtifactsDir = "artifacts"
	// ManifestName is the snapshot manifest at the root.
	ManifestName = "backup.json"
	// ReadmeName is the static readme at the root.
	ReadmeName = "README.md"
)

// Store owns a snapshot working tree. It is not safe for concurrent use.
type Store struct {
	root         string
	artifactRoot string
	clock        clockwork.Clock
}

// 🏭 Open prepares root as a snapshot working tree, creating the artifacts
// directory when missing.
func Open(ctx context.Context, root string, clock clockwork.Clock) (*Store, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", root, err)
	}

	artifacts := filepath.Join(abs, ArtifactsDir)
	fi, err := os.Lstat(artifacts)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(artifacts, 0o755); err != nil {
			return nil, errors.Errorf("creating %s: %w", artifacts, err)
		}
	case err != nil:
		return nil, errors.Errorf("stat %s: %w", artifacts, err)
	case !fi.IsDir():
		return nil, errors.Errorf("%s is not a directory: %w", artifacts, apperr.ErrConflict)
	}

	return &Store{root: abs, artifactRoot: artifacts, clock: clock}, nil
}

// Root is the absolute snapshot root.
func (s *Store) Root() string { return s.root }

// ArtifactRoot is the absolute artifacts directory.
func (s *Store) ArtifactRoot() string { return s.artifactRoot }

// ArtifactDirs lists the directories directly under the artifacts
// directory in lexical order. Symlinks and files are not included.
func (s *Store) ArtifactDirs() ([]string, error) {
	entries, err := os.ReadDir(s.artifactRoot)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", s.artifactRoot, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
