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

	"github.com/walteh/keeper/pkg/confine"
)

// 🚚 Relocate renames the artifact directory fromDir to toDir and returns
// the resulting path. An existing destination is never overwritten: the
// rename is skipped with a warning and the old path is returned.
func (u *Unit) Relocate(ctx context.Context, fromDir, toDir string) (string, error) {
	logger := zerolog.Ctx(ctx)

	from := filepath.Join(u.artifactRoot, fromDir)
	to := filepath.Join(u.artifactRoot, toDir)

	for _, p := range []string{from, to} {
		if err := confine.Within(u.workingRoot, p); err != nil {
			return from, errors.Errorf("relocating %s: %w", fromDir, err)
		}
	}

	if _, err := os.Lstat(to); err == nil {
		logger.Warn().Str("from", fromDir).Str("to", toDir).Msg("relocation target already exists, leaving artifact in place")
		return from, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return from, errors.Errorf("stat %s: %w", to, err)
	}

	if err := os.Rename(from, to); err != nil {
		return from, errors.Errorf("renaming %s to %s: %w", fromDir, toDir, err)
	}

	logger.Info().Str("from", fromDir).Str("to", toDir).Msg("relocated artifact directory")
	return to, nil
}
