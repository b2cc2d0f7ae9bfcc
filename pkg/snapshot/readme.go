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
	_ "embed"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/canonical"
)

//go:embed static/README.md
var readme []byte

// WriteReadme places the static readme at the snapshot root.
func (s *Store) WriteReadme() error {
	if _, err := canonical.ReplaceFile(filepath.Join(s.root, ReadmeName), readme); err != nil {
		return errors.Errorf("writing readme: %w", err)
	}
	return nil
}
