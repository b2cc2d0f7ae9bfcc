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
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/canonical"
)

const (
	// FormatVersion is the manifest format this build writes.
	FormatVersion = 1

	// CreatedAtLayout is the manifest timestamp layout, always UTC.
	CreatedAtLayout = "2006-01-02T15:04:05Z"
)

var checksumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Manifest describes one committed snapshot.
type Manifest struct {
	FormatVersion int    `json:"format_version"`
	KeeperID      string `json:"keeper_id"`
	Checksum      string `json:"checksum"`
	Size          int64  `json:"size"`
	Email         string `json:"email,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Validate applies the same rules the server uses for backup reports.
func (m Manifest) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.FormatVersion, validation.Required, validation.Min(1), validation.Max(FormatVersion)),
		validation.Field(&m.KeeperID, validation.Required, validation.By(nonNilUUID)),
		validation.Field(&m.Checksum, validation.Required, validation.Match(checksumPattern)),
		validation.Field(&m.Size, validation.Min(int64(0))),
		validation.Field(&m.Email, is.EmailFormat),
		validation.Field(&m.CreatedAt, validation.Required, validation.Date(CreatedAtLayout)),
	)
	if err != nil {
		return errors.Errorf("invalid manifest: %w: %w", apperr.ErrValidation, err)
	}
	return nil
}

func nonNilUUID(value any) error {
	s, _ := value.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return errors.New("must be a valid UUID")
	}
	if id == uuid.Nil {
		return errors.New("must not be the nil UUID")
	}
	return nil
}

// ParseManifest decodes a manifest without validating it.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}

// 📝 WriteManifest writes the manifest for this snapshot at the root.
func (s *Store) WriteManifest(ctx context.Context, keeperID, checksum string, size int64, email string) (*Manifest, error) {
	m := &Manifest{
		FormatVersion: FormatVersion,
		KeeperID:      keeperID,
		Checksum:      checksum,
		Size:          size,
		Email:         email,
		CreatedAt:     s.clock.Now().UTC().Format(CreatedAtLayout),
	}

	if _, err := canonical.WriteFile(filepath.Join(s.root, ManifestName), m); err != nil {
		return nil, errors.Errorf("writing manifest: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("checksum", checksum).Int64("size", size).Msg("wrote backup manifest")
	return m, nil
}
