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
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/canonical"
	"github.com/walteh/keeper/pkg/catalog"
)

const keeperID = "6f1c2a47-5b0e-4c3f-9a8d-2e7b1c0d9f34"

func testCtx(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func newStore(t *testing.T) *Store {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 30, 45, 0, time.FixedZone("X", 3600)))
	s, err := Open(testCtx(t), t.TempDir(), clock)
	require.NoError(t, err)
	return s
}

func writeMetadata(t *testing.T, s *Store, dir, id string) {
	t.Helper()
	path := filepath.Join(s.ArtifactRoot(), dir)
	require.NoError(t, os.MkdirAll(path, 0o755))
	rec := catalog.ArtifactRecord{ID: id, URL: "https://acearchive.lgbt/artifacts/" + dir}
	_, err := canonical.WriteFile(filepath.Join(path, catalog.MetadataFileName), rec.Metadata())
	require.NoError(t, err)
}

func set(names ...string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func TestOpen_Conflict(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ArtifactsDir), []byte("x"), 0o644))

	_, err := Open(testCtx(t), root, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestDetectRenames(t *testing.T) {
	s := newStore(t)

	writeMetadata(t, s, "current", "A")
	writeMetadata(t, s, "old-b", "B")
	writeMetadata(t, s, "old-c-1", "C")
	writeMetadata(t, s, "old-c-2", "C")
	require.NoError(t, os.MkdirAll(filepath.Join(s.ArtifactRoot(), "no-metadata"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(s.ArtifactRoot(), "corrupt"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.ArtifactRoot(), "corrupt", catalog.MetadataFileName), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.ArtifactRoot(), "stray-file"), []byte("x"), 0o644))

	moved, err := s.DetectRenames(testCtx(t), set("current", "new-b", "new-c"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"B": "old-b", "C": "old-c-1"}, moved)
}

func TestMatchAliases(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(s.ArtifactRoot(), "legacy"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(s.ArtifactRoot(), "taken"), 0o755))
	writeMetadata(t, s, "other", "Z")

	records := []catalog.ArtifactRecord{
		{ID: "A", URL: "https://acearchive.lgbt/artifacts/a", URLAliases: []string{"https://acearchive.lgbt/artifacts/legacy"}},
		{ID: "B", URL: "https://acearchive.lgbt/artifacts/b", URLAliases: []string{"https://acearchive.lgbt/artifacts/legacy"}},
		{ID: "C", URL: "https://acearchive.lgbt/artifacts/c", URLAliases: []string{"https://acearchive.lgbt/artifacts/other"}},
		{ID: "D", URL: "https://acearchive.lgbt/artifacts/d", URLAliases: []string{"https://acearchive.lgbt/artifacts/taken"}},
	}
	moved := map[string]string{"D": "elsewhere", "Y": "taken"}

	require.NoError(t, s.MatchAliases(testCtx(t), records, set("a", "b", "c", "d"), moved))
	assert.Equal(t, map[string]string{"A": "legacy", "D": "elsewhere", "Y": "taken"}, moved)
}

func TestPruneToExpected(t *testing.T) {
	s := newStore(t)
	writeMetadata(t, s, "keep", "A")
	writeMetadata(t, s, "gone", "B")
	require.NoError(t, os.WriteFile(filepath.Join(s.ArtifactRoot(), "stray.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), ManifestName), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "junk", "deep"), 0o755))

	outside := t.TempDir()
	precious := filepath.Join(outside, "precious.txt")
	require.NoError(t, os.WriteFile(precious, []byte("keep"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(s.ArtifactRoot(), "evil")))

	res, err := s.PruneToExpected(testCtx(t), set("keep"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(s.ArtifactRoot(), "evil"),
		filepath.Join(s.ArtifactRoot(), "gone"),
		filepath.Join(s.ArtifactRoot(), "stray.txt"),
	}, res.Artifacts)
	assert.Equal(t, []string{
		filepath.Join(s.Root(), "junk"),
		filepath.Join(s.Root(), "notes.txt"),
	}, res.Root)
	assert.Equal(t, 5, res.Len())

	assert.DirExists(t, filepath.Join(s.ArtifactRoot(), "keep"))
	assert.FileExists(t, filepath.Join(s.Root(), ManifestName))
	assert.FileExists(t, precious)
}

func TestAggregateChecksum(t *testing.T) {
	a := catalog.ArtifactRecord{ID: "a", URL: "https://x/a", Title: "A"}.Metadata()
	b := catalog.ArtifactRecord{ID: "b", URL: "https://x/b", Title: "B"}.Metadata()
	c := catalog.ArtifactRecord{ID: "c", URL: "https://x/c", Title: "C"}.Metadata()

	want, err := AggregateChecksum([]catalog.Metadata{a, b, c})
	require.NoError(t, err)

	for _, perm := range [][]catalog.Metadata{{c, b, a}, {b, a, c}, {a, c, b}} {
		got, err := AggregateChecksum(perm)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	encoded, err := canonical.Marshal([]catalog.Metadata{a, b, c})
	require.NoError(t, err)
	digest := sha256.Sum256(encoded)
	assert.Equal(t, hex.EncodeToString(digest[:]), want)

	b.Title = "changed"
	changed, err := AggregateChecksum([]catalog.Metadata{a, b, c})
	require.NoError(t, err)
	assert.NotEqual(t, want, changed)

	empty, err := AggregateChecksum(nil)
	require.NoError(t, err)
	emptyDigest := sha256.Sum256([]byte("[]"))
	assert.Equal(t, hex.EncodeToString(emptyDigest[:]), empty)
}

func TestWriteManifest(t *testing.T) {
	checksum := hex.EncodeToString(make([]byte, 32))

	tests := []struct {
		name  string
		email string
		want  string
	}{
		{
			name: "without_email",
			want: `{"checksum":"` + checksum + `","created_at":"2024-06-01T11:30:45Z","format_version":1,"keeper_id":"` + keeperID + `","size":1234}`,
		},
		{
			name:  "with_email",
			email: "keeper@example.org",
			want:  `{"checksum":"` + checksum + `","created_at":"2024-06-01T11:30:45Z","email":"keeper@example.org","format_version":1,"keeper_id":"` + keeperID + `","size":1234}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			m, err := s.WriteManifest(testCtx(t), keeperID, checksum, 1234, tt.email)
			require.NoError(t, err)
			require.NoError(t, m.Validate())

			got, err := os.ReadFile(filepath.Join(s.Root(), ManifestName))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			parsed, err := ParseManifest(got)
			require.NoError(t, err)
			assert.Equal(t, m, parsed)
		})
	}
}

func TestManifestValidate(t *testing.T) {
	valid := Manifest{
		FormatVersion: 1,
		KeeperID:      keeperID,
		Checksum:      hex.EncodeToString(make([]byte, 32)),
		Size:          1,
		CreatedAt:     "2024-06-01T11:30:45Z",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(m *Manifest)
	}{
		{name: "future_format", mutate: func(m *Manifest) { m.FormatVersion = 2 }},
		{name: "zero_format", mutate: func(m *Manifest) { m.FormatVersion = 0 }},
		{name: "nil_uuid", mutate: func(m *Manifest) { m.KeeperID = "00000000-0000-0000-0000-000000000000" }},
		{name: "not_uuid", mutate: func(m *Manifest) { m.KeeperID = "keeper" }},
		{name: "short_checksum", mutate: func(m *Manifest) { m.Checksum = "abc" }},
		{name: "bad_email", mutate: func(m *Manifest) { m.Email = "not-an-email" }},
		{name: "bad_date", mutate: func(m *Manifest) { m.CreatedAt = "yesterday" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
		})
	}
}

func TestWriteReadme(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.WriteReadme())
	require.NoError(t, s.WriteReadme())

	got, err := os.ReadFile(filepath.Join(s.Root(), ReadmeName))
	require.NoError(t, err)
	assert.Contains(t, string(got), "artifacts/")
}
