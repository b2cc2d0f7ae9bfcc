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
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/archive"
	"github.com/walteh/keeper/pkg/catalog"
	"github.com/walteh/keeper/pkg/remote"
)

const testKeeperID = "6f1c2a47-5b0e-4c3f-9a8d-2e7b1c0d9f34"

// fakeRemote is an in-memory catalog, checksum service, backups endpoint
// and file server.
type fakeRemote struct {
	mu sync.Mutex

	records   []catalog.ArtifactRecord
	content   map[string]string
	failing   map[string]bool
	server    *remote.ServerChecksum
	listErr   error
	reportErr error
	delay     time.Duration
	onFetch   func()

	catalogCalls  int
	checksumCalls int
	fetched       []string
	reports       []remote.BackupReport
	inFlight      int
	maxInFlight   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{content: map[string]string{}, failing: map[string]bool{}}
}

func (f *fakeRemote) ListCatalog(ctx context.Context) ([]catalog.ArtifactRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]catalog.ArtifactRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeRemote) ServerChecksum(ctx context.Context) (remote.ServerChecksum, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checksumCalls++
	if f.server == nil {
		return remote.ServerChecksum{}, false
	}
	return *f.server, true
}

func (f *fakeRemote) ReportBackup(ctx context.Context, report remote.BackupReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reportErr != nil {
		return f.reportErr
	}
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeRemote) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	body, ok := f.content[url]
	failing := f.failing[url]
	hook := f.onFetch
	delay := f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !ok || failing {
		return 0, errors.Errorf("fetching %s: %w", url, apperr.ErrTransientFetch)
	}
	n, err := io.WriteString(w, body)
	return int64(n), err
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func (f *fakeRemote) resetCounters() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogCalls = 0
	f.checksumCalls = 0
	f.fetched = nil
	f.reports = nil
}

// add registers an artifact whose files are served by the fake.
func (f *fakeRemote) add(id, dir string, files map[string]string) catalog.ArtifactRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	rec := catalog.ArtifactRecord{
		ID:    id,
		URL:   "https://acearchive.lgbt/artifacts/" + dir,
		Title: "title " + id,
	}
	for _, name := range names {
		url := "https://files.example/" + id + "/" + name
		f.content[url] = files[name]
		rec.Files = append(rec.Files, catalog.FileEntry{
			Name:          name,
			Filename:      name,
			SanitizedName: catalog.SanitizeFilename(name),
			Hash:          digest(files[name]),
			HashAlgorithm: "sha256",
			URL:           url,
		})
	}
	f.records = append(f.records, rec)
	return rec
}

func (f *fakeRemote) setRecords(records ...catalog.ArtifactRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func testCtx(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

type harness struct {
	remote  *fakeRemote
	archive string
	clock   clockwork.Clock
}

func newHarness(t *testing.T) *harness {
	return &harness{
		remote:  newFakeRemote(),
		archive: filepath.Join(t.TempDir(), "keeper.zip"),
		clock:   clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func (h *harness) engine(t *testing.T, mutate ...func(*Options)) *Engine {
	t.Helper()
	opts := Options{
		KeeperID:    testKeeperID,
		ArchivePath: h.archive,
		WorkDir:     t.TempDir(),
		Concurrency: 4,
		Catalog:     h.remote,
		Checksums:   h.remote,
		Reporter:    h.remote,
		Fetcher:     h.remote,
		Clock:       h.clock,
	}
	for _, m := range mutate {
		m(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

// archiveFiles maps each file in the archive to its content.
func archiveFiles(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.List("")
	require.NoError(t, err)

	out := map[string]string{}
	for _, e := range entries {
		data, err := r.ReadFile(e.Name)
		require.NoError(t, err)
		out[e.Name] = string(data)
	}
	return out
}

func openArchive(t *testing.T, path string) *archive.Reader {
	t.Helper()
	r, err := archive.Open(path)
	require.NoError(t, err)
	return r
}

// rewriteArchive replaces path with a fresh archive of dir.
func rewriteArchive(t *testing.T, dir, path string) {
	t.Helper()
	_, err := archive.Write(context.Background(), dir, path)
	require.NoError(t, err)
}

// writeEvilArchive writes a valid zip whose only entry escapes the extraction root.
func writeEvilArchive(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../evil.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("gotcha"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}
