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

// Package archive reads and writes the snapshot zip container.
package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
)

// BackupSuffix is appended, after a unix timestamp, to archives moved aside.
const BackupSuffix = ".bakup"

// Entry describes one file in the archive.
type Entry struct {
	Name     string
	Size     uint64
	Modified time.Time
}

// Reader is an open snapshot archive.
type Reader struct {
	path string
	zr   *zip.ReadCloser
}

// 📦 Open opens the archive at path. A missing file yields
// apperr.ErrNotFound and a file that is not a zip container yields
// apperr.ErrCorruptContainer.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, errors.Errorf("opening %s: %w", path, apperr.ErrNotFound)
		case isCorrupt(err):
			return nil, errors.Errorf("opening %s: %w: %w", path, apperr.ErrCorruptContainer, err)
		}
		return nil, errors.Errorf("opening %s: %w", path, err)
	}
	return &Reader{path: path, zr: zr}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// ReadFile returns the content of the entry called name.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	for _, f := range r.zr.File {
		if f.Name != name {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, errors.Errorf("reading %s from %s: %w: %w", name, r.path, apperr.ErrCorruptContainer, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.Errorf("reading %s from %s: %w: %w", name, r.path, apperr.ErrCorruptContainer, err)
		}
		return data, nil
	}
	return nil, errors.Errorf("reading %s from %s: %w", name, r.path, apperr.ErrNotFound)
}

// List returns the file entries matching a doublestar pattern, sorted by
// name. An empty pattern matches everything.
func (r *Reader) List(pattern string) ([]Entry, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid pattern %q: %w", pattern, apperr.ErrValidation)
	}

	var out []Entry
	for _, f := range r.zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		ok, err := doublestar.Match(pattern, f.Name)
		if err != nil {
			return nil, errors.Errorf("matching %q: %w", pattern, err)
		}
		if !ok {
			continue
		}
		out = append(out, Entry{Name: f.Name, Size: f.UncompressedSize64, Modified: f.Modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// 📤 Extract writes every entry below dest. Entries that would land
// outside dest, and any read failure, are reported as
// apperr.ErrCorruptContainer; failures writing to dest are returned as is.
func (r *Reader) Extract(ctx context.Context, dest string) (int, error) {
	logger := zerolog.Ctx(ctx)

	count := 0
	for _, f := range r.zr.File {
		if err := ctx.Err(); err != nil {
			return count, errors.WithStack(err)
		}

		name := filepath.FromSlash(strings.TrimSuffix(f.Name, "/"))
		if name == "" || !filepath.IsLocal(name) {
			return count, errors.Errorf("entry %q escapes the extraction root: %w", f.Name, apperr.ErrCorruptContainer)
		}
		target := filepath.Join(dest, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return count, errors.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			logger.Warn().Str("entry", f.Name).Msg("skipping non-regular archive entry")
			continue
		}

		if err := extractFile(f, target); err != nil {
			return count, err
		}
		count++
	}

	logger.Debug().Int("files", count).Str("archive", r.path).Msg("extracted archive")
	return count, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Errorf("creating %s: %w", filepath.Dir(target), err)
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Errorf("opening entry %s: %w: %w", f.Name, apperr.ErrCorruptContainer, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Errorf("creating %s: %w", target, err)
	}

	src := &trackingReader{r: rc}
	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		return errors.Errorf("closing %s: %w", target, closeErr)
	}
	if err != nil {
		if src.err != nil {
			return errors.Errorf("reading entry %s: %w: %w", f.Name, apperr.ErrCorruptContainer, err)
		}
		return errors.Errorf("writing %s: %w", target, err)
	}

	if !f.Modified.IsZero() {
		_ = os.Chtimes(target, f.Modified, f.Modified)
	}
	return nil
}

// 🗜️ Write packs every regular file under srcDir into a new archive at
// dest, stored without compression in lexical path order. The archive is
// built in a temp file next to dest and renamed over it only once complete,
// so a failed or cancelled write leaves any previous archive untouched.
func Write(ctx context.Context, srcDir, dest string) (int, error) {
	logger := zerolog.Ctx(ctx)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, errors.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, errors.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	count := 0

	err = filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			logger.Warn().Str("path", p).Msg("skipping non-regular file while packing")
			return nil
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if err := addFile(zw, p, path.Clean(filepath.ToSlash(rel))); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return 0, errors.Errorf("packing %s: %w", srcDir, err)
	}

	if err := zw.Close(); err != nil {
		return 0, errors.Errorf("finishing archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, errors.Errorf("syncing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Errorf("closing archive: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return 0, errors.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, errors.Errorf("replacing %s: %w", dest, err)
	}
	committed = true

	logger.Info().Int("files", count).Str("archive", dest).Msg("wrote archive")
	return count, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Store

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// MoveAside renames the archive at path to path.<unix-ts>.bakup and
// returns the new name.
func MoveAside(path string, clock clockwork.Clock) (string, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	target := path + "." + strconv.FormatInt(clock.Now().Unix(), 10) + BackupSuffix
	if err := os.Rename(path, target); err != nil {
		return "", errors.Errorf("moving %s aside: %w", path, err)
	}
	return target, nil
}

func isCorrupt(err error) bool {
	return errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// trackingReader remembers the last read error so a failed copy can be
// attributed to the archive rather than the destination.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
