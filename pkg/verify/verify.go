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

// Package verify computes content digests of local files.
package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 1 << 20

// DefaultAlgorithm is what the catalog publishes for every file today.
const DefaultAlgorithm = "sha256"

var algorithms = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"blake3": func() hash.Hash { return blake3.New() },
}

// Supported reports whether algorithm names a known hash.
func Supported(algorithm string) bool {
	_, ok := algorithms[normalize(algorithm)]
	return ok
}

// Algorithms returns the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// 🔐 NewHash returns a fresh hash for algorithm.
func NewHash(algorithm string) (hash.Hash, error) {
	fn, ok := algorithms[normalize(algorithm)]
	if !ok {
		return nil, errors.Errorf("unsupported hash algorithm %q: %w", algorithm, apperr.ErrValidation)
	}
	return fn(), nil
}

// Encode renders a digest the way the catalog does: lowercase hex.
func Encode(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Equal compares two hex digests ignoring case.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// 🔍 HashFile streams the file at path through algorithm and returns the
// hex digest. A missing file yields apperr.ErrNotFound. Any other I/O
// error is returned as is so callers can treat it as fatal.
func HashFile(ctx context.Context, path string, algorithm string) (string, error) {
	h, err := NewHash(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errors.Errorf("hashing %s: %w", path, apperr.ErrNotFound)
		}
		return "", errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, &ctxReader{ctx: ctx, r: f}, buf); err != nil {
		return "", errors.Errorf("reading %s: %w", path, err)
	}

	return Encode(h), nil
}

func normalize(algorithm string) string {
	return strings.ToLower(strings.TrimSpace(algorithm))
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
