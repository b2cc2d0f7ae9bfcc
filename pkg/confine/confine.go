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

// Package confine guards destructive filesystem operations so they only
// ever touch descendants of a designated root.
package confine

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
)

// Within returns nil when target is a strict descendant of root. Both paths
// are made absolute and symlinks in their existing prefixes are resolved
// first, so a symlinked directory pointing outside root is rejected.
func Within(root, target string) error {
	r, err := resolve(root)
	if err != nil {
		return errors.Errorf("resolving root %s: %w", root, err)
	}
	t, err := resolve(target)
	if err != nil {
		return errors.Errorf("resolving target %s: %w", target, err)
	}

	rel, err := filepath.Rel(r, t)
	if err != nil {
		return errors.Errorf("%w: %s is not under %s", apperr.ErrUnsafe, target, root)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return errors.Errorf("%w: %s is not under %s", apperr.ErrUnsafe, target, root)
	}
	return nil
}

// Remove deletes target after checking it is confined to root. Directories
// are removed recursively; symlinks are unlinked, never followed.
func Remove(root, target string) error {
	if err := Within(root, target); err != nil {
		return err
	}

	fi, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Errorf("stat %s: %w", target, err)
	}

	if fi.IsDir() {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil {
		return errors.Errorf("removing %s: %w", target, err)
	}
	return nil
}

// resolve makes p absolute and evaluates symlinks in the longest existing
// prefix. The final element is not followed when it is itself a symlink so
// that a link can be checked, and then removed, in place.
func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	dir, base := filepath.Split(abs)
	if base == "" {
		return evalExisting(abs)
	}

	fi, err := os.Lstat(abs)
	if err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		parent, err := evalExisting(filepath.Clean(dir))
		if err != nil {
			return "", err
		}
		return filepath.Join(parent, base), nil
	}

	return evalExisting(abs)
}

// evalExisting resolves symlinks for the part of p that exists and appends
// the rest unchanged.
func evalExisting(p string) (string, error) {
	var rest []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}
