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

package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/verify"
)

var requiredArtifactKeys = []string{
	"id", "url", "url_aliases", "title", "summary", "files", "links",
	"people", "identities", "from_year", "decades", "collections",
}

var requiredFileKeys = []string{
	"name", "filename", "hash", "hash_algorithm", "url", "hidden",
}

// ValidationError describes a catalog record that was rejected.
type ValidationError struct {
	// ID is the record id when it could be read.
	ID  string
	Err error
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid artifact record: %v", e.Err)
	}
	return fmt.Sprintf("invalid artifact record %s: %v", e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is lets callers match any ValidationError with apperr.ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == apperr.ErrValidation }

// 📥 Decode turns one raw catalog item into a validated ArtifactRecord.
// Unknown fields are ignored; missing required fields, wrong types and
// unusable values all produce a *ValidationError.
func Decode(raw json.RawMessage) (ArtifactRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ArtifactRecord{}, &ValidationError{Err: errors.Errorf("decoding object: %w", err)}
	}

	id := peekString(fields["id"])

	if missing := missingKeys(fields, requiredArtifactKeys); len(missing) > 0 {
		return ArtifactRecord{}, &ValidationError{ID: id, Err: errors.Errorf("missing fields: %s", strings.Join(missing, ", "))}
	}

	var rawFiles []map[string]json.RawMessage
	if err := json.Unmarshal(fields["files"], &rawFiles); err != nil {
		return ArtifactRecord{}, &ValidationError{ID: id, Err: errors.Errorf("decoding files: %w", err)}
	}
	for i, f := range rawFiles {
		if missing := missingKeys(f, requiredFileKeys); len(missing) > 0 {
			return ArtifactRecord{}, &ValidationError{ID: id, Err: errors.Errorf("files[%d] missing fields: %s", i, strings.Join(missing, ", "))}
		}
	}

	var rec ArtifactRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ArtifactRecord{}, &ValidationError{ID: id, Err: errors.Errorf("decoding record: %w", err)}
	}

	for i := range rec.Files {
		rec.Files[i].SanitizedName = SanitizeFilename(rec.Files[i].Filename)
	}

	if err := rec.Validate(); err != nil {
		return ArtifactRecord{}, &ValidationError{ID: id, Err: err}
	}

	return rec, nil
}

// Validate checks the fields keeper relies on. Descriptive fields are not
// inspected beyond their JSON types.
func (r ArtifactRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.URL, validation.Required, validation.By(httpURL), validation.By(usableDirName)),
		validation.Field(&r.Files),
		validation.Field(&r.Links),
	)
}

// Validate checks a single file entry.
func (f FileEntry) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Filename, validation.Required),
		validation.Field(&f.Hash, validation.Required, is.Hexadecimal),
		validation.Field(&f.HashAlgorithm, validation.Required, validation.By(supportedAlgorithm)),
		validation.Field(&f.URL, validation.Required, validation.By(httpURL)),
	)
}

// Validate checks a link.
func (l Link) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.URL, validation.Required),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

func usableDirName(value any) error {
	s, _ := value.(string)
	if !ValidDirName(lastSegment(s)) {
		return errors.New("last path segment is not a usable directory name")
	}
	return nil
}

func supportedAlgorithm(value any) error {
	s, _ := value.(string)
	if !verify.Supported(s) {
		return errors.Errorf("must be one of %s", strings.Join(verify.Algorithms(), ", "))
	}
	return nil
}

func missingKeys(fields map[string]json.RawMessage, required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func peekString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
