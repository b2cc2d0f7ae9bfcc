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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
)

const validRecord = `{
	"id": "a1b2",
	"url": "https://acearchive.lgbt/artifacts/orlando",
	"url_aliases": ["https://acearchive.lgbt/artifacts/old-orlando"],
	"title": "Orlando",
	"summary": "A novel",
	"description": null,
	"files": [{
		"name": "Scan",
		"filename": "scan.pdf",
		"media_type": "application/pdf",
		"hash": "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		"hash_algorithm": "sha256",
		"url": "https://files.acearchive.lgbt/scan.pdf",
		"hidden": false
	}],
	"links": [{"name": "Wiki", "url": "https://example.org/orlando"}],
	"people": ["Virginia Woolf"],
	"identities": [],
	"from_year": 1928,
	"decades": [1920],
	"collections": [],
	"extra_field": "ignored"
}`

func mutate(t *testing.T, fn func(m map[string]any)) json.RawMessage {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(validRecord), &m))
	fn(m)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestDecode(t *testing.T) {
	rec, err := Decode(json.RawMessage(validRecord))
	require.NoError(t, err)

	assert.Equal(t, "a1b2", rec.ID)
	assert.Equal(t, "orlando", rec.DirName())
	assert.Equal(t, []string{"old-orlando"}, rec.AliasDirNames())
	require.Len(t, rec.Files, 1)
	assert.Equal(t, "scan.pdf", rec.Files[0].SanitizedName)
	assert.Nil(t, rec.Files[0].Lang)
	require.NotNil(t, rec.Files[0].MediaType)
	assert.Equal(t, "application/pdf", *rec.Files[0].MediaType)
	assert.Nil(t, rec.ToYear)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		raw    json.RawMessage
		wantID string
	}{
		{
			name: "not_an_object",
			raw:  json.RawMessage(`[1,2]`),
		},
		{
			name:   "missing_title",
			raw:    mutate(t, func(m map[string]any) { delete(m, "title") }),
			wantID: "a1b2",
		},
		{
			name:   "wrong_type",
			raw:    mutate(t, func(m map[string]any) { m["from_year"] = "nineteen" }),
			wantID: "a1b2",
		},
		{
			name:   "dot_dot_url",
			raw:    mutate(t, func(m map[string]any) { m["url"] = "https://acearchive.lgbt/artifacts/.." }),
			wantID: "a1b2",
		},
		{
			name:   "relative_url",
			raw:    mutate(t, func(m map[string]any) { m["url"] = "orlando" }),
			wantID: "a1b2",
		},
		{
			name: "file_missing_hash",
			raw: mutate(t, func(m map[string]any) {
				delete(m["files"].([]any)[0].(map[string]any), "hash")
			}),
			wantID: "a1b2",
		},
		{
			name: "unsupported_algorithm",
			raw: mutate(t, func(m map[string]any) {
				m["files"].([]any)[0].(map[string]any)["hash_algorithm"] = "md5"
			}),
			wantID: "a1b2",
		},
		{
			name: "hash_not_hex",
			raw: mutate(t, func(m map[string]any) {
				m["files"].([]any)[0].(map[string]any)["hash"] = "zz-top"
			}),
			wantID: "a1b2",
		},
		{
			name:   "empty_id",
			raw:    mutate(t, func(m map[string]any) { m["id"] = "" }),
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantID, verr.ID)
		})
	}
}

func TestMetadata(t *testing.T) {
	rec, err := Decode(json.RawMessage(validRecord))
	require.NoError(t, err)

	b, err := json.Marshal(rec.Metadata())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.NotContains(t, got, "url_aliases")
	assert.NotContains(t, got, "extra_field")
	assert.Contains(t, got, "description")
	assert.Nil(t, got["description"])
	assert.Equal(t, []any{}, got["identities"])

	file := got["files"].([]any)[0].(map[string]any)
	assert.NotContains(t, file, "SanitizedName")
	assert.Contains(t, file, "lang")
}

func TestMetadata_NilSlices(t *testing.T) {
	md := ArtifactRecord{ID: "x", URL: "https://a/b"}.Metadata()
	assert.NotNil(t, md.Files)
	assert.NotNil(t, md.Links)
	assert.NotNil(t, md.People)
	assert.NotNil(t, md.Decades)
}

func TestDirName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://acearchive.lgbt/artifacts/orlando", want: "orlando"},
		{url: "https://acearchive.lgbt/artifacts/orlando/", want: "orlando"},
		{url: "https://acearchive.lgbt/artifacts/orlando?x=1", want: "orlando"},
		{url: "https://acearchive.lgbt", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ArtifactRecord{URL: tt.url}.DirName())
		})
	}
}

func TestValidDirName(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "a/b", "a\\b"} {
		assert.False(t, ValidDirName(bad), bad)
	}
	assert.True(t, ValidDirName("orlando"))
	assert.True(t, ValidDirName("..hidden"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "scan.pdf", want: "scan.pdf"},
		{name: "slashes", input: "a/b\\c.txt", want: "abc.txt"},
		{name: "reserved_chars", input: `what?<is>"this"*|:`, want: "whatisthis"},
		{name: "control_chars", input: "bad\x00\x1fname", want: "badname"},
		{name: "trailing_dots", input: "name. . ", want: "name"},
		{name: "dot_dot", input: "..", want: "_"},
		{name: "empty", input: "", want: "_"},
		{name: "device_name", input: "con.txt", want: "con.txt_"},
		{name: "unicode", input: "café ☕.md", want: "café ☕.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Long(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("é", 200))
	assert.LessOrEqual(t, len(got), MaxFilenameBytes)
	assert.Equal(t, strings.Repeat("é", 127), got)
}
