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

package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "sorted_keys",
			input: map[string]any{"b": 1, "a": "x", "c": nil},
			want:  `{"a":"x","b":1,"c":null}`,
		},
		{
			name: "struct_tags",
			input: struct {
				Zed   string `json:"zed"`
				Alpha []int `json:"alpha"`
			}{Zed: "<tag>", Alpha: []int{3, 1}},
			want: `{"alpha":[3,1],"zed":"<tag>"}`,
		},
		{
			name:  "empty_list",
			input: []string{},
			want:  `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDigest(t *testing.T) {
	got, err := Digest(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(`{"a":1,"b":2}`))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestMarshal_Unencodable(t *testing.T) {
	_, err := Marshal(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")

	changed, err := WriteFile(path, map[string]string{"b": "2", "a": "1"})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2"}`, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	before := info.ModTime()

	changed, err = WriteFile(path, map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)
	assert.False(t, changed, "identical content must not be rewritten")

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())

	changed, err = WriteFile(path, map[string]string{"a": "3"})
	require.NoError(t, err)
	assert.True(t, changed)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFile_DirectoryInTheWay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := WriteFile(path, map[string]string{})
	assert.Error(t, err)
}
