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

package status

import (
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/walteh/keeper/pkg/operation"
)

func TestFormatArtifactLine(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	tests := []struct {
		name     string
		report   operation.ArtifactReport
		contains []string
	}{
		{
			name:     "fetched",
			report:   operation.ArtifactReport{DirName: "orlando", FilesFetched: 2},
			contains: []string{"✓", "orlando", "fetched", "2 files"},
		},
		{
			name:     "failed",
			report:   operation.ArtifactReport{DirName: "orlando", Err: errors.New("timeout")},
			contains: []string{"✗", "failed", "timeout"},
		},
		{
			name:     "unchanged",
			report:   operation.ArtifactReport{DirName: "orlando"},
			contains: []string{"-", "unchanged"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := FormatArtifactLine(tt.report)
			assert.Regexp(t, "^    ", line)
			assert.NotRegexp(t, " $", line)
			for _, c := range tt.contains {
				assert.Contains(t, line, c)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, FormatSummary(nil))
	})

	t.Run("skipped", func(t *testing.T) {
		lines := FormatSummary(&operation.Summary{Skipped: true, Checksum: "0123456789abcdef"})
		assert.Equal(t, []string{"archive already current (checksum 0123456789ab)"}, lines)
	})

	t.Run("problems", func(t *testing.T) {
		lines := FormatSummary(&operation.Summary{
			Artifacts:           3,
			ArtifactsFailed:     1,
			ArtifactsIncomplete: 1,
			TotalSize:           2048,
			ArchiveMovedAside:   "/tmp/a.zip.1.bakup",
		})
		assert.Contains(t, lines, "problems:   1 failed, 1 incomplete")
		assert.Contains(t, lines, "size:       2.0 KiB")
		assert.Contains(t, lines, "moved aside: /tmp/a.zip.1.bakup")
	})
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0 B"},
		{in: 1023, want: "1023 B"},
		{in: 1024, want: "1.0 KiB"},
		{in: 1536, want: "1.5 KiB"},
		{in: 5 << 20, want: "5.0 MiB"},
		{in: 3 << 30, want: "3.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanBytes(tt.in))
	}
}
