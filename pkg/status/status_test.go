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
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/walteh/keeper/pkg/operation"
)

func TestTracker(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())

	tests := []struct {
		name      string
		verbose   bool
		reports   []operation.ArtifactReport
		wantLines int
		wantFail  int
	}{
		{
			name: "quiet_hides_unchanged",
			reports: []operation.ArtifactReport{
				{ID: "1", DirName: "a"},
				{ID: "2", DirName: "b", Updated: true, FilesFetched: 1},
				{ID: "3", DirName: "c", Err: errors.New("x")},
			},
			wantLines: 2,
			wantFail:  1,
		},
		{
			name:    "verbose_shows_all",
			verbose: true,
			reports: []operation.ArtifactReport{
				{ID: "1", DirName: "a"},
				{ID: "2", DirName: "b"},
			},
			wantLines: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tr := New(ctx, &buf, tt.verbose)

			tr.OnTotal(len(tt.reports))
			for _, r := range tt.reports {
				tr.OnArtifactDone(r)
			}

			processed, total, failed := tr.Progress()
			assert.Equal(t, len(tt.reports), processed)
			assert.Equal(t, len(tt.reports), total)
			assert.Equal(t, tt.wantFail, failed)
			assert.Equal(t, tt.wantLines, bytes.Count(buf.Bytes(), []byte("\n")))
		})
	}
}

func TestTrackerNilWriter(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	tr := New(ctx, nil, true)
	tr.OnTotal(1)
	tr.OnArtifactDone(operation.ArtifactReport{ID: "1", DirName: "a", Err: errors.New("x")})

	processed, _, failed := tr.Progress()
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, failed)
}

func TestProgressEvery(t *testing.T) {
	assert.Equal(t, 1, progressEvery(0))
	assert.Equal(t, 1, progressEvery(9))
	assert.Equal(t, 10, progressEvery(100))
}
