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
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/walteh/keeper/pkg/operation"
)

// 📈 Tracker counts finished artifacts and reports progress through the
// logger. It implements operation.Observer.
type Tracker struct {
	logger    *zerolog.Logger
	formatter ArtifactFormatter
	out       io.Writer
	verbose   bool

	mu        sync.Mutex
	total     int
	processed int
	failed    int
}

var _ operation.Observer = (*Tracker)(nil)

// 🏭 New creates a Tracker. Artifact lines go to out when it is non-nil;
// unchanged artifacts are only listed when verbose is set.
func New(ctx context.Context, out io.Writer, verbose bool) *Tracker {
	return &Tracker{
		logger:    zerolog.Ctx(ctx),
		formatter: NewDefaultArtifactFormatter(),
		out:       out,
		verbose:   verbose,
	}
}

// OnTotal starts a new count.
func (t *Tracker) OnTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.processed = 0
	t.failed = 0
	t.logger.Info().Int("total", total).Msg(t.formatter.FormatProgress(0, total))
}

// OnArtifactDone records one finished artifact.
func (t *Tracker) OnArtifactDone(report operation.ArtifactReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++
	if report.Err != nil {
		t.failed++
	}

	ev := t.logger.Debug()
	if report.Err != nil {
		ev = t.logger.Warn().Err(report.Err)
	}
	ev.Str("artifact", report.ID).Msg(t.formatter.FormatArtifact(report))

	if t.out != nil && (t.verbose || report.Err != nil || report.Updated || report.FilesFailed > 0) {
		_, _ = io.WriteString(t.out, FormatArtifactLine(report)+"\n")
	}

	if t.processed == t.total || t.processed%progressEvery(t.total) == 0 {
		t.logger.Info().
			Int("processed", t.processed).
			Int("total", t.total).
			Msg(t.formatter.FormatProgress(t.processed, t.total))
	}
}

// Progress returns how many artifacts finished, out of how many, and how
// many of those failed.
func (t *Tracker) Progress() (processed, total, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed, t.total, t.failed
}

// progressEvery logs roughly every ten percent.
func progressEvery(total int) int {
	if total < 10 {
		return 1
	}
	return total / 10
}
