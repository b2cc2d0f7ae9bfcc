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

package commands

import (
	"context"
	"io"
	"sync"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"github.com/walteh/keeper/pkg/operation"
	"github.com/walteh/keeper/pkg/status"
)

// progressObserver drives a terminal progress bar and forwards every event
// to a status.Tracker.
type progressObserver struct {
	ctx     context.Context
	tracker *status.Tracker
	out     io.Writer
	showBar bool

	mu  sync.Mutex
	bar *pterm.ProgressbarPrinter
}

var _ operation.Observer = (*progressObserver)(nil)

func newProgressObserver(ctx context.Context, tracker *status.Tracker, out io.Writer, showBar bool) *progressObserver {
	return &progressObserver{ctx: ctx, tracker: tracker, out: out, showBar: showBar}
}

func (p *progressObserver) OnTotal(total int) {
	p.tracker.OnTotal(total)
	if !p.showBar || total == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Backing up artifacts").
		WithWriter(p.out).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		zerolog.Ctx(p.ctx).Debug().Err(err).Msg("progress bar unavailable")
		return
	}
	p.bar = bar
}

func (p *progressObserver) OnArtifactDone(report operation.ArtifactReport) {
	p.tracker.OnArtifactDone(report)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.UpdateTitle(report.DirName)
		p.bar.Increment()
	}
}

// stop removes the bar. It is safe to call when no bar was started.
func (p *progressObserver) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	if _, err := p.bar.Stop(); err != nil {
		zerolog.Ctx(p.ctx).Debug().Err(err).Msg("stopping progress bar")
	}
	p.bar = nil
}
