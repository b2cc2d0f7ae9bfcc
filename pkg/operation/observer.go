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

package operation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// 👀 Observer receives progress while artifacts sync. Calls come from a
// single goroutine, in order, and may be dropped if the observer falls
// behind. Nothing an Observer does can slow down or fail a run.
type Observer interface {
	OnTotal(total int)
	OnArtifactDone(report ArtifactReport)
}

// ArtifactReport describes one finished artifact.
type ArtifactReport struct {
	ID           string
	DirName      string
	FilesFetched int
	FilesFailed  int
	Relocated    bool
	Updated      bool
	Err          error
}

const observerBuffer = 1024

// observerDrainTimeout bounds how long a finished run waits for queued events.
var observerDrainTimeout = 2 * time.Second

// dispatcher decouples the observer from the workers with a buffered
// channel. Sends never block: a full buffer drops the event.
type dispatcher struct {
	observer Observer
	events   chan func(Observer)
	done     chan struct{}
	dropped  atomic.Int64
	logger   *zerolog.Logger
}

func newDispatcher(ctx context.Context, o Observer) *dispatcher {
	d := &dispatcher{
		observer: o,
		done:     make(chan struct{}),
		logger:   zerolog.Ctx(ctx),
	}
	if o == nil {
		close(d.done)
		return d
	}
	d.events = make(chan func(Observer), observerBuffer)
	go d.loop()
	return d
}

func (d *dispatcher) OnTotal(total int) {
	d.send(func(o Observer) { o.OnTotal(total) })
}

func (d *dispatcher) OnArtifactDone(report ArtifactReport) {
	d.send(func(o Observer) { o.OnArtifactDone(report) })
}

func (d *dispatcher) send(ev func(Observer)) {
	if d.observer == nil {
		return
	}
	select {
	case d.events <- ev:
	default:
		d.dropped.Add(1)
	}
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for ev := range d.events {
		d.deliver(ev)
	}
}

func (d *dispatcher) deliver(ev func(Observer)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn().Interface("panic", r).Msg("progress observer panicked")
		}
	}()
	ev(d.observer)
}

// Close stops accepting events and waits, up to observerDrainTimeout, for
// the queued ones to be delivered. It must be called once, after the last send.
func (d *dispatcher) Close() {
	if d.observer == nil {
		return
	}
	close(d.events)

	select {
	case <-d.done:
	case <-time.After(observerDrainTimeout):
		d.logger.Debug().Msg("progress observer still busy, not waiting for it")
	}

	if n := d.dropped.Load(); n > 0 {
		d.logger.Debug().Int64("dropped", n).Msg("progress events dropped")
	}
}
