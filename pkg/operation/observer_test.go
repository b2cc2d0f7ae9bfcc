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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu      sync.Mutex
	total   int
	reports []ArtifactReport
}

func (r *recordingObserver) OnTotal(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingObserver) OnArtifactDone(report ArtifactReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

type panickingObserver struct{}

func (panickingObserver) OnTotal(int)                   { panic("observer bug") }
func (panickingObserver) OnArtifactDone(ArtifactReport) { panic("observer bug") }

type blockingObserver struct {
	release chan struct{}
}

func (b *blockingObserver) OnTotal(int)                   { <-b.release }
func (b *blockingObserver) OnArtifactDone(ArtifactReport) { <-b.release }

func TestSync_ObserverSeesEveryArtifact(t *testing.T) {
	h := newHarness(t)
	h.remote.add("A1", "a1", map[string]string{"f.txt": "hello"})
	h.remote.add("B2", "b2", map[string]string{"g.txt": "world"})

	obs := &recordingObserver{}
	_, err := h.engine(t, func(o *Options) { o.Observer = obs }).Sync(testCtx(t))
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 2, obs.total)
	require.Len(t, obs.reports, 2)

	ids := []string{obs.reports[0].ID, obs.reports[1].ID}
	assert.ElementsMatch(t, []string{"A1", "B2"}, ids)
	for _, r := range obs.reports {
		assert.Equal(t, 1, r.FilesFetched)
		assert.True(t, r.Updated)
		assert.NoError(t, r.Err)
	}
}

func TestSync_ObserverCannotBreakTheRun(t *testing.T) {
	t.Run("panics", func(t *testing.T) {
		h := newHarness(t)
		h.remote.add("A1", "a1", map[string]string{"f.txt": "hello"})

		sum, err := h.engine(t, func(o *Options) { o.Observer = panickingObserver{} }).Sync(testCtx(t))
		require.NoError(t, err)
		assert.Equal(t, StateDone, sum.State)
	})

	t.Run("blocks", func(t *testing.T) {
		prev := observerDrainTimeout
		observerDrainTimeout = 20 * time.Millisecond
		t.Cleanup(func() { observerDrainTimeout = prev })

		h := newHarness(t)
		h.remote.add("A1", "a1", map[string]string{"f.txt": "hello"})

		obs := &blockingObserver{release: make(chan struct{})}
		defer close(obs.release)

		done := make(chan struct{})
		go func() {
			defer close(done)
			sum, err := h.engine(t, func(o *Options) { o.Observer = obs }).Sync(testCtx(t))
			assert.NoError(t, err)
			assert.Equal(t, StateDone, sum.State)
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("sync blocked on a stuck observer")
		}
	})
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	obs := &blockingObserver{release: make(chan struct{})}
	d := newDispatcher(testCtx(t), obs)

	for i := 0; i < observerBuffer+50; i++ {
		d.OnArtifactDone(ArtifactReport{ID: "x"})
	}
	assert.Positive(t, d.dropped.Load())

	close(obs.release)
	d.Close()
}

func TestDispatcher_NilObserver(t *testing.T) {
	d := newDispatcher(testCtx(t), nil)
	d.OnTotal(3)
	d.OnArtifactDone(ArtifactReport{})
	d.Close()
}
