package pipeline

// gate.go serializes runs over the table files.
//
// Extract, validate and publish all read or rewrite whole table files, so at
// most one run holds the gate. A caller that cannot get in within maxWait
// fails with core.ErrRunInProgress. Shutdown waits on waitForDrain.

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// DefaultRunWait is how long a run waits for the gate before giving up.
const DefaultRunWait = 30 * time.Second

type runGate struct {
	slot    chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

func newRunGate(maxWait time.Duration) *runGate {
	if maxWait <= 0 {
		maxWait = DefaultRunWait
	}
	return &runGate{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// acquire waits for the gate. The caller must release on success.
func (g *runGate) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()

	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.active++
		g.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return core.ErrRunInProgress
	}
}

func (g *runGate) release() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
	<-g.slot
}

func (g *runGate) activeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// waitForDrain blocks until no run holds the gate or ctx is done.
func (g *runGate) waitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if g.activeCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
