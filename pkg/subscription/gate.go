package subscription

import (
	"context"
	"sync"
)

// gate is a manual reset event. Wait returns immediately while the gate is
// set and blocks while it is reset.
type gate struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

func newGate(set bool) *gate {
	g := &gate{ch: make(chan struct{})}
	if set {
		close(g.ch)
		g.set = true
	}
	return g
}

func (g *gate) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.set {
		close(g.ch)
		g.set = true
	}
}

func (g *gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.set {
		g.ch = make(chan struct{})
		g.set = false
	}
}

func (g *gate) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set
}

func (g *gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
