// services/overlay/internal/completion/completion.go

// Package completion is a resettable one-shot signal. Interrupt handlers call
// Complete; at most one caller waits per armed cycle.
//
// Ordering: Reset must happen before the interrupt source is enabled. A
// Complete that lands before Reset belongs to the previous cycle and is
// dropped, because Reset installs a fresh channel.
package completion

import (
	"context"
	"sync"
	"time"
)

type Completion struct {
	mu      sync.Mutex
	ch      chan struct{}
	done    bool
	waiting bool
}

// New returns an unsignalled completion.
func New() *Completion {
	return &Completion{ch: make(chan struct{})}
}

// Reset starts a new cycle and returns its channel. The channel is closed by
// the first Complete of this cycle.
func (c *Completion) Reset() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = make(chan struct{})
	c.done = false
	return c.ch
}

// Complete signals the current cycle. Safe from interrupt context, safe with
// no waiter, and a no-op if the cycle is already signalled.
func (c *Completion) Complete() {
	c.mu.Lock()
	if !c.done {
		c.done = true
		close(c.ch)
	}
	c.mu.Unlock()
}

// Done returns the current cycle's channel.
func (c *Completion) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch
}

// Signalled reports whether the current cycle has completed.
func (c *Completion) Signalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// SetWaiting records whether a caller is parked on this completion.
func (c *Completion) SetWaiting(w bool) {
	c.mu.Lock()
	c.waiting = w
	c.mu.Unlock()
}

// Waiting reports the flag set by SetWaiting.
func (c *Completion) Waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

// WaitTimeout blocks on ch for at most d. It reports whether ch closed.
func WaitTimeout(ch <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// Wait blocks on ch until it closes or ctx ends.
func Wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
