// Package framesync bridges a synchronous frame submission with the
// interrupt that acknowledges it.
//
//	t := s.Arm(comp, src)          // reset + enable, under the irq lock
//	out := s.Wait(ctx, t, policy)  // block, then disable src and clear waiting
//
// After every Wait the performance hook runs, so the clock subsystem can step
// down while no pipeline is blocked mid-frame. The hook never runs from
// interrupt context.
package framesync

import (
	"context"
	"sync/atomic"
	"time"

	"mdp-go/drivers/mdp4"
	"mdp-go/services/overlay/internal/completion"
	"mdp-go/services/overlay/internal/irq"
)

// Kind selects how Wait blocks.
type Kind uint8

const (
	// Bounded gives up after Policy.Bound and carries on.
	Bounded Kind = iota
	// Cancellable blocks until signalled or until ctx ends.
	Cancellable
)

type Policy struct {
	Kind  Kind
	Bound time.Duration
}

// Outcome of one wait.
type Outcome uint8

const (
	Signalled Outcome = iota
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Signalled:
		return "signalled"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Ticket is one armed cycle. Release is idempotent.
type Ticket struct {
	comp     *completion.Completion
	src      mdp4.Intr
	done     <-chan struct{}
	released atomic.Bool
}

// Done is closed when the armed cycle is signalled.
func (t *Ticket) Done() <-chan struct{} { return t.done }

type Coordinator struct {
	irq  *irq.Mediator
	perf func()

	signalled uint32
	timeouts  uint32
	cancelled uint32
}

// New returns a Coordinator. perf may be nil.
func New(m *irq.Mediator, perf func()) *Coordinator {
	return &Coordinator{irq: m, perf: perf}
}

// Arm resets comp, marks it waiting, clears a stale pending src and enables
// src, in one critical section shared with the interrupt handler.
func (s *Coordinator) Arm(comp *completion.Completion, src mdp4.Intr) *Ticket {
	t := &Ticket{comp: comp, src: src}
	s.irq.Arm(src, func() {
		t.done = comp.Reset()
		comp.SetWaiting(true)
	})
	return t
}

// Release disables the ticket's source and clears the waiting flag without
// blocking. Releasing twice is a no-op.
func (s *Coordinator) Release(t *Ticket) {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	s.irq.Disable(t.src)
	t.comp.SetWaiting(false)
}

// Wait blocks according to p, releases t and runs the performance hook.
func (s *Coordinator) Wait(ctx context.Context, t *Ticket, p Policy) Outcome {
	var out Outcome
	switch p.Kind {
	case Bounded:
		if completion.WaitTimeout(t.done, p.Bound) {
			out = Signalled
		} else {
			out = TimedOut
		}
	default:
		if completion.Wait(ctx, t.done) == nil {
			out = Signalled
		} else {
			out = Cancelled
		}
	}
	s.Release(t)
	switch out {
	case Signalled:
		atomic.AddUint32(&s.signalled, 1)
	case TimedOut:
		atomic.AddUint32(&s.timeouts, 1)
	case Cancelled:
		atomic.AddUint32(&s.cancelled, 1)
	}
	if s.perf != nil {
		s.perf()
	}
	return out
}

// Stats reports wait outcome counts.
type Stats struct {
	Signalled uint32
	TimedOut  uint32
	Cancelled uint32
}

func (s *Coordinator) Stats() Stats {
	return Stats{
		Signalled: atomic.LoadUint32(&s.signalled),
		TimedOut:  atomic.LoadUint32(&s.timeouts),
		Cancelled: atomic.LoadUint32(&s.cancelled),
	}
}
