// services/overlay/internal/irq/mediator.go

// Package irq owns the shared interrupt enable/status/clear registers. Callers
// never touch the mask register directly: every read-modify-write goes through
// the Mediator under its lock, which the interrupt path also takes.
package irq

import (
	"context"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"mdp-go/drivers/mdp4"
)

// Handler runs in interrupt context: it MUST NOT block and MUST NOT call
// back into the controller's submission path.
type Handler func()

type Mediator struct {
	// Guards mask, refs and the enable/clear register writes. Critical
	// sections are a handful of register accesses; nothing blocks under it.
	mu   sync.Mutex
	regs mdp4.Block
	mask mdp4.Intr
	refs map[mdp4.Intr]int
	gen  [32]uint32 // per bit, bumped by Arm

	// Held by Arm and around each dispatch, so a handler never runs
	// against a cycle armed after its status was latched. Order: dmu, mu.
	dmu sync.Mutex

	hmu      sync.RWMutex
	handlers map[mdp4.Intr]Handler

	handled  uint32
	spurious uint32
	stopped  chan struct{}
}

// New binds a Mediator to the MDP register space and masks everything.
func New(regs mdp4.Block) *Mediator {
	m := &Mediator{
		regs:     regs,
		refs:     map[mdp4.Intr]int{},
		handlers: map[mdp4.Intr]Handler{},
		stopped:  make(chan struct{}),
	}
	regs.Write32(mdp4.RegIntrEnable, 0)
	return m
}

// SetHandler installs the handler for one interrupt bit. Registering a bit
// twice is a wiring error and panics.
func (m *Mediator) SetHandler(src mdp4.Intr, h Handler) {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	if _, dup := m.handlers[src]; dup {
		panic(fmt.Sprintf("irq: duplicate handler for %#x", uint32(src)))
	}
	m.handlers[src] = h
}

// Locked runs fn inside the interrupt-path critical section.
func (m *Mediator) Locked(fn func()) {
	m.mu.Lock()
	fn()
	m.mu.Unlock()
}

// Arm runs prepare, clears any stale pending src and enables src, all in one
// critical section. prepare is where callers reset their completion object.
// A src status already latched by Handle but not yet dispatched is dropped.
func (m *Mediator) Arm(src mdp4.Intr, prepare func()) {
	m.dmu.Lock()
	defer m.dmu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	for b := uint32(src); b != 0; b &= b - 1 {
		m.gen[bits.TrailingZeros32(b)]++
	}
	if prepare != nil {
		prepare()
	}
	m.regs.Write32(mdp4.RegIntrClear, uint32(src))
	m.enableLocked(src)
}

// Enable takes one reference on src and unmasks it.
func (m *Mediator) Enable(src mdp4.Intr) {
	m.mu.Lock()
	m.enableLocked(src)
	m.mu.Unlock()
}

// Disable drops one reference on src; the bit is masked when none remain.
// Dropping a reference that was never taken is a no-op.
func (m *Mediator) Disable(src mdp4.Intr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs[src] == 0 {
		return
	}
	m.refs[src]--
	if m.refs[src] == 0 {
		delete(m.refs, src)
		m.mask &^= src
		m.regs.Write32(mdp4.RegIntrEnable, uint32(m.mask))
	}
}

func (m *Mediator) enableLocked(src mdp4.Intr) {
	m.refs[src]++
	if m.mask&src == 0 {
		m.mask |= src
		m.regs.Write32(mdp4.RegIntrEnable, uint32(m.mask))
	}
}

// Mask returns the currently enabled sources.
func (m *Mediator) Mask() mdp4.Intr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mask
}

// Handle is the interrupt entry point: it latches and clears the enabled
// status bits, then runs their handlers outside the register lock so a
// handler may itself call Enable/Disable. A bit re-armed between the latch
// and its dispatch belongs to the new cycle and is not dispatched.
func (m *Mediator) Handle() {
	m.mu.Lock()
	raw := mdp4.Intr(m.regs.Read32(mdp4.RegIntrStatus))
	st := raw & m.mask
	if raw != 0 {
		m.regs.Write32(mdp4.RegIntrClear, uint32(raw))
	}
	seen := m.gen
	m.mu.Unlock()

	if st == 0 {
		atomic.AddUint32(&m.spurious, 1)
		return
	}
	m.hmu.RLock()
	defer m.hmu.RUnlock()
	for b := uint32(st); b != 0; b &= b - 1 {
		i := bits.TrailingZeros32(b)
		m.dispatch(mdp4.Intr(1)<<i, seen[i])
	}
}

func (m *Mediator) dispatch(bit mdp4.Intr, gen uint32) {
	m.dmu.Lock()
	defer m.dmu.Unlock()
	m.mu.Lock()
	stale := m.gen[bits.TrailingZeros32(uint32(bit))] != gen
	m.mu.Unlock()
	h := m.handlers[bit]
	if stale || h == nil {
		atomic.AddUint32(&m.spurious, 1)
		return
	}
	h()
	atomic.AddUint32(&m.handled, 1)
}

// Start services line until ctx ends. Each receive on line is one
// assertion of the interrupt.
func (m *Mediator) Start(ctx context.Context, line <-chan struct{}) {
	go func() {
		defer close(m.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case <-line:
				m.Handle()
			}
		}
	}()
}

// Stopped is closed when the Start loop exits.
func (m *Mediator) Stopped() <-chan struct{} { return m.stopped }

// Stats reports handled and spurious interrupt counts.
func (m *Mediator) Stats() (handled, spurious uint32) {
	return atomic.LoadUint32(&m.handled), atomic.LoadUint32(&m.spurious)
}
