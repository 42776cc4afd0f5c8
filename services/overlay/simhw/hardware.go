// Package simhw is a host-side stand-in for the MDP4 core and the devices
// around it: a register space with write-1-to-clear interrupt status, a vsync
// generator that asserts the interrupt line, and fake compositor, platform,
// bus and panel-side buses. The bench harness and end-to-end tests run the
// real controllers against it.
package simhw

import (
	"context"
	"sync/atomic"
	"time"

	"mdp-go/drivers/mdp4"
	"mdp-go/x/timex"
)

// Hardware is the simulated MDP register space and interrupt line.
type Hardware struct {
	*mdp4.RegFile
	line    chan struct{}
	ticks   atomic.Uint32
	dropped atomic.Uint32
}

func New() *Hardware {
	return &Hardware{RegFile: mdp4.NewRegFile(), line: make(chan struct{}, 1)}
}

// Write32 records the write; writes to the clear register drop status bits.
func (h *Hardware) Write32(off, v uint32) {
	h.RegFile.Write32(off, v)
	if off == mdp4.RegIntrClear {
		h.Update(mdp4.RegIntrStatus, func(s uint32) uint32 { return s &^ v })
	}
}

// Line delivers one receive per interrupt assertion.
func (h *Hardware) Line() <-chan struct{} { return h.line }

// Raise latches src in the status register and asserts the line. The line
// is level-like: assertions while one is pending coalesce.
func (h *Hardware) Raise(src mdp4.Intr) {
	h.Update(mdp4.RegIntrStatus, func(s uint32) uint32 { return s | uint32(src) })
	select {
	case h.line <- struct{}{}:
	default:
		h.dropped.Add(1)
	}
}

// Run is the vsync generator. Every refresh period it raises whichever
// interrupt sources are enabled: vsyncs fire, and overlay and DMA jobs
// armed during the frame complete. It returns when ctx ends.
func (h *Hardware) Run(ctx context.Context, refreshHz uint32) error {
	t := time.NewTicker(timex.PeriodFromHz(refreshHz))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			h.ticks.Add(1)
			if en := mdp4.Intr(h.Read32(mdp4.RegIntrEnable)); en != 0 {
				h.Raise(en)
			}
		}
	}
}

// Ticks is the number of simulated refreshes.
func (h *Hardware) Ticks() uint32 { return h.ticks.Load() }

// Coalesced counts assertions merged into a pending one.
func (h *Hardware) Coalesced() uint32 { return h.dropped.Load() }
