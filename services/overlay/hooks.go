package overlay

import (
	"context"

	"mdp-go/drivers/mdp4"
)

// Compositor is the pipe allocator and mixer programming layer. Every method
// is called with the owning controller's submission lock held.
type Compositor interface {
	// AllocPipe reserves a free pipe of type t on mixer and returns its
	// hardware index, or an error when none is free.
	AllocPipe(t mdp4.PipeType, mixer Mixer) (int, error)
	// SetupFormat programs the source format registers of p.
	SetupFormat(p *Pipe) error
	// SetupRGB programs p's source address, stride and geometry.
	SetupRGB(p *Pipe)
	// ConfigureOutput programs the overlay processor and DMA output
	// geometry for p's mixer.
	ConfigureOutput(p *Pipe)
	StageUp(p *Pipe)
	StageDown(p *Pipe)
	// Flush commits staged pipe (and optionally mixer) registers.
	Flush(p *Pipe, mixer bool)
	BorderFillSupported() bool
}

// Panel powers the downstream display device.
type Panel interface {
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
}

// PowerBlock names an MDP clock/power domain.
type PowerBlock uint8

const (
	CmdBlock PowerBlock = iota
	Overlay0Block
	Overlay1Block
)

// Platform is the clock, power and IOMMU glue around the display core.
type Platform interface {
	BlockPower(b PowerBlock, on bool)
	IOMMUAttach()
	// SetPerfLevel lets the clock subsystem pick a new level. Never called
	// from interrupt context.
	SetPerfLevel()
	// ReleaseResources drops per-frame scratch state after a submission.
	ReleaseResources()
	// HWResetDetected reports whether the display core lost its state.
	HWResetDetected() bool
	HWInit()
}

// BusScaler votes for a memory bus bandwidth level.
type BusScaler interface {
	Request(level int)
}

// Hooks bundles a controller's external collaborators. Bus may be nil.
type Hooks struct {
	Panel    Panel
	Platform Platform
	Bus      BusScaler
}

type nopPanel struct{}

func (nopPanel) PowerOn(context.Context) error  { return nil }
func (nopPanel) PowerOff(context.Context) error { return nil }

type nopPlatform struct{}

func (nopPlatform) BlockPower(PowerBlock, bool) {}
func (nopPlatform) IOMMUAttach()                {}
func (nopPlatform) SetPerfLevel()               {}
func (nopPlatform) ReleaseResources()           {}
func (nopPlatform) HWResetDetected() bool       { return false }
func (nopPlatform) HWInit()                     {}

func (h Hooks) withDefaults() Hooks {
	if h.Panel == nil {
		h.Panel = nopPanel{}
	}
	if h.Platform == nil {
		h.Platform = nopPlatform{}
	}
	return h
}
