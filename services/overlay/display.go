package overlay

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"mdp-go/drivers/mdp4"
	"mdp-go/errcode"
	"mdp-go/services/overlay/internal/irq"
	"mdp-go/x/logx"
)

// Display is the shared MDP core: the register space, the interrupt mediator
// and the per-path pipe set. Controllers are created from it.
type Display struct {
	regs  mdp4.Block
	irq   *irq.Mediator
	pipes *PipeSet
	comp  Compositor
	log   *zerolog.Logger

	mu    sync.Mutex
	ctrls map[Path]*Controller
}

// NewDisplay binds the core to regs. log may be nil.
func NewDisplay(regs mdp4.Block, comp Compositor, log *zerolog.Logger) *Display {
	if log == nil {
		log = logx.Get()
	}
	return &Display{
		regs:  regs,
		irq:   irq.New(regs),
		pipes: NewPipeSet(comp, log),
		comp:  comp,
		log:   log,
		ctrls: map[Path]*Controller{},
	}
}

func (d *Display) Pipes() *PipeSet { return d.pipes }

// HandleIRQ is the MDP interrupt entry point.
func (d *Display) HandleIRQ() { d.irq.Handle() }

// Serve runs the interrupt path until ctx ends; each receive on line is one
// assertion of the MDP interrupt.
func (d *Display) Serve(ctx context.Context, line <-chan struct{}) {
	d.irq.Start(ctx, line)
}

// Stopped is closed when Serve's loop exits.
func (d *Display) Stopped() <-chan struct{} { return d.irq.Stopped() }

// IRQMask returns the interrupt sources currently enabled.
func (d *Display) IRQMask() mdp4.Intr { return d.irq.Mask() }

// IRQStats reports handled and spurious interrupt counts.
func (d *Display) IRQStats() (handled, spurious uint32) { return d.irq.Stats() }

// Controller returns the controller created for path, or nil.
func (d *Display) Controller(path Path) *Controller {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrls[path]
}

func (d *Display) NewDTV(cfg Config, hooks Hooks) (*Controller, error) {
	return d.newController(PathDTV, cfg, hooks)
}

func (d *Display) NewLCDC(cfg Config, hooks Hooks) (*Controller, error) {
	return d.newController(PathLCDC, cfg, hooks)
}

func (d *Display) newController(path Path, cfg Config, hooks Hooks) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctrls[path] != nil {
		return nil, errcode.New(errcode.InvalidState, "new_controller", path.String()+" already exists")
	}
	c := newController(d, newProfile(path, cfg), cfg, hooks.withDefaults())
	d.register(c)
	d.ctrls[path] = c
	return c, nil
}

// register wires the controller's interrupt sources. When the frame-done and
// vsync sources coincide one handler serves both.
func (d *Display) register(c *Controller) {
	pr := c.prof
	if pr.doneIntr == pr.vsyncIntr {
		d.irq.SetHandler(pr.doneIntr, func() {
			c.onDone()
			c.onVsync()
		})
	} else {
		d.irq.SetHandler(pr.doneIntr, c.onDone)
		d.irq.SetHandler(pr.vsyncIntr, c.onVsync)
	}
	if pr.extraDone != 0 {
		d.irq.SetHandler(pr.extraDone, c.onDone)
	}
	d.irq.SetHandler(pr.dmaIntr, c.onDMADone)
}
