package overlay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mdp-go/drivers/mdp4"
	"mdp-go/errcode"
	"mdp-go/services/overlay/internal/completion"
	"mdp-go/services/overlay/internal/framesync"
)

// Controller runs one output path. All public methods except WaitVsync,
// WaitDMAIdle and the accessors hold the submission lock for their whole
// duration, waits included.
type Controller struct {
	d     *Display
	prof  profile
	cfg   Config
	hooks Hooks
	regs  mdp4.Block // timing block
	sync  *framesync.Coordinator
	log   *zerolog.Logger
	sleep func(time.Duration)

	mu      sync.Mutex
	state   atomic.Uint32
	pipe    atomic.Pointer[Pipe]
	enabled bool // start latch
	mode    Mode
	hasMode bool
	pending *framesync.Ticket // armed by a NoWait push, not yet waited

	vmu   sync.Mutex
	vsync *completion.Completion

	dmaBusy bool // guarded by the irq mediator lock
	dmaComp *completion.Completion

	kickoffs atomic.Uint32
}

func newController(d *Display, pr profile, cfg Config, hooks Hooks) *Controller {
	l := d.log.With().Str("component", pr.name).Stringer("path", pr.path).Logger()
	var regs mdp4.Block = mdp4.Window{B: d.regs, Base: pr.base}
	if cfg.TraceRegisters {
		regs = mdp4.Traced(regs, &l, pr.tag)
	}
	return &Controller{
		d:       d,
		prof:    pr,
		cfg:     cfg,
		hooks:   hooks,
		regs:    regs,
		sync:    framesync.New(d.irq, hooks.Platform.SetPerfLevel),
		log:     &l,
		sleep:   time.Sleep,
		vsync:   completion.New(),
		dmaComp: completion.New(),
	}
}

func noDevice(op string) error {
	return errcode.New(errcode.NoDevice, op, "no controller")
}

func (c *Controller) Path() Path { return c.prof.path }

func (c *Controller) State() State { return State(c.state.Load()) }

// Pipe returns the held base pipe, or nil.
func (c *Controller) Pipe() *Pipe { return c.pipe.Load() }

// On brings the output up in mode m. Calling On on an enabled output with the
// same mode does nothing; with a different mode it reprograms the pipe and
// timing without touching the panel or the master enable.
func (c *Controller) On(ctx context.Context, m Mode) error {
	if c == nil {
		return noDevice("on")
	}
	if err := m.Timing.Validate(); err != nil {
		return errcode.Wrap(errcode.InvalidParams, "on", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != StateOff {
		if c.hasMode && c.mode == m {
			return nil
		}
		p := c.pipe.Load()
		if p == nil {
			return errcode.New(errcode.InvalidState, "on", "enabled without a pipe")
		}
		c.applyMode(p, m)
		c.log.Info().Str("mode", m.String()).Msg("mode change")
		return nil
	}

	plat := c.hooks.Platform
	plat.BlockPower(CmdBlock, true)
	defer plat.BlockPower(CmdBlock, false)

	if c.prof.resetRecovery && plat.HWResetDetected() {
		plat.HWInit()
		c.d.regs.Write32(mdp4.RegDisplayIntf, c.cfg.DisplayIntf)
		c.log.Warn().Msg("display core was reset, reinitialised")
	}

	p, fresh, err := c.d.pipes.Acquire(c.prof.path, m.FB.format())
	if err != nil {
		c.log.Error().Err(err).Msg("pipe_alloc failed")
		return err
	}
	if fresh {
		c.log.Debug().Int("pipe", p.ID).Uint8("mixer", uint8(p.Mixer)).Msg("pipe allocated")
	}
	c.pipe.Store(p)
	c.applyMode(p, m)
	if c.prof.busScale && c.hooks.Bus != nil {
		c.hooks.Bus.Request(2)
	}

	if !c.prof.panelGatesPower {
		plat.BlockPower(c.prof.overlayBlock, true)
	}
	if err := c.hooks.Panel.PowerOn(ctx); err != nil {
		c.log.Error().Err(err).Msg("panel on failed")
		c.unwindOn(p)
		return err
	}
	if c.prof.panelGatesPower {
		plat.BlockPower(c.prof.overlayBlock, true)
	}
	c.startLocked()
	c.state.Store(uint32(StateEnabled))
	c.log.Info().Str("mode", m.String()).Msg("on")
	return nil
}

// unwindOn undoes what On did before the panel refused to power up. The
// output stays off and keeps its pipe.
func (c *Controller) unwindOn(p *Pipe) {
	if !c.prof.panelGatesPower {
		c.hooks.Platform.BlockPower(c.prof.overlayBlock, false)
	}
	if c.prof.releaseOnOff {
		c.d.pipes.StageDown(p)
	}
	if c.prof.busScale && c.hooks.Bus != nil {
		c.hooks.Bus.Request(0)
	}
}

// applyMode configures p for m and writes the timing block.
func (c *Controller) applyMode(p *Pipe, m Mode) {
	t := m.Timing
	w, h := t.ActiveWidth(), t.ActiveHeight()
	c.d.pipes.Configure(p, Geometry{Width: w, Height: h, Src: Rect{W: w, H: h}}, m.FB.Addr(), m.FB.Stride)
	p.updateBltSize(c.cfg.BltFormat)
	c.prof.regMap.Program(c.regs, mdp4.Compute(t, c.prof.timing))
	c.d.comp.Flush(p, true)
	c.mode, c.hasMode = m, true
}

// Start sets the master enable once per start-latch cycle.
func (c *Controller) Start() error {
	if c == nil {
		return noDevice("start")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
	return nil
}

func (c *Controller) startLocked() {
	if c.enabled {
		return
	}
	plat := c.hooks.Platform
	plat.IOMMUAttach()
	plat.BlockPower(CmdBlock, true)
	c.regs.Write32(c.prof.regMap.Enable, 1)
	plat.BlockPower(CmdBlock, false)
	c.enabled = true
}

func (c *Controller) stopLocked() {
	plat := c.hooks.Platform
	plat.BlockPower(CmdBlock, true)
	c.regs.Write32(c.prof.regMap.Enable, 0)
	plat.BlockPower(CmdBlock, false)
	c.enabled = false
}

// Off stops the output. It returns the panel hook's error, if any; the output
// is off either way.
func (c *Controller) Off(ctx context.Context) error {
	if c == nil {
		return noDevice("off")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offLocked(ctx)
}

func (c *Controller) offLocked(ctx context.Context) error {
	if c.State() == StateOff && !c.enabled {
		return nil
	}
	c.releasePending()
	c.cancelDMA()
	c.stopLocked()
	c.hooks.Platform.BlockPower(c.prof.overlayBlock, false)

	// Conservative drain: the last frame finishes within the settle delay.
	c.sleep(c.prof.settle)

	err := c.hooks.Panel.PowerOff(ctx)
	if p := c.pipe.Load(); p != nil && c.prof.releaseOnOff {
		c.d.pipes.StageDown(p)
	}
	if c.prof.busScale && c.hooks.Bus != nil {
		c.hooks.Bus.Request(0)
	}
	c.state.Store(uint32(StateOff))
	if err != nil {
		c.log.Warn().Err(err).Msg("panel off failed")
		return err
	}
	c.log.Info().Msg("off")
	return nil
}

// Teardown turns the output off, drops the pipe and clears the start latch.
func (c *Controller) Teardown(ctx context.Context) error {
	if c == nil {
		return noDevice("teardown")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.offLocked(ctx)
	if p := c.pipe.Load(); p != nil {
		c.d.pipes.Drop(p)
		c.pipe.Store(nil)
	}
	c.enabled = false
	c.hasMode = false
	return err
}

// Submit scans out the buffer at f.Addr and, unless f.NoWait, waits for the
// hardware to acknowledge the frame. A bounded wait that expires is not an
// error. A cancelled wait returns a Cancelled error wrapping ctx.Err().
func (c *Controller) Submit(ctx context.Context, f Frame) error {
	if c == nil {
		return noDevice("submit")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pipe.Load()
	if c.State() == StateOff || p == nil {
		return errcode.New(errcode.InvalidState, "submit", "output is off")
	}
	c.releasePending()

	p.Addr = f.Addr
	p.NoWait = f.NoWait
	c.d.comp.SetupRGB(p)
	c.d.comp.Flush(p, true)
	t := c.kick(p)
	c.state.Store(uint32(StateStreaming))

	var err error
	if f.NoWait {
		c.pending = t
	} else {
		err = c.await(ctx, t, "submit")
		c.state.CompareAndSwap(uint32(StateStreaming), uint32(StateEnabled))
	}
	c.kickoffs.Add(1)
	c.hooks.Platform.ReleaseResources()
	return err
}

// kick arms the frame-done completion and, in bypass mode, points the
// overlay output at the next half of the bypass buffer.
func (c *Controller) kick(p *Pipe) *framesync.Ticket {
	t := c.sync.Arm(p.comp, c.prof.doneIntr)
	if addr, ok := p.bltTarget(p.ovCount.Load()); ok {
		c.d.regs.Write32(c.prof.bltReg0, addr)
		c.d.regs.Write32(c.prof.bltReg1, addr)
		p.ovCount.Add(1)
		c.armDMA()
		if c.prof.kickOverlay {
			c.d.regs.Write32(mdp4.RegOverlay1Kick, 0)
		}
	}
	return t
}

func (c *Controller) await(ctx context.Context, t *framesync.Ticket, op string) error {
	switch c.sync.Wait(ctx, t, c.prof.wait) {
	case framesync.TimedOut:
		ev := c.log.Warn().Str("op", op).Dur("bound", c.prof.wait.Bound)
		if p := c.pipe.Load(); p != nil {
			ev = ev.Uint32("ov_cnt", p.OvCount()).Uint32("dmae_cnt", p.DMACount())
		}
		ev.Msg("frame done timeout")
	case framesync.Cancelled:
		return errcode.Wrap(errcode.Cancelled, op, ctx.Err())
	}
	return nil
}

func (c *Controller) releasePending() {
	if c.pending != nil {
		c.sync.Release(c.pending)
		c.pending = nil
	}
}

// WaitForOverlay waits for the frame armed by the last NoWait submission. It
// returns at once if there is none or the output is not enabled in hardware.
func (c *Controller) WaitForOverlay(ctx context.Context) error {
	if c == nil {
		return noDevice("wait_for_ov")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitPendingLocked(ctx, "wait_for_ov")
}

func (c *Controller) waitPendingLocked(ctx context.Context, op string) error {
	t := c.pending
	if t == nil {
		return nil
	}
	c.pending = nil
	if c.regs.Read32(c.prof.regMap.Enable)&1 == 0 {
		c.sync.Release(t)
		return nil
	}
	err := c.await(ctx, t, op)
	c.state.CompareAndSwap(uint32(StateStreaming), uint32(StateEnabled))
	return err
}

// WaitVsync blocks until the next vsync of this path or until ctx ends.
func (c *Controller) WaitVsync(ctx context.Context) error {
	if c == nil {
		return noDevice("wait_vsync")
	}
	c.vmu.Lock()
	defer c.vmu.Unlock()
	t := c.sync.Arm(c.vsync, c.prof.vsyncIntr)
	if c.sync.Wait(ctx, t, framesync.Policy{Kind: framesync.Cancellable}) == framesync.Cancelled {
		return errcode.Wrap(errcode.Cancelled, "wait_vsync", ctx.Err())
	}
	return nil
}

// armDMA marks the bypass DMA busy and enables its done interrupt, unless a
// transfer is already outstanding.
func (c *Controller) armDMA() {
	busy := false
	c.d.irq.Locked(func() { busy = c.dmaBusy })
	if busy {
		return
	}
	c.d.irq.Arm(c.prof.dmaIntr, func() {
		c.dmaBusy = true
		c.dmaComp.Reset()
	})
}

func (c *Controller) cancelDMA() {
	busy := false
	c.d.irq.Locked(func() {
		busy = c.dmaBusy
		c.dmaBusy = false
	})
	if busy {
		c.d.irq.Disable(c.prof.dmaIntr)
		c.dmaComp.Complete()
	}
}

// WaitDMAIdle blocks while a bypass DMA transfer is outstanding.
func (c *Controller) WaitDMAIdle(ctx context.Context) error {
	if c == nil {
		return noDevice("dma_busy_wait")
	}
	var ch <-chan struct{}
	c.d.irq.Locked(func() {
		if c.dmaBusy {
			ch = c.dmaComp.Done()
		}
	})
	if ch == nil {
		return nil
	}
	if err := completion.Wait(ctx, ch); err != nil {
		return errcode.Wrap(errcode.Cancelled, "dma_busy_wait", err)
	}
	return nil
}

// Interrupt-context handlers. None of them block or take c.mu.

func (c *Controller) onDone() {
	if p := c.pipe.Load(); p != nil {
		p.comp.Complete()
	}
	c.state.CompareAndSwap(uint32(StateStreaming), uint32(StateEnabled))
}

func (c *Controller) onVsync() { c.vsync.Complete() }

func (c *Controller) onDMADone() {
	p := c.pipe.Load()
	if p != nil {
		if addr, ok := p.bltTarget(p.dmaCount.Load()); ok {
			c.d.regs.Write32(c.prof.dmaAddrReg, addr)
			p.dmaCount.Add(1)
		}
	}
	c.cancelDMA()
	if c.prof.dmaCompletesDone && p != nil {
		p.comp.Complete()
	}
}
