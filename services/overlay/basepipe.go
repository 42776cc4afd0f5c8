package overlay

import (
	"context"

	"mdp-go/drivers/mdp4"
	"mdp-go/errcode"
)

// SetBasePipe gives the path a base layer and starts it. An offered base RGB
// pipe for this path is adopted; otherwise the controller allocates its own,
// a border-fill pipe for a secondary DTV when the compositor supports it.
// A path that already holds a pipe is left as is.
func (c *Controller) SetBasePipe(ctx context.Context, p *Pipe) error {
	if c == nil {
		return noDevice("overlay_set")
	}
	if p != nil && p.Path != c.prof.path {
		return errcode.New(errcode.InvalidHandle, "overlay_set", "pipe belongs to "+p.Path.String())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipe.Load() != nil {
		return nil
	}

	var held *Pipe
	if p != nil && p.IsBaseRGB() {
		held = c.d.pipes.Adopt(p)
	} else {
		held = c.allocOwn()
	}
	if held == nil {
		return errcode.New(errcode.NoDevice, "overlay_set", "no base pipe")
	}
	c.pipe.Store(held)
	c.startLocked()
	c.state.CompareAndSwap(uint32(StateOff), uint32(StateEnabled))
	return nil
}

func (c *Controller) allocOwn() *Pipe {
	ptype := mdp4.PipeRGB
	if c.prof.path == PathDTV && !c.cfg.Primary && c.d.comp.BorderFillSupported() {
		ptype = mdp4.PipeBorderFill
	}
	m := c.mode
	p, _, err := c.d.pipes.AcquireType(c.prof.path, ptype, c.ownFormat(m.FB.BytesPerPixel))
	if err != nil {
		c.log.Error().Err(err).Stringer("type", ptype).Msg("pipe_alloc failed")
		return nil
	}

	plat := c.hooks.Platform
	if ptype == mdp4.PipeBorderFill {
		plat.BlockPower(CmdBlock, true)
		c.d.regs.Write32(mdp4.RegOverlay1BorderLSP, 0)
		c.d.regs.Write32(mdp4.RegOverlay1BorderMSP, 0)
		plat.BlockPower(CmdBlock, false)
	}
	w, h := m.Timing.ActiveWidth(), m.Timing.ActiveHeight()
	c.d.pipes.Configure(p, Geometry{Width: w, Height: h, Src: Rect{W: w, H: h}}, m.FB.Addr(), m.FB.Stride)
	p.updateBltSize(c.cfg.BltFormat)
	c.d.comp.Flush(p, true)
	return p
}

func (c *Controller) ownFormat(bpp uint32) mdp4.PixelFormat {
	switch bpp {
	case 2:
		return mdp4.FormatRGB565
	case 3:
		return mdp4.FormatRGB888
	}
	if c.cfg.Primary && c.cfg.DefaultFormat != mdp4.FormatUnknown {
		return c.cfg.DefaultFormat
	}
	return mdp4.FormatARGB8888
}

// UnsetPipe pushes one last frame for p and waits for it. Unsetting a base
// RGB pipe also stops the output and drops the held pipe. Without a held
// pipe it does nothing.
func (c *Controller) UnsetPipe(ctx context.Context, p *Pipe) error {
	if c == nil {
		return noDevice("overlay_unset")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	held := c.pipe.Load()
	if held == nil {
		return nil
	}
	if p == nil {
		p = held
	}
	if p.Path != c.prof.path {
		return errcode.New(errcode.InvalidHandle, "overlay_unset", "pipe belongs to "+p.Path.String())
	}

	p.NoWait = false
	c.d.comp.Flush(p, false)
	c.releasePending()
	c.pending = c.kick(held)
	err := c.waitPendingLocked(ctx, "overlay_unset")

	if p.IsBaseRGB() {
		c.cancelDMA()
		c.stopLocked()
		c.d.pipes.Drop(held)
		c.pipe.Store(nil)
		c.state.Store(uint32(StateOff))
		c.log.Info().Int("pipe", held.ID).Msg("base pipe unset")
	}
	return err
}
