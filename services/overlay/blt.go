package overlay

import (
	"mdp-go/errcode"
)

// SetBlt switches bypass mode on at addr, or off when addr is 0. A running
// output is stopped for BltSettle while the output path is reconfigured.
// The DMA-side counter restarts; the overlay-side counter keeps its parity.
func (c *Controller) SetBlt(addr uint32) error {
	if c == nil {
		return noDevice("overlay_blt")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pipe.Load()
	if p == nil {
		return errcode.New(errcode.InvalidState, "overlay_blt", "no base pipe")
	}
	c.d.irq.Locked(func() {
		p.setBlt(addr, c.cfg.BltFormat)
		p.dmaCount.Store(0)
	})
	c.log.Info().Uint32("blt_addr", addr).Msg("blt")
	if !c.enabled {
		return nil
	}
	plat := c.hooks.Platform
	plat.BlockPower(CmdBlock, true)
	defer plat.BlockPower(CmdBlock, false)
	c.regs.Write32(c.prof.regMap.Enable, 0)
	c.sleep(c.cfg.BltSettle)
	c.d.comp.ConfigureOutput(p)
	c.regs.Write32(c.prof.regMap.Enable, 1)
	return nil
}

// BltOffset is the byte offset of the writable bypass region: 0 when bypass
// is configured, -1 with InvalidParams when it is not.
func (c *Controller) BltOffset() (int, error) {
	if c == nil {
		return -1, noDevice("blt_offset")
	}
	p := c.pipe.Load()
	if p == nil || p.BltAddr() == 0 {
		return -1, errcode.New(errcode.InvalidParams, "blt_offset", "bypass not configured")
	}
	return 0, nil
}
