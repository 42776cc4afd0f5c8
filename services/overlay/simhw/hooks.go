package simhw

import (
	"errors"
	"sync"
	"sync/atomic"

	"mdp-go/drivers/mdp4"
	"mdp-go/services/overlay"
)

// Simulated pipe register layout: one 64 KiB window per pipe index. These
// offsets belong to the simulation only.
const (
	pipeWindow    = 0x40000
	pipeStride    = 0x10000
	pipeSrcSize   = 0x0000
	pipeSrcXY     = 0x0004
	pipeSrcAddr   = 0x0010
	pipeSrcStride = 0x0040
	pipeFormat    = 0x0050
	pipeStage     = 0x0060
	pipeFlush     = 0x0070
)

var ErrNoPipe = errors.New("simhw: no free pipe")

// Compositor hands out pipe indexes from fixed pools and mirrors pipe
// programming into the register space.
type Compositor struct {
	regs mdp4.Block

	mu     sync.Mutex
	free   map[mdp4.PipeType][]int
	bf     bool
	staged map[int]bool
}

// NewCompositor creates pools of rgb and vg pipes. Border fill is supported
// when bf is set; border-fill pipes use index 7.
func NewCompositor(regs mdp4.Block, rgb, vg int, bf bool) *Compositor {
	c := &Compositor{regs: regs, free: map[mdp4.PipeType][]int{}, bf: bf, staged: map[int]bool{}}
	id := 0
	for i := 0; i < rgb; i++ {
		c.free[mdp4.PipeRGB] = append(c.free[mdp4.PipeRGB], id)
		id++
	}
	for i := 0; i < vg; i++ {
		c.free[mdp4.PipeVG] = append(c.free[mdp4.PipeVG], id)
		id++
	}
	if bf {
		c.free[mdp4.PipeBorderFill] = []int{7}
	}
	return c
}

func (c *Compositor) base(p *overlay.Pipe) uint32 {
	return pipeWindow + uint32(p.ID)*pipeStride
}

func (c *Compositor) AllocPipe(t mdp4.PipeType, _ overlay.Mixer) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pool := c.free[t]
	if len(pool) == 0 {
		return 0, ErrNoPipe
	}
	id := pool[0]
	c.free[t] = pool[1:]
	return id, nil
}

func (c *Compositor) SetupFormat(p *overlay.Pipe) error {
	if _, err := mdp4.TypeOf(p.Format); err != nil {
		return err
	}
	c.regs.Write32(c.base(p)+pipeFormat, uint32(p.Format))
	return nil
}

func (c *Compositor) SetupRGB(p *overlay.Pipe) {
	b := c.base(p)
	c.regs.Write32(b+pipeSrcSize, p.SrcHeight<<16|p.SrcWidth)
	c.regs.Write32(b+pipeSrcXY, p.Src.Y<<16|p.Src.X)
	c.regs.Write32(b+pipeSrcAddr, p.Addr)
	c.regs.Write32(b+pipeSrcStride, p.Stride)
}

func (c *Compositor) ConfigureOutput(p *overlay.Pipe) {
	c.regs.Write32(c.base(p)+pipeSrcSize, p.SrcHeight<<16|p.SrcWidth)
}

func (c *Compositor) StageUp(p *overlay.Pipe) {
	c.mu.Lock()
	c.staged[p.ID] = true
	c.mu.Unlock()
	c.regs.Write32(c.base(p)+pipeStage, uint32(p.Stage))
}

func (c *Compositor) StageDown(p *overlay.Pipe) {
	c.mu.Lock()
	c.staged[p.ID] = false
	c.mu.Unlock()
	c.regs.Write32(c.base(p)+pipeStage, 0)
}

func (c *Compositor) Flush(p *overlay.Pipe, mixer bool) {
	v := uint32(1)
	if mixer {
		v |= 1 << (16 + uint32(p.Mixer))
	}
	c.regs.Write32(c.base(p)+pipeFlush, v)
}

func (c *Compositor) BorderFillSupported() bool { return c.bf }

// Staged reports whether pipe id is on a mixer stage.
func (c *Compositor) Staged(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged[id]
}

// SrcAddr reads back the source address last programmed for pipe id.
func (c *Compositor) SrcAddr(id int) uint32 {
	return c.regs.Read32(pipeWindow + uint32(id)*pipeStride + pipeSrcAddr)
}

// Platform counts clock, power and resource calls.
type Platform struct {
	mu    sync.Mutex
	power map[overlay.PowerBlock]bool

	IOMMU    atomic.Uint32
	Perf     atomic.Uint32
	Releases atomic.Uint32
	Inits    atomic.Uint32
	reset    atomic.Bool
}

func NewPlatform() *Platform {
	return &Platform{power: map[overlay.PowerBlock]bool{}}
}

func (p *Platform) BlockPower(b overlay.PowerBlock, on bool) {
	p.mu.Lock()
	p.power[b] = on
	p.mu.Unlock()
}

// Powered reports a block's last requested power state.
func (p *Platform) Powered(b overlay.PowerBlock) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.power[b]
}

func (p *Platform) IOMMUAttach()      { p.IOMMU.Add(1) }
func (p *Platform) SetPerfLevel()     { p.Perf.Add(1) }
func (p *Platform) ReleaseResources() { p.Releases.Add(1) }
func (p *Platform) HWInit()           { p.Inits.Add(1) }

// HWResetDetected reports, once, a reset injected with InjectReset.
func (p *Platform) HWResetDetected() bool { return p.reset.Swap(false) }

// InjectReset makes the next HWResetDetected report a core reset.
func (p *Platform) InjectReset() { p.reset.Store(true) }

// Bus records bandwidth votes.
type Bus struct {
	level atomic.Int32
	votes atomic.Uint32
}

func (b *Bus) Request(level int) {
	b.level.Store(int32(level))
	b.votes.Add(1)
}

// Level is the last vote.
func (b *Bus) Level() int { return int(b.level.Load()) }
