package overlay

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"mdp-go/drivers/mdp4"
	"mdp-go/errcode"
	"mdp-go/services/overlay/internal/completion"
)

// Pipe is a hardware compositing slot feeding one mixer stage. Its fields are
// written under the owning controller's submission lock. The blt and counter
// fields are also read from interrupt context and are atomic.
type Pipe struct {
	ID     int
	Path   Path
	Mixer  Mixer
	Stage  Stage
	Type   mdp4.PipeType
	Format mdp4.PixelFormat

	SrcWidth  uint32
	SrcHeight uint32
	Src       Rect
	Addr      uint32
	Stride    uint32
	NoWait    bool
	Used      int

	staged bool

	bltBase  atomic.Uint32
	bltSize  atomic.Uint32
	ovCount  atomic.Uint32
	dmaCount atomic.Uint32

	comp *completion.Completion
}

func (p *Pipe) String() string {
	return fmt.Sprintf("pipe%d(%s mixer%d %s %s)", p.ID, p.Path, p.Mixer, p.Type, p.Format)
}

// IsBaseRGB reports whether p is a base-stage RGB layer, the only class a
// controller releases on its own.
func (p *Pipe) IsBaseRGB() bool {
	return p.Stage == StageBase && p.Type == mdp4.PipeRGB
}

// Staged reports whether p is attached to its mixer.
func (p *Pipe) Staged() bool { return p.staged }

// BltAddr is the configured bypass base, 0 when bypass is off.
func (p *Pipe) BltAddr() uint32 { return p.bltBase.Load() }

// OvCount and DMACount are the overlay-kick and DMA frame parity counters.
func (p *Pipe) OvCount() uint32  { return p.ovCount.Load() }
func (p *Pipe) DMACount() uint32 { return p.dmaCount.Load() }

// setBlt arms bypass mode at base with frames laid out in format.
func (p *Pipe) setBlt(base uint32, format mdp4.PixelFormat) {
	p.bltBase.Store(base)
	p.updateBltSize(format)
}

func (p *Pipe) updateBltSize(format mdp4.PixelFormat) {
	p.bltSize.Store(p.SrcHeight * p.SrcWidth * format.BytesPerPixel())
}

// bltTarget picks the half of the bypass buffer for a counter value:
// base for even, base+frame for odd. ok is false when bypass is off.
func (p *Pipe) bltTarget(count uint32) (addr uint32, ok bool) {
	base := p.bltBase.Load()
	if base == 0 {
		return 0, false
	}
	if count&1 == 1 {
		return base + p.bltSize.Load(), true
	}
	return base, true
}

// PipeSet holds at most one base pipe per output path.
type PipeSet struct {
	mu     sync.Mutex
	comp   Compositor
	held   map[Path]*Pipe
	allocs int
	log    *zerolog.Logger
}

func NewPipeSet(comp Compositor, log *zerolog.Logger) *PipeSet {
	return &PipeSet{comp: comp, held: map[Path]*Pipe{}, log: log}
}

func mixerFor(path Path) Mixer {
	if path == PathDTV {
		return Mixer1
	}
	return Mixer0
}

// Get returns the pipe held for path, or nil.
func (s *PipeSet) Get(path Path) *Pipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held[path]
}

// Allocs is the number of successful allocator calls since creation.
func (s *PipeSet) Allocs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocs
}

// Acquire returns the pipe held for path, allocating one of the type that
// format maps to if there is none. fresh reports a new allocation. A format
// with no pipe type is logged and treated as RGB.
func (s *PipeSet) Acquire(path Path, format mdp4.PixelFormat) (p *Pipe, fresh bool, err error) {
	ptype, terr := mdp4.TypeOf(format)
	if terr != nil {
		s.log.Warn().Err(terr).Stringer("path", path).Msg("format2type failed")
	}
	return s.acquire(path, ptype, format)
}

// AcquireType is Acquire with an explicit pipe type, used for border fill.
func (s *PipeSet) AcquireType(path Path, ptype mdp4.PipeType, format mdp4.PixelFormat) (*Pipe, bool, error) {
	return s.acquire(path, ptype, format)
}

func (s *PipeSet) acquire(path Path, ptype mdp4.PipeType, format mdp4.PixelFormat) (*Pipe, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.held[path]; p != nil {
		return p, false, nil
	}
	mixer := mixerFor(path)
	id, err := s.comp.AllocPipe(ptype, mixer)
	if err != nil {
		return nil, false, errcode.Wrap(errcode.ResourceExhausted, "pipe_alloc", err)
	}
	s.allocs++
	p := &Pipe{
		ID:     id,
		Path:   path,
		Mixer:  mixer,
		Stage:  StageBase,
		Type:   ptype,
		Format: format,
		Used:   1,
		comp:   completion.New(),
	}
	if ptype != mdp4.PipeBorderFill {
		if err := s.comp.SetupFormat(p); err != nil {
			s.log.Warn().Err(err).Stringer("pipe", p).Msg("format2pipe failed")
		}
	}
	s.held[path] = p
	return p, true, nil
}

// Adopt makes an externally allocated pipe the held pipe for its path. It is
// a no-op if the path already holds one.
func (s *PipeSet) Adopt(p *Pipe) *Pipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.held[p.Path]; cur != nil {
		return cur
	}
	if p.comp == nil {
		p.comp = completion.New()
	}
	p.Used++
	s.held[p.Path] = p
	return p
}

// Configure applies geometry and source address to p and brings it onto its
// mixer stage.
func (s *PipeSet) Configure(p *Pipe, g Geometry, addr, stride uint32) {
	p.SrcWidth = g.Width
	p.SrcHeight = g.Height
	p.Src = g.Src
	p.Addr = addr
	p.Stride = stride
	s.comp.ConfigureOutput(p)
	if p.Type != mdp4.PipeBorderFill {
		s.comp.SetupRGB(p)
	}
	s.StageUp(p)
}

func (s *PipeSet) StageUp(p *Pipe) {
	s.comp.StageUp(p)
	p.staged = true
}

// StageDown detaches p from its mixer but keeps it held for the next on().
func (s *PipeSet) StageDown(p *Pipe) {
	if !p.staged {
		return
	}
	s.comp.StageDown(p)
	p.staged = false
}

// Release stages p down and drops it from the set. Only base RGB pipes are
// released; anything else is left alone.
func (s *PipeSet) Release(p *Pipe) bool {
	if p == nil || !p.IsBaseRGB() {
		return false
	}
	s.drop(p)
	return true
}

// Drop stages p down and forgets it regardless of class.
func (s *PipeSet) Drop(p *Pipe) {
	if p != nil {
		s.drop(p)
	}
}

func (s *PipeSet) drop(p *Pipe) {
	s.StageDown(p)
	s.mu.Lock()
	if s.held[p.Path] == p {
		delete(s.held, p.Path)
	}
	s.mu.Unlock()
	p.Used--
}
