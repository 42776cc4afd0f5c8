package overlay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mdp-go/drivers/mdp4"
	"mdp-go/x/logx"
)

// hwRegs emulates write-1-to-clear interrupt status on top of a RegFile.
type hwRegs struct {
	*mdp4.RegFile
}

func (r hwRegs) Write32(off, v uint32) {
	r.RegFile.Write32(off, v)
	if off == mdp4.RegIntrClear {
		r.Update(mdp4.RegIntrStatus, func(s uint32) uint32 { return s &^ v })
	}
}

func (r hwRegs) raise(src mdp4.Intr) {
	r.Update(mdp4.RegIntrStatus, func(s uint32) uint32 { return s | uint32(src) })
}

var errNoPipe = errors.New("no free pipe")

type fakeComp struct {
	mu        sync.Mutex
	free      int // pipes left; <0 means unlimited
	next      int
	allocs    int
	bf        bool
	stageUps  int
	stageDown int
	flushes   int

	inflight int32
	overlap  atomic.Bool
}

func newFakeComp() *fakeComp { return &fakeComp{free: -1} }

func (f *fakeComp) enter() {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		f.overlap.Store(true)
	}
	time.Sleep(50 * time.Microsecond)
	atomic.AddInt32(&f.inflight, -1)
}

func (f *fakeComp) AllocPipe(t mdp4.PipeType, mixer Mixer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.free == 0 {
		return 0, errNoPipe
	}
	if f.free > 0 {
		f.free--
	}
	f.allocs++
	f.next++
	return f.next, nil
}

func (f *fakeComp) SetupFormat(p *Pipe) error { return nil }
func (f *fakeComp) SetupRGB(p *Pipe)          { f.enter() }
func (f *fakeComp) ConfigureOutput(p *Pipe)   {}

func (f *fakeComp) StageUp(p *Pipe) {
	f.mu.Lock()
	f.stageUps++
	f.mu.Unlock()
}

func (f *fakeComp) StageDown(p *Pipe) {
	f.mu.Lock()
	f.stageDown++
	f.mu.Unlock()
}

func (f *fakeComp) Flush(p *Pipe, mixer bool) {
	f.enter()
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}

func (f *fakeComp) BorderFillSupported() bool { return f.bf }

func (f *fakeComp) allocCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocs
}

type fakePanel struct {
	mu      sync.Mutex
	onErr   error
	offErr  error
	ons     int
	offs    int
	powered bool
}

func (p *fakePanel) PowerOn(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ons++
	if p.onErr != nil {
		return p.onErr
	}
	p.powered = true
	return nil
}

func (p *fakePanel) PowerOff(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offs++
	p.powered = false
	return p.offErr
}

type fakePlatform struct {
	mu       sync.Mutex
	power    map[PowerBlock]bool
	powerOns map[PowerBlock]int
	iommu    int
	perf     int
	releases int
	reset    bool
	inits    int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{power: map[PowerBlock]bool{}, powerOns: map[PowerBlock]int{}}
}

func (p *fakePlatform) BlockPower(b PowerBlock, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.power[b] = on
	if on {
		p.powerOns[b]++
	}
}

func (p *fakePlatform) IOMMUAttach() { p.mu.Lock(); p.iommu++; p.mu.Unlock() }
func (p *fakePlatform) SetPerfLevel() {
	p.mu.Lock()
	p.perf++
	p.mu.Unlock()
}
func (p *fakePlatform) ReleaseResources() { p.mu.Lock(); p.releases++; p.mu.Unlock() }
func (p *fakePlatform) HWResetDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.reset
	p.reset = false
	return r
}
func (p *fakePlatform) HWInit() { p.mu.Lock(); p.inits++; p.mu.Unlock() }

func (p *fakePlatform) counts() (perf, releases int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perf, p.releases
}

type fakeBus struct {
	mu     sync.Mutex
	levels []int
}

func (b *fakeBus) Request(level int) {
	b.mu.Lock()
	b.levels = append(b.levels, level)
	b.mu.Unlock()
}

type rig struct {
	regs  hwRegs
	d     *Display
	comp  *fakeComp
	panel *fakePanel
	plat  *fakePlatform
	bus   *fakeBus
	c     *Controller
	slept []time.Duration
}

func newRig(t *testing.T, path Path, cfg Config) *rig {
	t.Helper()
	r := &rig{
		regs:  hwRegs{mdp4.NewRegFile()},
		comp:  newFakeComp(),
		panel: &fakePanel{},
		plat:  newFakePlatform(),
		bus:   &fakeBus{},
	}
	r.d = NewDisplay(r.regs, r.comp, logx.Nop())
	hooks := Hooks{Panel: r.panel, Platform: r.plat, Bus: r.bus}
	var err error
	if path == PathDTV {
		r.c, err = r.d.NewDTV(cfg, hooks)
	} else {
		r.c, err = r.d.NewLCDC(cfg, hooks)
	}
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	r.c.sleep = func(d time.Duration) { r.slept = append(r.slept, d) }
	return r
}

// serve runs the interrupt path and returns a function that raises src once
// it is enabled.
func (r *rig) serve(t *testing.T) (fire func(mdp4.Intr)) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	line := make(chan struct{}, 8)
	r.d.Serve(ctx, line)
	return func(src mdp4.Intr) {
		deadline := time.Now().Add(time.Second)
		for r.d.IRQMask()&src == 0 {
			if time.Now().After(deadline) {
				t.Errorf("%#x never enabled", uint32(src))
				return
			}
			time.Sleep(time.Millisecond)
		}
		r.regs.raise(src)
		line <- struct{}{}
	}
}

func mode1080p() Mode {
	return Mode{
		Timing: mdp4.VideoTiming{
			Width: 1920, Height: 1080,
			HBackPorch: 148, HFrontPorch: 88, HSyncWidth: 44,
			VBackPorch: 36, VFrontPorch: 4, VSyncWidth: 5,
			BitsPerPixel: 24, PixelClockHz: 148500000,
		},
		FB: Framebuffer{Base: 0x40000000, Stride: 1920 * 4, BytesPerPixel: 4},
	}
}

func mode720p() Mode {
	return Mode{
		Timing: mdp4.VideoTiming{
			Width: 1280, Height: 720,
			HBackPorch: 220, HFrontPorch: 110, HSyncWidth: 40,
			VBackPorch: 20, VFrontPorch: 5, VSyncWidth: 5,
			BitsPerPixel: 24, PixelClockHz: 74250000,
		},
		FB: Framebuffer{Base: 0x40000000, Stride: 1280 * 4, BytesPerPixel: 4},
	}
}

func fastDTV() Config {
	cfg := DefaultDTVConfig()
	cfg.RefreshHz = 1000 // 2 ms bound
	return cfg
}
