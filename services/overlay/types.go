// Package overlay drives the DTV and LCDC output paths of the MDP4 display
// processor: one base-layer pipe per path, the on/off/start lifecycle, timing
// programming and interrupt-synchronised frame submission.
package overlay

import (
	"fmt"

	"mdp-go/drivers/mdp4"
)

// Path identifies an output path.
type Path uint8

const (
	PathLCDC Path = iota
	PathDTV
)

func (p Path) String() string {
	switch p {
	case PathLCDC:
		return "lcdc"
	case PathDTV:
		return "dtv"
	default:
		return fmt.Sprintf("path(%d)", uint8(p))
	}
}

// Mixer is a layer mixer index. LCDC is fed by mixer 0, DTV by mixer 1.
type Mixer uint8

const (
	Mixer0 Mixer = 0
	Mixer1 Mixer = 1
)

// Stage is a mixer compositing stage.
type Stage uint8

const (
	StageUnused Stage = iota
	StageBase
	Stage0
	Stage1
	Stage2
)

// State of an output path.
type State uint32

const (
	StateOff State = iota
	StateEnabled
	// StateStreaming is Enabled with an unacknowledged frame in flight.
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateEnabled:
		return "enabled"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Framebuffer describes the scan-out memory the frame-buffer layer owns.
type Framebuffer struct {
	Base          uint32
	XOffset       uint32
	YOffset       uint32
	Stride        uint32 // bytes per line
	BytesPerPixel uint32
	// Format of the buffer. Unknown derives it from BytesPerPixel.
	Format mdp4.PixelFormat
}

// Addr is the panned source address: base + x*bpp + y*stride.
func (f Framebuffer) Addr() uint32 {
	return f.Base + f.XOffset*f.BytesPerPixel + f.YOffset*f.Stride
}

func (f Framebuffer) format() mdp4.PixelFormat {
	if f.Format != mdp4.FormatUnknown {
		return f.Format
	}
	return mdp4.FormatForDepth(f.BytesPerPixel)
}

// Mode is everything on() needs: raster timing plus the buffer to scan out.
type Mode struct {
	Timing mdp4.VideoTiming
	FB     Framebuffer
}

// String renders the mode as "<W>x<H> (fp,pw,bp),(fp,pw,bp) <N>MHz".
func (m Mode) String() string {
	t := m.Timing
	return fmt.Sprintf("%dx%d (%d,%d,%d),(%d,%d,%d) %dMHz",
		t.Width, t.Height,
		t.HFrontPorch, t.HSyncWidth, t.HBackPorch,
		t.VFrontPorch, t.VSyncWidth, t.VBackPorch,
		t.PixelClockHz/1000/1000)
}

// Rect is a source crop in pixels.
type Rect struct {
	X, Y, W, H uint32
}

// Geometry is the source layout applied by configure.
type Geometry struct {
	Width  uint32
	Height uint32
	Src    Rect
}

// Frame is one submission.
type Frame struct {
	Addr uint32
	// NoWait returns right after arming instead of waiting for the
	// hardware acknowledgement.
	NoWait bool
}
