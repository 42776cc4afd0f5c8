package overlay

import (
	"time"

	"mdp-go/drivers/mdp4"
	"mdp-go/errcode"
)

// Config is a controller's construction-time configuration. Everything that
// differs between hardware generations is resolved here, once.
type Config struct {
	Generation mdp4.Generation

	// FirstPixelX/Y shift the active window inside the timing raster when
	// the displayed area is smaller than it.
	FirstPixelX uint32
	FirstPixelY uint32

	// RefreshHz is the nominal refresh used for the bounded wait.
	RefreshHz uint32
	// SettleDelay lets the last frame drain in off().
	SettleDelay time.Duration
	// BltSettle is the stop/restart gap when the bypass buffer changes.
	BltSettle time.Duration
	// BltFormat is the layout of bypass frames.
	BltFormat mdp4.PixelFormat

	// ReleaseOnOff stages the pipe down in off(). Always true for DTV.
	ReleaseOnOff bool
	// TraceRegisters logs every timing register write at debug level.
	TraceRegisters bool

	// Primary marks this output as the primary display. A primary DTV
	// uses DefaultFormat for 32-bit buffers and never takes a border-fill
	// base pipe.
	Primary       bool
	DefaultFormat mdp4.PixelFormat

	// DisplayIntf is restored to the interface selector after a core reset.
	DisplayIntf uint32
	// TimingBase overrides the timing block base. 0 uses the path default.
	TimingBase uint32
}

// DefaultDTVConfig is the DTV configuration: 100 ms drain, release on off.
func DefaultDTVConfig() Config {
	return Config{
		Generation:    mdp4.GenMDP41,
		RefreshHz:     60,
		SettleDelay:   100 * time.Millisecond,
		BltSettle:     50 * time.Millisecond,
		BltFormat:     mdp4.FormatRGB888,
		ReleaseOnOff:  true,
		DefaultFormat: mdp4.FormatRGBA8888,
	}
}

// DefaultLCDCConfig is the LCDC configuration for gen: 16 ms drain, pipe kept
// attached across off/on.
func DefaultLCDCConfig(gen mdp4.Generation) Config {
	return Config{
		Generation:    gen,
		RefreshHz:     60,
		SettleDelay:   16 * time.Millisecond,
		BltSettle:     50 * time.Millisecond,
		BltFormat:     mdp4.FormatRGB888,
		DefaultFormat: mdp4.FormatRGB565,
		Primary:       true,
	}
}

// Validate checks c for values the controller cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Generation != mdp4.GenMDP40 && c.Generation != mdp4.GenMDP41:
		return errcode.New(errcode.InvalidParams, "config", "unknown hardware generation")
	case c.RefreshHz == 0:
		return errcode.New(errcode.InvalidParams, "config", "refresh_hz must be > 0")
	case c.SettleDelay < 0 || c.BltSettle < 0:
		return errcode.New(errcode.InvalidParams, "config", "negative delay")
	case c.BltFormat.BytesPerPixel() == 0:
		return errcode.New(errcode.InvalidParams, "config", "blt format has no byte size")
	}
	return nil
}
