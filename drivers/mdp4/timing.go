package mdp4

import (
	"errors"

	"mdp-go/x/mathx"
)

// VideoTiming is one mode's raster description. Porches and pulse widths are
// in pixels (horizontal) or lines (vertical).
type VideoTiming struct {
	Width  uint32 // timing raster active width (xres)
	Height uint32 // timing raster active height (yres)

	// DisplayWidth/DisplayHeight select an active sub-window of the raster.
	// Zero means "same as Width/Height".
	DisplayWidth  uint32
	DisplayHeight uint32

	HBackPorch  uint32 // left margin
	HFrontPorch uint32 // right margin
	VBackPorch  uint32 // upper margin
	VFrontPorch uint32 // lower margin
	HSyncWidth  uint32
	VSyncWidth  uint32
	HSyncSkew   uint32

	BorderColor    uint32
	UnderflowColor uint32
	BitsPerPixel   uint32

	PixelClockHz uint64 // informational
}

// ActiveWidth returns the displayed width.
func (t VideoTiming) ActiveWidth() uint32 {
	if t.DisplayWidth == 0 {
		return t.Width
	}
	return t.DisplayWidth
}

// ActiveHeight returns the displayed height.
func (t VideoTiming) ActiveHeight() uint32 {
	if t.DisplayHeight == 0 {
		return t.Height
	}
	return t.DisplayHeight
}

// HTotal is the full line length in pixel clocks.
func (t VideoTiming) HTotal() uint32 {
	return t.HSyncWidth + t.HBackPorch + t.Width + t.HFrontPorch
}

// VTotal is the full frame height in lines.
func (t VideoTiming) VTotal() uint32 {
	return t.VSyncWidth + t.VBackPorch + t.Height + t.VFrontPorch
}

// RefreshHz derives the refresh rate from the pixel clock, or 0 if unknown.
func (t VideoTiming) RefreshHz() uint32 {
	total := uint64(t.HTotal()) * uint64(t.VTotal())
	if t.PixelClockHz == 0 || total == 0 {
		return 0
	}
	return uint32(mathx.RoundDiv(t.PixelClockHz, total))
}

var (
	ErrZeroSize      = errors.New("mdp4: width and height must be non-zero")
	ErrWindowTooWide = errors.New("mdp4: display window exceeds the timing raster")
	ErrRegOverflow   = errors.New("mdp4: line length does not fit the 16-bit timing fields")
)

// Validate checks the preconditions of Compute.
func (t VideoTiming) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return ErrZeroSize
	}
	if t.ActiveWidth() > t.Width || t.ActiveHeight() > t.Height {
		return ErrWindowTooWide
	}
	if t.HTotal() > 0xFFFF {
		return ErrRegOverflow
	}
	return nil
}

// TimingRegisters are the words written to an output timing block. They are
// always derived together from a single VideoTiming.
type TimingRegisters struct {
	HsyncCtrl       uint32
	VsyncPeriod     uint32
	VsyncPulseTotal uint32
	DisplayHCtl     uint32
	DisplayVStart   uint32
	DisplayVEnd     uint32
	ActiveHCtl      uint32
	ActiveVStart    uint32
	ActiveVEnd      uint32
	BorderColor     uint32
	UnderflowColor  uint32
	HsyncSkew       uint32
	CtlPolarity     uint32
}

// PolarityRule picks hsync/vsync polarity. Data-enable polarity is always 0.
type PolarityRule uint8

const (
	// PolarityByHeight: active-high (0) from 720 lines up, else active-low (1).
	PolarityByHeight PolarityRule = iota
	PolarityActiveHigh
	PolarityActiveLow
)

func (p PolarityRule) bit(height uint32) uint32 {
	switch p {
	case PolarityByHeight:
		if height >= 720 {
			return 0
		}
		return 1
	case PolarityActiveLow:
		return 1
	default:
		return 0
	}
}

// TimingOptions carries the per-controller inputs of Compute.
type TimingOptions struct {
	FirstPixelX       uint32
	FirstPixelY       uint32
	Polarity          PolarityRule
	UnderflowRecovery bool
}

// Compute derives the timing block words for t. t must satisfy Validate.
func Compute(t VideoTiming, o TimingOptions) TimingRegisters {
	var r TimingRegisters

	hsyncPeriod := t.HTotal()
	r.HsyncCtrl = hsyncPeriod<<16 | t.HSyncWidth
	hsyncStartX := t.HSyncWidth + t.HBackPorch
	hsyncEndX := hsyncPeriod - t.HFrontPorch - 1
	r.DisplayHCtl = hsyncEndX<<16 | hsyncStartX

	r.VsyncPeriod = t.VTotal() * hsyncPeriod
	r.VsyncPulseTotal = t.VSyncWidth * hsyncPeriod
	r.DisplayVStart = (t.VSyncWidth+t.VBackPorch)*hsyncPeriod + t.HSyncSkew
	r.DisplayVEnd = r.VsyncPeriod - t.VFrontPorch*hsyncPeriod + t.HSyncSkew - 1

	if w := t.ActiveWidth(); w != t.Width {
		start := hsyncStartX + o.FirstPixelX
		end := start + w - 1
		r.ActiveHCtl = ActiveStartXEnable | end<<16 | start
	}
	if h := t.ActiveHeight(); h != t.Height {
		start := r.DisplayVStart + o.FirstPixelY*hsyncPeriod
		r.ActiveVEnd = start + h*hsyncPeriod - 1
		r.ActiveVStart = start | ActiveStartYEnable
	}

	pol := o.Polarity.bit(t.Height)
	const dataEnablePol = 0
	r.CtlPolarity = dataEnablePol<<2 | pol<<1 | pol

	r.BorderColor = t.BorderColor
	r.UnderflowColor = t.UnderflowColor
	if o.UnderflowRecovery {
		r.UnderflowColor |= UnderflowRecovery
	}
	r.HsyncSkew = t.HSyncSkew
	return r
}
