// Package config decodes the board description used by the bench harness:
// hardware generation, register space and one block per output path.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mdp-go/drivers/mdp4"
	"mdp-go/errcode"
	"mdp-go/services/overlay"
)

// Board is the top-level YAML document.
type Board struct {
	Generation string  `yaml:"generation"`
	MDPBase    uint64  `yaml:"mdp_base"` // physical base, used with /dev/mem
	MDPSize    int     `yaml:"mdp_size"`
	DTV        *Output `yaml:"dtv,omitempty"`
	LCDC       *Output `yaml:"lcdc,omitempty"`
}

// Output describes one output path.
type Output struct {
	Primary       bool   `yaml:"primary"`
	RefreshHz     uint32 `yaml:"refresh_hz"`
	FirstPixelX   uint32 `yaml:"first_pixel_x"`
	FirstPixelY   uint32 `yaml:"first_pixel_y"`
	SettleMs      *int   `yaml:"settle_ms,omitempty"`
	BltFormat     string `yaml:"blt_format,omitempty"`
	DefaultFormat string `yaml:"default_format,omitempty"`
	ReleaseOnOff  bool   `yaml:"release_on_off"`
	Trace         bool   `yaml:"trace"`
	DisplayIntf   uint32 `yaml:"display_intf"`
	TimingBase    uint32 `yaml:"timing_base,omitempty"`

	Timing      Timing      `yaml:"mode"`
	Framebuffer Framebuffer `yaml:"framebuffer"`
	Panel       Panel       `yaml:"panel"`
}

type Timing struct {
	Width          uint32 `yaml:"width"`
	Height         uint32 `yaml:"height"`
	DisplayWidth   uint32 `yaml:"display_width,omitempty"`
	DisplayHeight  uint32 `yaml:"display_height,omitempty"`
	HBackPorch     uint32 `yaml:"h_back_porch"`
	HFrontPorch    uint32 `yaml:"h_front_porch"`
	VBackPorch     uint32 `yaml:"v_back_porch"`
	VFrontPorch    uint32 `yaml:"v_front_porch"`
	HSyncWidth     uint32 `yaml:"hsync_width"`
	VSyncWidth     uint32 `yaml:"vsync_width"`
	HSyncSkew      uint32 `yaml:"hsync_skew"`
	BorderColor    uint32 `yaml:"border_color"`
	UnderflowColor uint32 `yaml:"underflow_color"`
	BitsPerPixel   uint32 `yaml:"bpp"`
	PixelClockHz   uint64 `yaml:"pixel_clock_hz"`
}

type Framebuffer struct {
	Base          uint32 `yaml:"base"`
	XOffset       uint32 `yaml:"x_offset"`
	YOffset       uint32 `yaml:"y_offset"`
	Stride        uint32 `yaml:"stride"`
	BytesPerPixel uint32 `yaml:"bytes_per_pixel"`
	Format        string `yaml:"format,omitempty"`
}

// Panel selects the panel hook. Kind is "none", "hdmitx" or "spi".
type Panel struct {
	Kind           string `yaml:"kind"`
	Address        uint16 `yaml:"i2c_addr,omitempty"`
	RequireHotplug bool   `yaml:"require_hotplug,omitempty"`
	DVI            bool   `yaml:"dvi,omitempty"`
	BitsPerPixel   int    `yaml:"bpp,omitempty"`
}

// Load reads and validates a board file.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a board document. Unknown keys are rejected.
func Parse(data []byte) (*Board, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var b Board
	if err := dec.Decode(&b); err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "board", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Gen resolves the generation string.
func (b *Board) Gen() (mdp4.Generation, error) {
	switch b.Generation {
	case "mdp40":
		return mdp4.GenMDP40, nil
	case "mdp41", "":
		return mdp4.GenMDP41, nil
	default:
		return 0, errcode.New(errcode.InvalidParams, "board", "unknown generation "+b.Generation)
	}
}

func (b *Board) Validate() error {
	if _, err := b.Gen(); err != nil {
		return err
	}
	if b.DTV == nil && b.LCDC == nil {
		return errcode.New(errcode.InvalidParams, "board", "no output configured")
	}
	for name, o := range map[string]*Output{"dtv": b.DTV, "lcdc": b.LCDC} {
		if o == nil {
			continue
		}
		if err := o.Timing.toVideo().Validate(); err != nil {
			return errcode.Wrap(errcode.InvalidParams, name+".mode", err)
		}
		if err := o.Panel.validate(); err != nil {
			return errcode.Wrap(errcode.InvalidParams, name+".panel", err)
		}
		for _, f := range []string{o.BltFormat, o.DefaultFormat, o.Framebuffer.Format} {
			if _, err := parseFormat(f); err != nil {
				return errcode.Wrap(errcode.InvalidParams, name, err)
			}
		}
	}
	return nil
}

func (p Panel) validate() error {
	switch p.Kind {
	case "", "none", "hdmitx", "spi":
		return nil
	}
	return fmt.Errorf("unknown panel kind %q", p.Kind)
}

func parseFormat(s string) (mdp4.PixelFormat, error) {
	if s == "" {
		return mdp4.FormatUnknown, nil
	}
	f, ok := mdp4.ParseFormat(s)
	if !ok {
		return mdp4.FormatUnknown, fmt.Errorf("unknown pixel format %q", s)
	}
	return f, nil
}

func (t Timing) toVideo() mdp4.VideoTiming {
	return mdp4.VideoTiming{
		Width:          t.Width,
		Height:         t.Height,
		DisplayWidth:   t.DisplayWidth,
		DisplayHeight:  t.DisplayHeight,
		HBackPorch:     t.HBackPorch,
		HFrontPorch:    t.HFrontPorch,
		VBackPorch:     t.VBackPorch,
		VFrontPorch:    t.VFrontPorch,
		HSyncWidth:     t.HSyncWidth,
		VSyncWidth:     t.VSyncWidth,
		HSyncSkew:      t.HSyncSkew,
		BorderColor:    t.BorderColor,
		UnderflowColor: t.UnderflowColor,
		BitsPerPixel:   t.BitsPerPixel,
		PixelClockHz:   t.PixelClockHz,
	}
}

// Mode converts the output's mode and framebuffer blocks.
func (o *Output) Mode() overlay.Mode {
	f, _ := parseFormat(o.Framebuffer.Format)
	return overlay.Mode{
		Timing: o.Timing.toVideo(),
		FB: overlay.Framebuffer{
			Base:          o.Framebuffer.Base,
			XOffset:       o.Framebuffer.XOffset,
			YOffset:       o.Framebuffer.YOffset,
			Stride:        o.Framebuffer.Stride,
			BytesPerPixel: o.Framebuffer.BytesPerPixel,
			Format:        f,
		},
	}
}

// Config builds the controller configuration for path, starting from the
// path defaults and applying whatever the board sets.
func (o *Output) Config(path overlay.Path, gen mdp4.Generation) (overlay.Config, error) {
	var c overlay.Config
	if path == overlay.PathDTV {
		c = overlay.DefaultDTVConfig()
		c.Generation = gen
	} else {
		c = overlay.DefaultLCDCConfig(gen)
		c.ReleaseOnOff = o.ReleaseOnOff
	}
	c.Primary = o.Primary
	c.FirstPixelX = o.FirstPixelX
	c.FirstPixelY = o.FirstPixelY
	c.TraceRegisters = o.Trace
	c.DisplayIntf = o.DisplayIntf
	c.TimingBase = o.TimingBase
	if o.RefreshHz != 0 {
		c.RefreshHz = o.RefreshHz
	}
	if o.SettleMs != nil {
		c.SettleDelay = time.Duration(*o.SettleMs) * time.Millisecond
	}
	if f, err := parseFormat(o.BltFormat); err != nil {
		return c, err
	} else if f != mdp4.FormatUnknown {
		c.BltFormat = f
	}
	if f, err := parseFormat(o.DefaultFormat); err != nil {
		return c, err
	} else if f != mdp4.FormatUnknown {
		c.DefaultFormat = f
	}
	return c, c.Validate()
}
