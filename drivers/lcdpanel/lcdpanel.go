// Package lcdpanel powers a parallel-RGB LCD panel whose controller takes its
// configuration over a 4-wire SPI side channel (MIPI DCS command set). Pixel
// data arrives on the RGB bus from the LCDC timing block; this package only
// sequences sleep and display state.
package lcdpanel

import (
	"context"
	"time"

	"tinygo.org/x/drivers"
)

// MIPI DCS commands.
const (
	cmdSoftReset  = 0x01
	cmdSleepIn    = 0x10
	cmdSleepOut   = 0x11
	cmdDisplayOff = 0x28
	cmdDisplayOn  = 0x29
	cmdPixelFmt   = 0x3A
)

// Command is one DCS command with parameters and a post-command delay.
type Command struct {
	Op    byte
	Data  []byte
	Delay time.Duration
}

// Config describes the panel's side channel. DC is required; Reset is optional.
type Config struct {
	// DC drives the data/command line: false selects command.
	DC func(data bool)
	// Reset drives the active-low reset line, if wired.
	Reset func(level bool)
	// BitsPerPixel on the RGB bus: 16, 18 or 24. Default 24.
	BitsPerPixel int
	// Init holds panel-specific commands sent after sleep-out.
	Init []Command
	// ResetPulse defaults to 10 ms; SleepOutDelay to 120 ms.
	ResetPulse    time.Duration
	SleepOutDelay time.Duration
}

// Device is one panel.
type Device struct {
	spi   drivers.SPI
	cfg   Config
	sleep func(time.Duration)
	on    bool
}

// New creates the Device; it does not touch the panel.
func New(spi drivers.SPI, cfg Config) *Device {
	if cfg.BitsPerPixel == 0 {
		cfg.BitsPerPixel = 24
	}
	if cfg.ResetPulse <= 0 {
		cfg.ResetPulse = 10 * time.Millisecond
	}
	if cfg.SleepOutDelay <= 0 {
		cfg.SleepOutDelay = 120 * time.Millisecond
	}
	return &Device{spi: spi, cfg: cfg, sleep: time.Sleep}
}

func (d *Device) command(c Command) error {
	d.cfg.DC(false)
	if err := d.spi.Tx([]byte{c.Op}, nil); err != nil {
		return err
	}
	if len(c.Data) > 0 {
		d.cfg.DC(true)
		if err := d.spi.Tx(c.Data, nil); err != nil {
			return err
		}
	}
	if c.Delay > 0 {
		d.sleep(c.Delay)
	}
	return nil
}

func (d *Device) pixelFormat() byte {
	switch d.cfg.BitsPerPixel {
	case 16:
		return 0x55
	case 18:
		return 0x66
	default:
		return 0x77
	}
}

// PowerOn resets the controller, leaves sleep and turns the display on.
func (d *Device) PowerOn(ctx context.Context) error {
	if d.cfg.Reset != nil {
		d.cfg.Reset(false)
		d.sleep(d.cfg.ResetPulse)
		d.cfg.Reset(true)
		d.sleep(d.cfg.ResetPulse)
	} else if err := d.command(Command{Op: cmdSoftReset, Delay: d.cfg.ResetPulse}); err != nil {
		return err
	}

	seq := make([]Command, 0, len(d.cfg.Init)+3)
	seq = append(seq, Command{Op: cmdSleepOut, Delay: d.cfg.SleepOutDelay})
	seq = append(seq, d.cfg.Init...)
	seq = append(seq,
		Command{Op: cmdPixelFmt, Data: []byte{d.pixelFormat()}},
		Command{Op: cmdDisplayOn},
	)
	for _, c := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.command(c); err != nil {
			return err
		}
	}
	d.on = true
	return nil
}

// PowerOff turns the display off and enters sleep. Calling it on a panel that
// is already off is a no-op.
func (d *Device) PowerOff(ctx context.Context) error {
	if !d.on {
		return nil
	}
	if err := d.command(Command{Op: cmdDisplayOff}); err != nil {
		return err
	}
	if err := d.command(Command{Op: cmdSleepIn, Delay: d.cfg.ResetPulse}); err != nil {
		return err
	}
	d.on = false
	return nil
}

// On reports whether the last PowerOn succeeded and no PowerOff followed.
func (d *Device) On() bool { return d.on }
