// Package hdmitx drives the power state of an ADV7520-class HDMI transmitter
// that sits behind the DTV output. It supplies the panel hooks for the DTV
// path: the timing block feeds the transmitter, which must be out of power
// down before the first frame and back in power down after the last.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package hdmitx

import (
	"context"
	"errors"

	"tinygo.org/x/drivers"
)

// Address is the 7-bit main-map address.
const Address = 0x39

const (
	regChipRevision = 0x00
	regPowerDown    = 0x41 // bit 6: power down
	regHPDStatus    = 0x42 // bit 6: hot plug detected
	regHDMIMode     = 0xAF // bit 1: HDMI (vs DVI)

	powerDownBit = 1 << 6
	hpdBit       = 1 << 6
	hdmiModeBit  = 1 << 1
)

// Fixed registers the transmitter needs after every power up.
var powerUpSequence = [...][2]byte{
	{0x98, 0x03},
	{0x9C, 0x38},
	{0x9D, 0x61},
	{0xA2, 0x94},
	{0xA3, 0x94},
	{0xDE, 0x88},
}

var (
	ErrNoSink = errors.New("hdmitx: no sink attached")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x39 if zero.
	Address uint16
	// RequireHotplug makes PowerOn fail with ErrNoSink when HPD is low.
	RequireHotplug bool
	// DVI keeps the link in DVI mode (no HDMI infoframes).
	DVI bool
}

// Device is one transmitter on an I²C bus.
type Device struct {
	bus  drivers.I2C
	addr uint16
	cfg  Config

	w [2]byte
	r [1]byte
}

// New only creates the Device; it does not touch the hardware.
func New(bus drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = Address
	}
	return &Device{bus: bus, addr: addr, cfg: cfg}
}

func (d *Device) read(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) write(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	return d.bus.Tx(d.addr, d.w[:2], nil)
}

func (d *Device) update(reg, clear, set byte) error {
	v, err := d.read(reg)
	if err != nil {
		return err
	}
	return d.write(reg, v&^clear|set)
}

// Revision reads the chip revision byte.
func (d *Device) Revision() (byte, error) { return d.read(regChipRevision) }

// Connected reports the hot-plug detect line.
func (d *Device) Connected() (bool, error) {
	v, err := d.read(regHPDStatus)
	return v&hpdBit != 0, err
}

// PowerOn leaves power down and reprograms the fixed registers.
func (d *Device) PowerOn(ctx context.Context) error {
	if d.cfg.RequireHotplug {
		ok, err := d.Connected()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoSink
		}
	}
	if err := d.update(regPowerDown, powerDownBit, 0); err != nil {
		return err
	}
	for _, rv := range powerUpSequence {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.write(rv[0], rv[1]); err != nil {
			return err
		}
	}
	var mode byte = hdmiModeBit
	if d.cfg.DVI {
		mode = 0
	}
	return d.update(regHDMIMode, hdmiModeBit, mode)
}

// PowerOff returns the transmitter to power down.
func (d *Device) PowerOff(ctx context.Context) error {
	return d.update(regPowerDown, 0, powerDownBit)
}
