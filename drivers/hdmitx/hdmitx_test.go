package hdmitx

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeI2C implements tinygo drivers.I2C over a byte register map.
type fakeI2C struct {
	mu   sync.Mutex
	regs map[byte]byte
	fail error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if addr != Address {
		return errors.New("nack")
	}
	if len(w) == 0 {
		return nil
	}
	reg := w[0]
	for i, b := range w[1:] {
		f.regs[reg+byte(i)] = b
	}
	for i := range r {
		r[i] = f.regs[reg+byte(i)]
	}
	return nil
}

func TestPowerCycle(t *testing.T) {
	bus := &fakeI2C{regs: map[byte]byte{regPowerDown: powerDownBit | 0x10}}
	d := New(bus, Config{})

	if err := d.PowerOn(context.Background()); err != nil {
		t.Fatalf("PowerOn: %v", err)
	}
	if bus.regs[regPowerDown] != 0x10 {
		t.Fatalf("power down reg=%#x want 0x10", bus.regs[regPowerDown])
	}
	if bus.regs[0x9D] != 0x61 || bus.regs[regHDMIMode]&hdmiModeBit == 0 {
		t.Fatal("power-up sequence not applied")
	}

	if err := d.PowerOff(context.Background()); err != nil {
		t.Fatalf("PowerOff: %v", err)
	}
	if bus.regs[regPowerDown] != powerDownBit|0x10 {
		t.Fatalf("power down reg=%#x", bus.regs[regPowerDown])
	}
}

func TestRequireHotplug(t *testing.T) {
	bus := &fakeI2C{regs: map[byte]byte{}}
	d := New(bus, Config{RequireHotplug: true})
	if err := d.PowerOn(context.Background()); !errors.Is(err, ErrNoSink) {
		t.Fatalf("got %v want ErrNoSink", err)
	}
	bus.regs[regHPDStatus] = hpdBit
	if err := d.PowerOn(context.Background()); err != nil {
		t.Fatalf("PowerOn with sink: %v", err)
	}
}

func TestBusErrorPropagates(t *testing.T) {
	boom := errors.New("bus stuck")
	d := New(&fakeI2C{regs: map[byte]byte{}, fail: boom}, Config{DVI: true})
	if err := d.PowerOn(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v want bus error", err)
	}
}
