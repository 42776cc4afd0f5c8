package simhw

import (
	"errors"
	"sync"
)

// I2C is a byte-register I²C target at one address, auto-incrementing on
// multi-byte writes. It satisfies tinygo.org/x/drivers.I2C.
type I2C struct {
	mu   sync.Mutex
	addr uint16
	regs map[byte]byte
}

var errNack = errors.New("simhw: i2c nack")

// NewI2C creates a target at addr with initial register values.
func NewI2C(addr uint16, init map[byte]byte) *I2C {
	regs := map[byte]byte{}
	for k, v := range init {
		regs[k] = v
	}
	return &I2C{addr: addr, regs: regs}
}

// NewHDMITx is a transmitter in power down with a sink attached.
func NewHDMITx() *I2C {
	return NewI2C(0x39, map[byte]byte{0x00: 0x14, 0x41: 0x50, 0x42: 0x40})
}

func (b *I2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if addr != b.addr {
		return errNack
	}
	if len(w) == 0 {
		return nil
	}
	reg := w[0]
	for i, v := range w[1:] {
		b.regs[reg+byte(i)] = v
	}
	for i := range r {
		r[i] = b.regs[reg+byte(i)]
	}
	return nil
}

// Reg reads a register without bus traffic.
func (b *I2C) Reg(reg byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[reg]
}

// SPI records transmitted bytes. It satisfies tinygo.org/x/drivers.SPI.
type SPI struct {
	mu  sync.Mutex
	out []byte
}

func (s *SPI) Tx(w, r []byte) error {
	s.mu.Lock()
	s.out = append(s.out, w...)
	s.mu.Unlock()
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (s *SPI) Transfer(b byte) (byte, error) {
	return 0, s.Tx([]byte{b}, nil)
}

// Sent returns a copy of every byte written so far.
func (s *SPI) Sent() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.out...)
}
