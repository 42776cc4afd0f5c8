package mdp4

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Block is a window of 32-bit memory-mapped registers addressed by byte
// offset. Writes are immediate and never block.
type Block interface {
	Read32(off uint32) uint32
	Write32(off uint32, v uint32)
}

// Window views a parent Block shifted by Base.
type Window struct {
	B    Block
	Base uint32
}

func (w Window) Read32(off uint32) uint32     { return w.B.Read32(w.Base + off) }
func (w Window) Write32(off uint32, v uint32) { w.B.Write32(w.Base+off, v) }

// Traced wraps b so that every write is read back and logged at debug level
// as tag[offset] => value [readback].
func Traced(b Block, log *zerolog.Logger, tag string) Block {
	return &traced{b: b, log: log, tag: tag}
}

type traced struct {
	b   Block
	log *zerolog.Logger
	tag string
}

func (t *traced) Read32(off uint32) uint32 { return t.b.Read32(off) }

func (t *traced) Write32(off uint32, v uint32) {
	t.b.Write32(off, v)
	in := t.b.Read32(off)
	t.log.Debug().Msgf("%s[%04x] => %08x [%08x]", t.tag, off, v, in)
}

// ---------------------------------------------------------------------------
// In-memory register file (host builds, simulation, tests)
// ---------------------------------------------------------------------------

// Write is one recorded register write.
type Write struct {
	Off uint32
	Val uint32
	At  time.Time
}

// RegFile is a sparse in-memory Block that records every write.
type RegFile struct {
	mu     sync.Mutex
	regs   map[uint32]uint32
	counts map[uint32]int
	log    []Write
}

func NewRegFile() *RegFile {
	return &RegFile{
		regs:   map[uint32]uint32{},
		counts: map[uint32]int{},
	}
}

func (f *RegFile) Read32(off uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[off]
}

func (f *RegFile) Write32(off uint32, v uint32) {
	f.mu.Lock()
	f.regs[off] = v
	f.counts[off]++
	f.log = append(f.log, Write{Off: off, Val: v, At: time.Now()})
	f.mu.Unlock()
}

// Poke sets a register without recording a write. Simulated hardware uses
// it for status bits the device raises on its own.
func (f *RegFile) Poke(off uint32, v uint32) {
	f.mu.Lock()
	f.regs[off] = v
	f.mu.Unlock()
}

// Update applies fn to a register atomically without recording a write.
func (f *RegFile) Update(off uint32, fn func(uint32) uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := fn(f.regs[off])
	f.regs[off] = v
	return v
}

// Writes reports how many times off has been written.
func (f *RegFile) Writes(off uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[off]
}

// Log returns a copy of the write log.
func (f *RegFile) Log() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.log...)
}

// ResetLog drops recorded writes and counts; register values are kept.
func (f *RegFile) ResetLog() {
	f.mu.Lock()
	f.log = nil
	f.counts = map[uint32]int{}
	f.mu.Unlock()
}
