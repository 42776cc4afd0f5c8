//go:build linux

package mdp4

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem maps a physical register window through /dev/mem.
type DevMem struct {
	mem []byte
}

// OpenDevMem maps size bytes of physical address space starting at phys.
// phys must be page aligned.
func OpenDevMem(phys int64, size int) (*DevMem, error) {
	fd, err := unix.Open("/dev/mem", unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("mdp4: open /dev/mem: %w", err)
	}
	defer unix.Close(fd)
	mem, err := unix.Mmap(fd, phys, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mdp4: mmap %#x+%#x: %w", phys, size, err)
	}
	return &DevMem{mem: mem}, nil
}

func (d *DevMem) word(off uint32) *uint32 {
	if off&3 != 0 || int(off)+4 > len(d.mem) {
		panic(fmt.Sprintf("mdp4: register offset %#x outside mapped window", off))
	}
	return (*uint32)(unsafe.Pointer(&d.mem[off]))
}

func (d *DevMem) Read32(off uint32) uint32     { return atomic.LoadUint32(d.word(off)) }
func (d *DevMem) Write32(off uint32, v uint32) { atomic.StoreUint32(d.word(off), v) }

// Close unmaps the window.
func (d *DevMem) Close() error {
	if d.mem == nil {
		return nil
	}
	err := unix.Munmap(d.mem)
	d.mem = nil
	return err
}
