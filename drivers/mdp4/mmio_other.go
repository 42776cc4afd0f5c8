//go:build !linux

package mdp4

import "mdp-go/errcode"

// DevMem is only available on linux.
type DevMem struct{}

func OpenDevMem(phys int64, size int) (*DevMem, error) {
	return nil, errcode.New(errcode.Unsupported, "devmem", "/dev/mem mapping needs linux")
}

func (d *DevMem) Read32(off uint32) uint32     { return 0 }
func (d *DevMem) Write32(off uint32, v uint32) {}
func (d *DevMem) Close() error                 { return nil }
