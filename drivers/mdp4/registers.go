// Package mdp4 provides register offsets, interrupt bits and the timing
// arithmetic for the MDP4 display processor's DTV and LCDC output blocks.
package mdp4

const (
	// --- Output timing blocks (offsets from the MDP register space) ---
	DTVBase       = 0xD0000
	LCDCBaseMDP40 = 0xC0000
	LCDCBaseMDP41 = 0xE0000

	// --- Top-level registers ---
	RegOverlay1Kick = 0x0008 // write 0: kick overlay 1 (blt mode)
	RegDisplayIntf  = 0x0038 // display interface selector, restored after reset
	RegIntrEnable   = 0x0050
	RegIntrStatus   = 0x0054
	RegIntrClear    = 0x0058 // write-1-to-clear
	RegDMAPAddr     = 0x90008
	RegDMAEAddr     = 0xB0008

	// --- Overlay processor 0 (mixer 0, feeds LCDC) ---
	OverlayProc0Base = 0x10000
	RegOverlay0Blt0  = OverlayProc0Base + 0x000C
	RegOverlay0Blt1  = OverlayProc0Base + 0x001C

	// --- Overlay processor 1 (mixer 1, feeds DTV) ---
	OverlayProc1Base     = 0x18000
	RegOverlay1Blt0      = OverlayProc1Base + 0x000C
	RegOverlay1Blt1      = OverlayProc1Base + 0x001C
	RegOverlay1BorderLSP = OverlayProc1Base + 0x5004 // 12-bit B<<16 | 12-bit G
	RegOverlay1BorderMSP = OverlayProc1Base + 0x5008 // 12-bit R

	// --- Bitfields ---
	ActiveStartXEnable = 1 << 31
	ActiveStartYEnable = 1 << 31
	UnderflowRecovery  = 0x80000000
)

// Intr is a bit in the shared interrupt enable/status/clear registers.
type Intr uint32

const (
	IntrOverlay0Done     Intr = 1 << 0
	IntrOverlay1Done     Intr = 1 << 1
	IntrDMASDone         Intr = 1 << 2
	IntrDMAEDone         Intr = 1 << 3
	IntrDMAPDone         Intr = 1 << 4
	IntrPrimaryVsync     Intr = 1 << 7
	IntrPrimaryUnderrun  Intr = 1 << 8
	IntrExternalVsync    Intr = 1 << 9
	IntrExternalUnderrun Intr = 1 << 10
)

// TimingMap lists the offsets of one output block's timing registers,
// relative to the block base. The two paths lay these out differently.
type TimingMap struct {
	Enable         uint32
	HsyncCtrl      uint32
	VsyncPeriod    uint32
	VsyncPulse     uint32
	DisplayHCtl    uint32
	DisplayVStart  uint32
	DisplayVEnd    uint32
	ActiveHCtl     uint32
	ActiveVStart   uint32
	ActiveVEnd     uint32
	BorderColor    uint32
	UnderflowColor uint32
	HsyncSkew      uint32
	CtlPolarity    uint32
}

var (
	DTVMap = TimingMap{
		Enable: 0x00, HsyncCtrl: 0x04, VsyncPeriod: 0x08, VsyncPulse: 0x0C,
		DisplayHCtl: 0x18, DisplayVStart: 0x1C, DisplayVEnd: 0x20,
		ActiveHCtl: 0x2C, ActiveVStart: 0x30, ActiveVEnd: 0x38,
		BorderColor: 0x40, UnderflowColor: 0x44, HsyncSkew: 0x48, CtlPolarity: 0x50,
	}
	LCDCMap = TimingMap{
		Enable: 0x00, HsyncCtrl: 0x04, VsyncPeriod: 0x08, VsyncPulse: 0x0C,
		DisplayHCtl: 0x10, DisplayVStart: 0x14, DisplayVEnd: 0x18,
		ActiveHCtl: 0x1C, ActiveVStart: 0x20, ActiveVEnd: 0x24,
		BorderColor: 0x28, UnderflowColor: 0x2C, HsyncSkew: 0x30, CtlPolarity: 0x38,
	}
)

// Program writes every timing word of r into b. The master enable register
// is not touched.
func (m TimingMap) Program(b Block, r TimingRegisters) {
	b.Write32(m.HsyncCtrl, r.HsyncCtrl)
	b.Write32(m.VsyncPeriod, r.VsyncPeriod)
	b.Write32(m.VsyncPulse, r.VsyncPulseTotal)
	b.Write32(m.DisplayHCtl, r.DisplayHCtl)
	b.Write32(m.DisplayVStart, r.DisplayVStart)
	b.Write32(m.DisplayVEnd, r.DisplayVEnd)
	b.Write32(m.BorderColor, r.BorderColor)
	b.Write32(m.UnderflowColor, r.UnderflowColor)
	b.Write32(m.HsyncSkew, r.HsyncSkew)
	b.Write32(m.CtlPolarity, r.CtlPolarity)
	b.Write32(m.ActiveHCtl, r.ActiveHCtl)
	b.Write32(m.ActiveVStart, r.ActiveVStart)
	b.Write32(m.ActiveVEnd, r.ActiveVEnd)
}

// Generation selects the per-silicon constants of the LCDC block.
type Generation uint8

const (
	GenMDP40 Generation = iota
	GenMDP41
)

func (g Generation) String() string {
	switch g {
	case GenMDP40:
		return "mdp40"
	case GenMDP41:
		return "mdp41"
	default:
		return "unknown"
	}
}

// LCDCBase is the LCDC timing block base on this generation.
func (g Generation) LCDCBase() uint32 {
	if g == GenMDP40 {
		return LCDCBaseMDP40
	}
	return LCDCBaseMDP41
}

// LCDCPolarity: MDP40 panels take active-low syncs.
func (g Generation) LCDCPolarity() PolarityRule {
	if g == GenMDP40 {
		return PolarityActiveLow
	}
	return PolarityActiveHigh
}

// LCDCUnderflowRecovery reports whether the LCDC underflow colour carries the
// recovery bit on this generation.
func (g Generation) LCDCUnderflowRecovery() bool { return g == GenMDP40 }
