package overlay

import (
	"time"

	"mdp-go/drivers/mdp4"
	"mdp-go/services/overlay/internal/framesync"
	"mdp-go/x/timex"
)

// profile is what differs between the two output paths, resolved once from
// the path and its Config.
type profile struct {
	name   string
	path   Path
	tag    string
	base   uint32
	regMap mdp4.TimingMap
	timing mdp4.TimingOptions

	overlayBlock PowerBlock

	doneIntr  mdp4.Intr
	extraDone mdp4.Intr // also completes the frame; 0 if none
	vsyncIntr mdp4.Intr
	dmaIntr   mdp4.Intr

	// submit waits on doneIntr under wait; LCDC waits on vsync.
	wait framesync.Policy

	bltReg0, bltReg1 uint32
	dmaAddrReg       uint32
	kickOverlay      bool

	panelGatesPower  bool
	releaseOnOff     bool
	busScale         bool
	resetRecovery    bool
	dmaCompletesDone bool
	settle           time.Duration
}

func newProfile(path Path, cfg Config) profile {
	switch path {
	case PathDTV:
		base := uint32(mdp4.DTVBase)
		if cfg.TimingBase != 0 {
			base = cfg.TimingBase
		}
		return profile{
			name:   "overlay.dtv",
			path:   PathDTV,
			tag:    "MDP-DTV",
			base:   base,
			regMap: mdp4.DTVMap,
			timing: mdp4.TimingOptions{
				FirstPixelX:       cfg.FirstPixelX,
				FirstPixelY:       cfg.FirstPixelY,
				Polarity:          mdp4.PolarityByHeight,
				UnderflowRecovery: true,
			},
			overlayBlock:     Overlay1Block,
			doneIntr:         mdp4.IntrOverlay1Done,
			vsyncIntr:        mdp4.IntrExternalVsync,
			dmaIntr:          mdp4.IntrDMAEDone,
			wait:             framesync.Policy{Kind: framesync.Bounded, Bound: timex.FrameBound(cfg.RefreshHz, 2)},
			bltReg0:          mdp4.RegOverlay1Blt0,
			bltReg1:          mdp4.RegOverlay1Blt1,
			dmaAddrReg:       mdp4.RegDMAEAddr,
			kickOverlay:      true,
			releaseOnOff:     true,
			dmaCompletesDone: true,
			settle:           cfg.SettleDelay,
		}
	default:
		base := cfg.Generation.LCDCBase()
		if cfg.TimingBase != 0 {
			base = cfg.TimingBase
		}
		return profile{
			name:   "overlay.lcdc",
			path:   PathLCDC,
			tag:    "MDP-LCDC",
			base:   base,
			regMap: mdp4.LCDCMap,
			timing: mdp4.TimingOptions{
				FirstPixelX:       cfg.FirstPixelX,
				FirstPixelY:       cfg.FirstPixelY,
				Polarity:          cfg.Generation.LCDCPolarity(),
				UnderflowRecovery: cfg.Generation.LCDCUnderflowRecovery(),
			},
			overlayBlock:    Overlay0Block,
			doneIntr:        mdp4.IntrPrimaryVsync,
			extraDone:       mdp4.IntrOverlay0Done,
			vsyncIntr:       mdp4.IntrPrimaryVsync,
			dmaIntr:         mdp4.IntrDMAPDone,
			wait:            framesync.Policy{Kind: framesync.Cancellable},
			bltReg0:         mdp4.RegOverlay0Blt0,
			bltReg1:         mdp4.RegOverlay0Blt1,
			dmaAddrReg:      mdp4.RegDMAPAddr,
			panelGatesPower: true,
			releaseOnOff:    cfg.ReleaseOnOff,
			busScale:        true,
			resetRecovery:   true,
			settle:          cfg.SettleDelay,
		}
	}
}

// Layout reports where the timing block for path lives and the options its
// words are computed with under cfg.
func Layout(path Path, cfg Config) (base uint32, m mdp4.TimingMap, o mdp4.TimingOptions) {
	pr := newProfile(path, cfg)
	return pr.base, pr.regMap, pr.timing
}
