package overlay

import (
	"testing"

	"mdp-go/drivers/mdp4"
)

func TestLayout(t *testing.T) {
	base, m, o := Layout(PathDTV, DefaultDTVConfig())
	if base != mdp4.DTVBase || m != mdp4.DTVMap || !o.UnderflowRecovery || o.Polarity != mdp4.PolarityByHeight {
		t.Fatalf("dtv: base=%#x opts=%+v", base, o)
	}

	base, m, o = Layout(PathLCDC, DefaultLCDCConfig(mdp4.GenMDP40))
	if base != mdp4.LCDCBaseMDP40 || m != mdp4.LCDCMap || !o.UnderflowRecovery {
		t.Fatalf("lcdc mdp40: base=%#x opts=%+v", base, o)
	}

	cfg := DefaultLCDCConfig(mdp4.GenMDP41)
	cfg.TimingBase = 0xF0000
	cfg.FirstPixelX = 3
	base, _, o = Layout(PathLCDC, cfg)
	if base != 0xF0000 || o.FirstPixelX != 3 || o.UnderflowRecovery {
		t.Fatalf("lcdc override: base=%#x opts=%+v", base, o)
	}
}
