package mdp4

import "testing"

func mode1080p() VideoTiming {
	return VideoTiming{
		Width: 1920, Height: 1080,
		HBackPorch: 148, HFrontPorch: 88, HSyncWidth: 44,
		VBackPorch: 36, VFrontPorch: 4, VSyncWidth: 5,
		PixelClockHz: 148_500_000,
	}
}

func TestCompute1080p(t *testing.T) {
	r := Compute(mode1080p(), TimingOptions{Polarity: PolarityByHeight, UnderflowRecovery: true})

	if want := uint32(2200<<16 | 44); r.HsyncCtrl != want {
		t.Errorf("HsyncCtrl=%#x want %#x", r.HsyncCtrl, want)
	}
	if r.VsyncPeriod != 2_475_000 {
		t.Errorf("VsyncPeriod=%d want 2475000", r.VsyncPeriod)
	}
	if r.VsyncPulseTotal != 5*2200 {
		t.Errorf("VsyncPulseTotal=%d want %d", r.VsyncPulseTotal, 5*2200)
	}
	if r.DisplayVStart != 90_200 {
		t.Errorf("DisplayVStart=%d want 90200", r.DisplayVStart)
	}
	if r.DisplayVEnd != 2_466_199 {
		t.Errorf("DisplayVEnd=%d want 2466199", r.DisplayVEnd)
	}
	if want := uint32((2200-88-1)<<16 | (44 + 148)); r.DisplayHCtl != want {
		t.Errorf("DisplayHCtl=%#x want %#x", r.DisplayHCtl, want)
	}
	if r.CtlPolarity != 0 {
		t.Errorf("CtlPolarity=%d want 0 for 1080 lines", r.CtlPolarity)
	}
	if r.UnderflowColor&UnderflowRecovery == 0 {
		t.Error("recovery bit not set")
	}
}

func TestActiveWindowDisabledWhenFullRaster(t *testing.T) {
	r := Compute(mode1080p(), TimingOptions{})
	if r.ActiveHCtl != 0 || r.ActiveVStart != 0 || r.ActiveVEnd != 0 {
		t.Fatalf("active window should be off: %#x %#x %#x", r.ActiveHCtl, r.ActiveVStart, r.ActiveVEnd)
	}
}

func TestActiveWindowSubRegion(t *testing.T) {
	m := mode1080p()
	m.DisplayWidth = 1280
	m.DisplayHeight = 720
	r := Compute(m, TimingOptions{FirstPixelX: 320, FirstPixelY: 180})

	if r.ActiveHCtl&ActiveStartXEnable == 0 {
		t.Fatal("x enable bit not set")
	}
	start := r.ActiveHCtl & 0xFFFF
	end := (r.ActiveHCtl &^ ActiveStartXEnable) >> 16
	if start != 44+148+320 {
		t.Errorf("active_h_start=%d want %d", start, 44+148+320)
	}
	if end != start+1280-1 {
		t.Errorf("active_h_end=%d want %d", end, start+1280-1)
	}

	if r.ActiveVStart&ActiveStartYEnable == 0 {
		t.Fatal("y enable bit not set")
	}
	vs := r.ActiveVStart &^ ActiveStartYEnable
	if want := uint32(90_200 + 180*2200); vs != want {
		t.Errorf("active_v_start=%d want %d", vs, want)
	}
	if want := vs + 720*2200 - 1; r.ActiveVEnd != want {
		t.Errorf("active_v_end=%d want %d", r.ActiveVEnd, want)
	}
}

func TestPolarityRules(t *testing.T) {
	ntsc := VideoTiming{Width: 720, Height: 480, HSyncWidth: 62, HBackPorch: 60, HFrontPorch: 16, VSyncWidth: 6, VBackPorch: 30, VFrontPorch: 9}
	cases := []struct {
		name string
		m    VideoTiming
		rule PolarityRule
		want uint32
	}{
		{"dtv 480p", ntsc, PolarityByHeight, 0b011},
		{"dtv 1080p", mode1080p(), PolarityByHeight, 0},
		{"lcdc mdp40", ntsc, GenMDP40.LCDCPolarity(), 0b011},
		{"lcdc mdp41", ntsc, GenMDP41.LCDCPolarity(), 0},
	}
	for _, tc := range cases {
		if got := Compute(tc.m, TimingOptions{Polarity: tc.rule}).CtlPolarity; got != tc.want {
			t.Errorf("%s: CtlPolarity=%03b want %03b", tc.name, got, tc.want)
		}
	}
}

func TestHsyncSkewShiftsVerticalWindow(t *testing.T) {
	m := mode1080p()
	m.HSyncSkew = 7
	r := Compute(m, TimingOptions{})
	if r.DisplayVStart != 90_207 || r.DisplayVEnd != 2_466_206 || r.HsyncSkew != 7 {
		t.Fatalf("skew not applied: %d %d %d", r.DisplayVStart, r.DisplayVEnd, r.HsyncSkew)
	}
}

func TestValidate(t *testing.T) {
	if err := mode1080p().Validate(); err != nil {
		t.Fatalf("valid mode rejected: %v", err)
	}
	m := mode1080p()
	m.DisplayWidth = 4000
	if err := m.Validate(); err != ErrWindowTooWide {
		t.Fatalf("got %v want ErrWindowTooWide", err)
	}
	if err := (VideoTiming{}).Validate(); err != ErrZeroSize {
		t.Fatalf("got %v want ErrZeroSize", err)
	}
}

func TestRefreshHz(t *testing.T) {
	if got := mode1080p().RefreshHz(); got != 60 {
		t.Fatalf("RefreshHz=%d want 60", got)
	}
}

func TestProgramUsesPathTable(t *testing.T) {
	r := Compute(mode1080p(), TimingOptions{})
	for _, m := range []TimingMap{DTVMap, LCDCMap} {
		f := NewRegFile()
		m.Program(f, r)
		if f.Read32(m.DisplayHCtl) != r.DisplayHCtl || f.Read32(m.CtlPolarity) != r.CtlPolarity {
			t.Fatalf("words not at table offsets: %+v", m)
		}
		if f.Writes(m.Enable) != 0 {
			t.Fatal("Program must not touch the master enable")
		}
		if n := len(f.Log()); n != 13 {
			t.Fatalf("wrote %d registers want 13", n)
		}
	}
}
