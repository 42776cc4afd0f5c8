package mdp4

import (
	"errors"
	"testing"

	"mdp-go/errcode"
)

func TestFormatForDepth(t *testing.T) {
	cases := map[uint32]PixelFormat{2: FormatRGB565, 3: FormatRGB888, 4: FormatARGB8888, 1: FormatARGB8888}
	for bpp, want := range cases {
		if got := FormatForDepth(bpp); got != want {
			t.Errorf("FormatForDepth(%d)=%v want %v", bpp, got, want)
		}
	}
}

func TestTypeOf(t *testing.T) {
	if pt, err := TypeOf(FormatRGB888); err != nil || pt != PipeRGB {
		t.Fatalf("rgb888: %v %v", pt, err)
	}
	if pt, err := TypeOf(FormatYCbCr420SP); err != nil || pt != PipeVG {
		t.Fatalf("nv12: %v %v", pt, err)
	}
	pt, err := TypeOf(FormatUnknown)
	if !errors.Is(err, errcode.FormatUnsupported) {
		t.Fatalf("unknown format: err=%v", err)
	}
	if pt != PipeRGB {
		t.Fatalf("fallback type=%v want rgb", pt)
	}
}

func TestParseFormat(t *testing.T) {
	for f := FormatRGB565; f <= FormatYCrCb420SP; f++ {
		got, ok := ParseFormat(f.String())
		if !ok || got != f {
			t.Errorf("ParseFormat(%q)=%v,%v", f.String(), got, ok)
		}
	}
	if _, ok := ParseFormat("unknown"); ok {
		t.Error("unknown must not parse")
	}
}
