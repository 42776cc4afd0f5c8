package mathx

import "testing"

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want uint32 }{
		{2000, 60, 34},
		{1000, 50, 20},
		{0, 7, 0},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := CeilDiv(c.a, c.b); got != c.want {
			t.Errorf("CeilDiv(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestRoundDiv(t *testing.T) {
	// 1080p60: 148.5 MHz over a 2200x1125 raster.
	if got := RoundDiv(uint64(148500000), 2200*1125); got != 60 {
		t.Fatalf("got %d", got)
	}
	if got := RoundDiv(uint64(5), 2); got != 3 {
		t.Fatalf("half rounds up: got %d", got)
	}
	if got := RoundDiv(uint64(5), 0); got != 0 {
		t.Fatalf("zero divisor: got %d", got)
	}
}
