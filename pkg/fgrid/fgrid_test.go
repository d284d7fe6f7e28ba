package fgrid

import (
	"testing"
)

func TestSetGet(t *testing.T) {
	g := New(4, 3)
	g.Set(3, 2, 42)
	if got := g.Get(3, 2); got != 42 {
		t.Errorf("got %f, want 42", got)
	}
	if g.Dx() != 4 || g.Dy() != 3 {
		t.Errorf("dimensions %dx%d, want 4x3", g.Dx(), g.Dy())
	}
}

func TestValuesRowMajor(t *testing.T) {
	g := New(3, 2)
	g.Set(2, 1, 9)
	if got := g.Values()[1*3+2]; got != 9 {
		t.Errorf("backing slice index 5 = %f, want 9", got)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	g1 := New(2, 2)
	g1.Set(0, 0, 5)
	g2 := g1.Copy()
	g2.Set(0, 0, 7)
	if g1.Get(0, 0) != 5 {
		t.Errorf("copy aliases the original")
	}
}

func TestSameSize(t *testing.T) {
	if !New(4, 3).SameSize(New(4, 3)) {
		t.Errorf("equal dimensions should match")
	}
	if New(4, 3).SameSize(New(3, 4)) {
		t.Errorf("transposed dimensions should not match")
	}
}

func TestSubScalarClamps(t *testing.T) {
	g := New(3, 1)
	g.Set(0, 0, 100)
	g.Set(1, 0, 10)
	g.Set(2, 0, 70000)

	g.SubScalar(50, 0, 65535)
	if got := g.Get(0, 0); got != 50 {
		t.Errorf("plain subtraction = %f, want 50", got)
	}
	if got := g.Get(1, 0); got != 0 {
		t.Errorf("underflow = %f, want clamp to 0", got)
	}
	if got := g.Get(2, 0); got != 65535 {
		t.Errorf("overflow = %f, want clamp to 65535", got)
	}
}

func TestSubGrid(t *testing.T) {
	g := New(2, 1)
	o := New(2, 1)
	g.Set(0, 0, 500)
	g.Set(1, 0, 100)
	o.Set(0, 0, 200)
	o.Set(1, 0, 300)

	g.SubGrid(o, 0, 65535)
	if got := g.Get(0, 0); got != 300 {
		t.Errorf("got %f, want 300", got)
	}
	if got := g.Get(1, 0); got != 0 {
		t.Errorf("got %f, want clamp to 0", got)
	}
}

func TestPercentileRange(t *testing.T) {
	g := New(10, 1)
	for i := 0; i < 10; i++ {
		g.Set(i, 0, float64(i*100))
	}

	lo, hi := g.PercentileRange(0.0, 1.0)
	if lo != 0 || hi != 900 {
		t.Errorf("full range = (%f,%f), want (0,900)", lo, hi)
	}

	lo, hi = g.PercentileRange(0.2, 0.8)
	if lo != 200 || hi != 800 {
		t.Errorf("trimmed range = (%f,%f), want (200,800)", lo, hi)
	}
}
