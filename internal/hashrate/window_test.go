package hashrate

import (
	"testing"
	"time"
)

func TestWindow_HashrateUndefinedBeforeTwoSamples(t *testing.T) {
	w := NewWindow(5 * time.Minute)
	base := time.Now()

	if _, ok := w.Hashrate(base); ok {
		t.Fatalf("expected undefined hashrate with zero samples")
	}

	w.Add(1024, base)
	if _, ok := w.Hashrate(base); ok {
		t.Fatalf("expected undefined hashrate with one sample")
	}
}

func TestWindow_HashrateUsesActualSpanNotFixedDuration(t *testing.T) {
	w := NewWindow(5 * time.Minute)
	base := time.Now()

	w.Add(1000, base)
	w.Add(1000, base.Add(10*time.Second))

	got, ok := w.Hashrate(base.Add(10 * time.Second))
	if !ok {
		t.Fatalf("expected defined hashrate with two samples")
	}
	want := 2000 * Diff1Target / 10
	if diff := got - want; diff > 1 || diff < -1 {
		t.Fatalf("hashrate = %v, want %v", got, want)
	}
}

func TestWindow_EvictsSamplesOutsideSpan(t *testing.T) {
	w := NewWindow(1 * time.Minute)
	base := time.Now()

	w.Add(1000, base)
	w.Add(1000, base.Add(5*time.Second))

	if n := w.SampleCount(base.Add(2 * time.Minute)); n != 0 {
		t.Fatalf("expected both samples evicted, got %d remaining", n)
	}
}

func TestFormatUnit_PicksLargestUnit(t *testing.T) {
	cases := []struct {
		in       float64
		wantUnit string
	}{
		{500, "H/s"},
		{1500, "KH/s"},
		{2_500_000, "MH/s"},
		{3_500_000_000, "GH/s"},
		{4_500_000_000_000, "TH/s"},
	}
	for _, c := range cases {
		_, unit := FormatUnit(c.in)
		if unit != c.wantUnit {
			t.Errorf("FormatUnit(%v) unit = %s, want %s", c.in, unit, c.wantUnit)
		}
	}
}
