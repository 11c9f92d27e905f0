package pipeline

import (
	"runtime"
	"testing"
)

func float64p(v float64) *float64 { return &v }
func intp(v int) *int             { return &v }

func TestResolveDefaults(t *testing.T) {
	s := Params{}.Resolve()
	want := Settings{
		MinNormalDiff: DefaultMinNormalDiff,
		MaxDist:       DefaultMaxDist,
		OutlierRatio:  DefaultOutlierRatio,
		MinNumPoints:  DefaultMinNumPoints,
		NumNeighbors:  DefaultNumNeighbors,
		Workers:       runtime.NumCPU(),
	}
	if s != want {
		t.Errorf("Resolve() = %+v, want %+v", s, want)
	}
}

// Overriding one parameter must leave every other at its default.
func TestResolveIndependentOverrides(t *testing.T) {
	base := Params{}.Resolve()

	s := Params{OutlierRatio: float64p(0.5)}.Resolve()
	if s.OutlierRatio != 0.5 {
		t.Errorf("OutlierRatio = %v, want 0.5", s.OutlierRatio)
	}
	s.OutlierRatio = base.OutlierRatio
	if s != base {
		t.Errorf("overriding OutlierRatio changed other settings: %+v", s)
	}

	s = Params{MinNumPoints: intp(100), NumNeighbors: intp(20)}.Resolve()
	if s.MinNumPoints != 100 || s.NumNeighbors != 20 {
		t.Errorf("int overrides not applied: %+v", s)
	}
	if s.MinNormalDiff != base.MinNormalDiff || s.MaxDist != base.MaxDist {
		t.Errorf("thresholds changed by unrelated overrides: %+v", s)
	}
}

// Out-of-range values pass through untouched; the caller owns validation.
func TestResolveNoValidation(t *testing.T) {
	s := Params{
		MinNormalDiff: float64p(-10),
		OutlierRatio:  float64p(2),
	}.Resolve()
	if s.MinNormalDiff != -10 || s.OutlierRatio != 2 {
		t.Errorf("values were altered: %+v", s)
	}
}

func TestResolveWorkers(t *testing.T) {
	if s := (Params{Workers: 3}).Resolve(); s.Workers != 3 {
		t.Errorf("Workers = %d, want 3", s.Workers)
	}
	if s := (Params{Workers: -1}).Resolve(); s.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want NumCPU for non-positive input", s.Workers)
	}
}
