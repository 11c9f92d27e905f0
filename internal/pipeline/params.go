// Package pipeline wires the detection stages together: binary read,
// spatial index, neighbor graph, normal estimation, plane detection, and
// the ranked report.
package pipeline

import (
	"runtime"

	"github.com/surface-data/planedetect/internal/rspd"
)

// Documented pipeline defaults. The threshold values intentionally equal
// the detector's built-in defaults (rspd package constants); only
// explicitly overridden parameters are ever pushed into the detector, so
// the two sets must not diverge.
const (
	DefaultMinNormalDiff = rspd.DefaultMinNormalDiffDeg
	DefaultMaxDist       = rspd.DefaultMaxDistDeg
	DefaultOutlierRatio  = rspd.DefaultOutlierRatio
	DefaultMinNumPoints  = 30
	DefaultNumNeighbors  = 75
)

// Params carries caller overrides for a detection run. A nil field means
// "use the default"; each field is independent of the others. Values are
// passed through without domain validation, matching the detector's
// contract.
type Params struct {
	MinNormalDiff *float64 // degrees
	MaxDist       *float64 // degrees
	OutlierRatio  *float64 // fraction in [0,1]
	MinNumPoints  *int
	NumNeighbors  *int

	// Workers sizes the neighbor-query worker pool. Zero or negative
	// selects runtime.NumCPU(). Not a detection parameter: it never
	// changes results, only scheduling.
	Workers int
}

// Settings is a fully resolved parameter set.
type Settings struct {
	MinNormalDiff float64
	MaxDist       float64
	OutlierRatio  float64
	MinNumPoints  int
	NumNeighbors  int
	Workers       int
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		MinNormalDiff: DefaultMinNormalDiff,
		MaxDist:       DefaultMaxDist,
		OutlierRatio:  DefaultOutlierRatio,
		MinNumPoints:  DefaultMinNumPoints,
		NumNeighbors:  DefaultNumNeighbors,
		Workers:       runtime.NumCPU(),
	}
}

// Resolve merges the overrides against the defaults. Each override
// replaces exactly its own field.
func (p Params) Resolve() Settings {
	s := DefaultSettings()
	if p.MinNormalDiff != nil {
		s.MinNormalDiff = *p.MinNormalDiff
	}
	if p.MaxDist != nil {
		s.MaxDist = *p.MaxDist
	}
	if p.OutlierRatio != nil {
		s.OutlierRatio = *p.OutlierRatio
	}
	if p.MinNumPoints != nil {
		s.MinNumPoints = *p.MinNumPoints
	}
	if p.NumNeighbors != nil {
		s.NumNeighbors = *p.NumNeighbors
	}
	if p.Workers > 0 {
		s.Workers = p.Workers
	}
	return s
}
