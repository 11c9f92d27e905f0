package pipeline

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/surface-data/planedetect/internal/cloud"
	"github.com/surface-data/planedetect/internal/knn"
	"github.com/surface-data/planedetect/internal/normals"
	"github.com/surface-data/planedetect/internal/rspd"
)

// Run executes one detection run: read width*height point records from r,
// build the spatial index and neighbor graph, estimate normals, detect
// planes, and return the ranked report.
//
// Stage order is strict: each stage completes before the next starts, and
// nothing is retried. Errors from the reader (truncated input) or the
// detector abort the run with no report. Stage timings go to the standard
// logger; callers that must keep stderr quiet redirect the logger.
func Run(r io.Reader, width, height int, params Params) (Report, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d: width and height must be positive", width, height)
	}
	s := params.Resolve()
	count := width * height

	t := time.Now()
	pc, err := cloud.ReadPointCloud(r, count)
	if err != nil {
		return nil, err
	}
	log.Printf("read %d points (%dx%d) in %v", pc.Len(), width, height, time.Since(t).Round(time.Microsecond))

	t = time.Now()
	index := knn.NewIndex(pc)
	log.Printf("built spatial index in %v", time.Since(t).Round(time.Microsecond))

	t = time.Now()
	graph := knn.BuildGraph(index, s.NumNeighbors, s.Workers)
	log.Printf("built neighbor graph (k=%d, workers=%d) in %v", s.NumNeighbors, s.Workers, time.Since(t).Round(time.Microsecond))

	t = time.Now()
	normalSet := normals.Estimate(pc, graph, s.Workers)
	log.Printf("estimated normals in %v", time.Since(t).Round(time.Microsecond))

	detector := rspd.NewDetector(pc, normalSet, graph, s.MinNumPoints)
	// Push only explicit overrides; unset thresholds keep the detector's
	// own built-in defaults.
	if params.MinNormalDiff != nil {
		detector.SetMinNormalDiff(*params.MinNormalDiff)
	}
	if params.MaxDist != nil {
		detector.SetMaxDist(*params.MaxDist)
	}
	if params.OutlierRatio != nil {
		detector.SetOutlierRatio(*params.OutlierRatio)
	}

	t = time.Now()
	planes, err := detector.Detect()
	if err != nil {
		return nil, fmt.Errorf("plane detection failed: %w", err)
	}
	log.Printf("detected %d planes in %v", len(planes), time.Since(t).Round(time.Microsecond))

	return BuildReport(planes), nil
}
