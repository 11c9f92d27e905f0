package pipeline

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/surface-data/planedetect/internal/rspd"
)

// PlaneRecord is one detected plane in the external report format. Field
// names and layout match the JSON the downstream consumers already parse.
type PlaneRecord struct {
	Normal             [3]float64 `json:"normal"`
	Center             [3]float64 `json:"center"`
	BasisU             [3]float64 `json:"basisU"`
	BasisV             [3]float64 `json:"basisV"`
	DistanceFromOrigin float64    `json:"distanceFromOrigin"`
	InlierCount        int        `json:"inlierCount"`
}

// Report is the ordered sequence of detected planes, largest first.
type Report []PlaneRecord

// BuildReport deduplicates the detector's result set by pointer identity,
// ranks it by descending inlier count, and converts it to records. The
// sort is stable, so planes with equal inlier counts keep the detector's
// deterministic emission order — the documented tiebreak.
func BuildReport(planes []*rspd.Plane) Report {
	unique := planes[:0:0]
	seen := make(map[*rspd.Plane]struct{}, len(planes))
	for _, p := range planes {
		if p == nil {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return len(unique[i].Inliers) > len(unique[j].Inliers)
	})

	report := make(Report, 0, len(unique))
	for _, p := range unique {
		report = append(report, PlaneRecord{
			Normal:             p.Normal,
			Center:             p.Center,
			BasisU:             p.BasisU,
			BasisV:             p.BasisV,
			DistanceFromOrigin: p.DistanceFromOrigin,
			InlierCount:        len(p.Inliers),
		})
	}
	return report
}

// WriteJSON serializes the report as an indented JSON array. An empty
// report serializes as []. encoding/json emits the shortest float
// representation that round-trips, so full precision is preserved.
func (r Report) WriteJSON(w io.Writer) error {
	if r == nil {
		r = Report{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
