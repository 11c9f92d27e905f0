package cloud

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/surface-data/planedetect/internal/geom"
)

func encode(points []geom.Vec3) []byte {
	var buf []byte
	for _, p := range points {
		buf = AppendRecord(buf, p)
	}
	return buf
}

func TestReadPointCloudRoundTrip(t *testing.T) {
	want := []geom.Vec3{
		{0, 0, 0},
		{1.5, -2.25, 3.125},
		{-0.5, 100, -100},
		{0.1000000014901161, 0.2, 0.3}, // float32(0.1) widened
	}
	// Feed values representable in float32 so the round trip is bit-exact.
	in := make([]geom.Vec3, len(want))
	for i, p := range want {
		in[i] = geom.Vec3{
			float64(float32(p[0])),
			float64(float32(p[1])),
			float64(float32(p[2])),
		}
	}

	pc, err := ReadPointCloud(bytes.NewReader(encode(in)), len(in))
	if err != nil {
		t.Fatalf("ReadPointCloud: %v", err)
	}
	if pc.Len() != len(in) {
		t.Fatalf("Len = %d, want %d", pc.Len(), len(in))
	}
	for i := range in {
		if pc.At(i) != in[i] {
			t.Errorf("point %d = %v, want %v", i, pc.At(i), in[i])
		}
	}
}

func TestReadPointCloudTruncated(t *testing.T) {
	points := []geom.Vec3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	full := encode(points)

	cases := []struct {
		name       string
		data       []byte
		wantRecord int
	}{
		{"empty stream", nil, 0},
		{"mid-record cut", full[:RecordSize+5], 1},
		{"exact record boundary", full[:2*RecordSize], 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadPointCloud(bytes.NewReader(tc.data), 3)
			var trunc *TruncatedInputError
			if !errors.As(err, &trunc) {
				t.Fatalf("err = %v, want TruncatedInputError", err)
			}
			if trunc.Record != tc.wantRecord {
				t.Errorf("Record = %d, want %d", trunc.Record, tc.wantRecord)
			}
			if trunc.Want != 3 {
				t.Errorf("Want = %d, want 3", trunc.Want)
			}
		})
	}
}

func TestReadPointCloudPassesNaNThrough(t *testing.T) {
	data := encode([]geom.Vec3{{math.NaN(), 1, 2}})
	pc, err := ReadPointCloud(bytes.NewReader(data), 1)
	if err != nil {
		t.Fatalf("ReadPointCloud: %v", err)
	}
	p := pc.At(0)
	if !math.IsNaN(p[0]) {
		t.Errorf("p[0] = %v, want NaN passed through", p[0])
	}
	if p[1] != 1 || p[2] != 2 {
		t.Errorf("p = %v", p)
	}
}

func TestReadPointCloudZeroCount(t *testing.T) {
	pc, err := ReadPointCloud(bytes.NewReader(nil), 0)
	if err != nil {
		t.Fatalf("ReadPointCloud: %v", err)
	}
	if pc.Len() != 0 {
		t.Errorf("Len = %d, want 0", pc.Len())
	}
}
