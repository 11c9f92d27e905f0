package cloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/surface-data/planedetect/internal/geom"
)

// Point wire format: each record is three little-endian IEEE-754 float32
// values (x, y, z), 12 bytes total, in row-major raster order. Values are
// widened to float64 on read. Coordinates are not validated; NaN and Inf
// pass through unchanged.
const (
	coordSize       = 4
	coordsPerRecord = 3

	// RecordSize is the wire size of one point record in bytes.
	RecordSize = coordSize * coordsPerRecord
)

// TruncatedInputError reports that the input stream ended before all
// expected point records could be read. Record is the 0-based index of the
// first record that could not be fully read.
type TruncatedInputError struct {
	Record int // index of the first incomplete record
	Want   int // total records expected
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("truncated point stream: record %d of %d could not be read", e.Record, e.Want)
}

// ReadPointCloud reads exactly count point records from r and returns the
// resulting PointCloud in stream order. On a short read it returns a
// *TruncatedInputError and no partial cloud.
func ReadPointCloud(r io.Reader, count int) (*PointCloud, error) {
	if count < 0 {
		return nil, fmt.Errorf("negative point count %d", count)
	}

	br := bufio.NewReader(r)
	points := make([]geom.Vec3, 0, count)
	var buf [RecordSize]byte

	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, &TruncatedInputError{Record: i, Want: count}
		}
		points = append(points, geom.Vec3{
			float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))),
		})
	}

	return NewPointCloud(points), nil
}

// AppendRecord appends the wire encoding of one point to dst. The float64
// coordinates are narrowed to float32, matching the input format. Used by
// tests and tools that synthesize streams.
func AppendRecord(dst []byte, p geom.Vec3) []byte {
	for d := 0; d < 3; d++ {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(p[d])))
	}
	return dst
}
