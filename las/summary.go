package las

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/lascodec/pointcloud"
)

// summary accumulates the statistics a writer patches into the header.
type summary struct {
	count    uint64
	min, max [3]int32
	byReturn [16]uint64
}

func newSummary() summary {
	return summary{
		min: [3]int32{math.MaxInt32, math.MaxInt32, math.MaxInt32},
		max: [3]int32{math.MinInt32, math.MinInt32, math.MinInt32},
	}
}

func (s *summary) add(r *Record) {
	s.count++
	for i, v := range [3]int32{r.X, r.Y, r.Z} {
		s.min[i] = min(s.min[i], v)
		s.max[i] = max(s.max[i], v)
	}
	s.byReturn[r.ReturnNumber&0xF]++
}

// extent returns the min and max corners in world units, or zero vectors when nothing was added.
func (s *summary) extent(q pointcloud.Quantization) (minPt, maxPt r3.Vector) {
	if s.count == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	return q.Decode(s.min[0], s.min[1], s.min[2]), q.Decode(s.max[0], s.max[1], s.max[2])
}
