package pointcloud

import (
	"math"

	"github.com/pkg/errors"
)

// Merge folds src into dst so that dst approximates a uniform sample of both inputs.
//
// dstTotal and srcTotal are the number of points each buffer stands for, which may exceed the
// samples it actually holds. When both fit, src is appended. Otherwise dst is refilled to its
// capacity, taking from each side in proportion to its total, with the picks from each side
// evenly spaced and the two sides interleaved. Channel datatypes must match as for Copy.
func Merge(dst *Buffer, dstTotal int64, src *Buffer, srcTotal int64) error {
	if dst.schema.Len() != src.schema.Len() {
		return errors.Wrapf(ErrChannelMismatch, "%d channels vs %d", dst.schema.Len(), src.schema.Len())
	}
	for i := range dst.columns {
		if dt, st := dst.columns[i].dataType(), src.columns[i].dataType(); dt != st {
			return NewChannelMismatchError(i, dt, st)
		}
	}
	if dstTotal < int64(dst.count) || srcTotal < int64(src.count) {
		return errors.New("merge totals smaller than the samples held")
	}

	capacity := dst.length
	if dst.count+src.count <= capacity {
		return Copy(dst, dst.count, src, 0, src.count)
	}

	total := dstTotal + srcTotal
	numSrc := int(math.Round(float64(capacity) * float64(srcTotal) / float64(total)))
	numSrc = max(numSrc, capacity-dst.count)
	numSrc = min(numSrc, src.count)
	numDst := capacity - numSrc

	scratch := NewBuffer(dst.schema, capacity)
	di, si := 0, 0
	for k := 0; k < capacity; k++ {
		// Take from whichever side lags its share of the output.
		takeSrc := di >= numDst || (si < numSrc && int64(si)*int64(numDst) < int64(di)*int64(numSrc))
		if takeSrc {
			if err := Copy(scratch, k, src, pick(si, src.count, numSrc), 1); err != nil {
				return err
			}
			si++
		} else {
			if err := Copy(scratch, k, dst, pick(di, dst.count, numDst), 1); err != nil {
				return err
			}
			di++
		}
	}
	return Copy(dst, 0, scratch, 0, capacity)
}

// pick returns the i-th of n evenly spaced indices into [0, count).
func pick(i, count, n int) int {
	return int(int64(i) * int64(count) / int64(n))
}
