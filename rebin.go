package specfold

import "fmt"

// DownsampleRebin resamples a piecewise-constant flux from one energy
// partition onto a strictly coarser one, conserving integrated flux under
// partial-bin overlap.
//
// srcEdges holds the len(src)+1 ascending bin edges of the source partition.
// dstHigh holds the ascending high edges of the destination bins; dst must
// have len(dstHigh) elements and is overwritten.
//
// Destination edges at or below the first source edge are unreachable and
// their bins are left at zero. A source bin straddling a destination edge is
// split proportionally by sub-interval length, with the remainder carried
// into the following destination bin when one exists; flux with no
// destination bin to land in is dropped.
//
// Returns ErrRebinning unless the source partition has strictly more bins
// than the destination, and ErrShapeMismatch for inconsistent array lengths.
func DownsampleRebin(dst, srcEdges, src, dstHigh []float64) error {
	if len(srcEdges) != len(src)+1 {
		return fmt.Errorf("%w: %d source edges for %d source bins", ErrShapeMismatch, len(srcEdges), len(src))
	}
	if len(dst) != len(dstHigh) {
		return fmt.Errorf("%w: output length %d, destination bins %d", ErrShapeMismatch, len(dst), len(dstHigh))
	}
	if len(src) <= len(dstHigh) {
		return fmt.Errorf("%w: %d source bins onto %d destination bins", ErrRebinning, len(src), len(dstHigh))
	}

	for i := range dst {
		dst[i] = 0
	}

	// Destination edges that precede the whole source range are unreachable.
	start := 0
	for start < len(dstHigh) && dstHigh[start] <= srcEdges[0] {
		start++
	}

	cur := 0 // source edge cursor
	for t := start; t < len(dstHigh); t++ {
		eHigh := dstHigh[t]

		// First source edge at or above eHigh.
		next := cur
		for next < len(srcEdges) && srcEdges[next] < eHigh {
			next++
		}
		if next == len(srcEdges) {
			// Source exhausted; remaining destination bins stay as-is.
			break
		}

		// Whole source bins below the boundary bin.
		for j := cur; j < next-1; j++ {
			dst[t] += src[j]
		}

		// Split the boundary bin by fractional overlap. The remainder
		// carries forward into the next destination bin if there is one.
		if next > 0 {
			ratio := (eHigh - srcEdges[next-1]) / (srcEdges[next] - srcEdges[next-1])
			dst[t] += ratio * src[next-1]
			if t+1 < len(dst) {
				dst[t+1] += (1 - ratio) * src[next-1]
			}
		}
		cur = next
	}

	return nil
}

// Rebinned is the allocating variant of [DownsampleRebin]. It returns a new
// flux array aligned with dstHigh.
func Rebinned(srcEdges, src, dstHigh []float64) ([]float64, error) {
	dst := make([]float64, len(dstHigh))
	if err := DownsampleRebin(dst, srcEdges, src, dstHigh); err != nil {
		return nil, err
	}
	return dst, nil
}
