package specfold

import "math/rand"

// fuzzPartition derives a valid rebinning scenario from fuzz input: a source
// partition of m bins with positive widths and non-negative fluxes, and a
// strictly coarser destination high-edge array built from every stride-th
// source edge. The destination ends exactly on the last source edge so that
// every source bin is reachable and total flux must be conserved.
func fuzzPartition(seed int64, m, stride int) (srcEdges, src, dstHigh []float64) {
	rng := rand.New(rand.NewSource(seed))

	srcEdges = make([]float64, m+1)
	src = make([]float64, m)
	e := rng.Float64()
	for i := 0; i < m; i++ {
		srcEdges[i] = e
		e += 1e-3 + rng.Float64()
		src[i] = rng.Float64() * 10
	}
	srcEdges[m] = e

	for i := stride; i < m; i += stride {
		dstHigh = append(dstHigh, srcEdges[i])
	}
	if len(dstHigh) == 0 || dstHigh[len(dstHigh)-1] != srcEdges[m] {
		dstHigh = append(dstHigh, srcEdges[m])
	}

	return srcEdges, src, dstHigh
}
