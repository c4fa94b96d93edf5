package specfold

import (
	"math"
	"testing"
)

// FuzzDownsampleRebin checks flux conservation: when the destination
// partition ends exactly on the last source edge and starts above the first,
// no flux may be dropped by the rebin.
func FuzzDownsampleRebin(f *testing.F) {
	f.Add(int64(1), uint8(8), uint8(2))
	f.Add(int64(42), uint8(100), uint8(7))
	f.Add(int64(-3), uint8(13), uint8(3))
	f.Add(int64(99), uint8(200), uint8(50))

	f.Fuzz(func(t *testing.T, seed int64, mRaw, strideRaw uint8) {
		m := 4 + int(mRaw)%200
		stride := 2 + int(strideRaw)%(m-2)

		srcEdges, src, dstHigh := fuzzPartition(seed, m, stride)

		dst := make([]float64, len(dstHigh))
		if err := DownsampleRebin(dst, srcEdges, src, dstHigh); err != nil {
			t.Fatalf("DownsampleRebin: %v", err)
		}

		var in, out float64
		for _, v := range src {
			in += v
		}
		for _, v := range dst {
			out += v
		}
		if math.Abs(in-out) > 1e-9*math.Max(1, in) {
			t.Errorf("flux not conserved: in=%g out=%g (m=%d stride=%d)", in, out, m, stride)
		}
	})
}
