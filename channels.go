package specfold

import (
	"fmt"
	"log"
	"math"
)

// contiguityTol is the floating tolerance used to decide whether two
// recorded channel edges are continuous.
const contiguityTol = 1e-6

// AugmentedEnergyChannels derives a contiguous energy-edge array for the
// data's channel numbering by aligning it against the response's channel
// numbering. The two numberings are assumed to correspond monotonically but
// may differ in offset.
//
// binsLow and binsHigh are the response's per-channel energy edges, aligned
// with respChannels. The returned array has len(dataChannels)+1 entries:
// entry i is the low edge of data channel i, entry i+1 its high edge.
//
// Returns ErrChannelMapping if a data channel has no match in the response
// channel list. If consecutive recorded edges are not continuous within
// tolerance, a warning is emitted through warnf (nil means log.Printf) and
// processing continues.
func AugmentedEnergyChannels(dataChannels, respChannels []int, binsLow, binsHigh []float64, warnf func(format string, args ...any)) ([]float64, error) {
	if len(respChannels) != len(binsLow) || len(binsLow) != len(binsHigh) {
		return nil, fmt.Errorf("%w: %d response channels, %d low edges, %d high edges",
			ErrShapeMismatch, len(respChannels), len(binsLow), len(binsHigh))
	}
	if warnf == nil {
		warnf = log.Printf
	}

	edges := make([]float64, len(dataChannels)+1)
	from := 0
	for i, c := range dataChannels {
		index := -1
		for j := from; j < len(respChannels); j++ {
			if respChannels[j] == c {
				index = j
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("%w: channel %d", ErrChannelMapping, c)
		}
		from = index

		if i > 0 && math.Abs(edges[i]-binsLow[index]) > contiguityTol {
			warnf("specfold: non-contiguous channels: %d ends at %g but %d starts at %g",
				dataChannels[i-1], edges[i], c, binsLow[index])
		}
		edges[i] = binsLow[index]
		edges[i+1] = binsHigh[index]
	}

	return edges, nil
}
