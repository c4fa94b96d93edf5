package specfold

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Response is a detector redistribution matrix: entry (i, j) gives the
// probability (times effective area) that a photon in model-energy bin j is
// recorded in channel i. The channel axis carries its own channel numbering
// and per-channel energy edges; the model axis carries the energy partition
// models are folded from.
type Response struct {
	Matrix   *mat.Dense // channels × model-energy bins
	Channels []int

	// Per-channel energy edges (the channel axis).
	ChannelEnergyLow  []float64
	ChannelEnergyHigh []float64

	// Per-model-bin energy edges (the model axis).
	EnergyLow  []float64
	EnergyHigh []float64
}

// Ancillary is an optional per-model-bin multiplicative effective-area
// correction, aligned with the response's model-energy axis.
type Ancillary struct {
	EnergyLow  []float64
	EnergyHigh []float64
	Area       []float64
}

// NumChannels returns the number of channels (matrix rows).
func (r *Response) NumChannels() int {
	rows, _ := r.Matrix.Dims()
	return rows
}

// NumEnergyBins returns the number of model-energy bins (matrix columns).
func (r *Response) NumEnergyBins() int {
	_, cols := r.Matrix.Dims()
	return cols
}

func (r *Response) validate() error {
	if r.Matrix == nil {
		return fmt.Errorf("%w: response has no matrix", ErrShapeMismatch)
	}
	rows, cols := r.Matrix.Dims()
	if len(r.Channels) != rows || len(r.ChannelEnergyLow) != rows || len(r.ChannelEnergyHigh) != rows {
		return fmt.Errorf("%w: response channel axis has %d rows but channels=%d low=%d high=%d",
			ErrShapeMismatch, rows, len(r.Channels), len(r.ChannelEnergyLow), len(r.ChannelEnergyHigh))
	}
	if len(r.EnergyLow) != cols || len(r.EnergyHigh) != cols {
		return fmt.Errorf("%w: response model axis has %d columns but low=%d high=%d",
			ErrShapeMismatch, cols, len(r.EnergyLow), len(r.EnergyHigh))
	}
	return nil
}

// Corrected returns a copy of the response matrix with the ancillary
// effective area folded in: column j is scaled by anc.Area[j]. The
// correction is parameter independent, so it is applied once here rather
// than per fold. A nil ancillary returns an uncorrected copy.
func (r *Response) Corrected(anc *Ancillary) (*mat.Dense, error) {
	rows, cols := r.Matrix.Dims()
	out := mat.DenseCopyOf(r.Matrix)
	if anc == nil {
		return out, nil
	}
	if len(anc.Area) != cols {
		return nil, fmt.Errorf("%w: ancillary has %d bins, response has %d", ErrShapeMismatch, len(anc.Area), cols)
	}
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := 0; j < cols; j++ {
			row[j] *= anc.Area[j]
		}
	}
	return out, nil
}

// dropChannels removes the matrix rows and channel-axis entries marked true
// in drop. The model axis is untouched.
func (r *Response) dropChannels(drop []bool) {
	rows, cols := r.Matrix.Dims()
	kept := 0
	for _, d := range drop {
		if !d {
			kept++
		}
	}
	m := mat.NewDense(kept, cols, nil)
	ri := 0
	for i := 0; i < rows; i++ {
		if drop[i] {
			continue
		}
		m.SetRow(ri, r.Matrix.RawRowView(i))
		ri++
	}
	r.Matrix = m
	r.Channels = compactInts(r.Channels, drop)
	r.ChannelEnergyLow = compactFloats(r.ChannelEnergyLow, drop)
	r.ChannelEnergyHigh = compactFloats(r.ChannelEnergyHigh, drop)
}

// regroup merges adjacent matrix rows according to the grouping flags. Each
// group takes its first member's channel number and low edge and its last
// member's high edge.
func (r *Response) regroup(grouping []int) error {
	rows, cols := r.Matrix.Dims()
	if len(grouping) != rows {
		return fmt.Errorf("%w: grouping length %d for %d response channels", ErrShapeMismatch, len(grouping), rows)
	}

	groups := 0
	for i, g := range grouping {
		if g != GroupContinue || i == 0 {
			groups++
		}
	}

	m := mat.NewDense(groups, cols, nil)
	channels := make([]int, 0, groups)
	low := make([]float64, 0, groups)
	high := make([]float64, 0, groups)

	gi := -1
	for i, g := range grouping {
		row := r.Matrix.RawRowView(i)
		if g != GroupContinue || i == 0 {
			gi++
			m.SetRow(gi, row)
			channels = append(channels, r.Channels[i])
			low = append(low, r.ChannelEnergyLow[i])
			high = append(high, r.ChannelEnergyHigh[i])
			continue
		}
		acc := m.RawRowView(gi)
		for j := 0; j < cols; j++ {
			acc[j] += row[j]
		}
		high[gi] = r.ChannelEnergyHigh[i]
	}

	r.Matrix = m
	r.Channels = channels
	r.ChannelEnergyLow = low
	r.ChannelEnergyHigh = high
	return nil
}
