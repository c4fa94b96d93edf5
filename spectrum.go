package specfold

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// QualityGood marks a channel as usable for fitting. Non-zero flags follow
// the usual convention for bad or dubious channels.
const QualityGood = 0

// GroupStart and GroupContinue are the grouping flags: a channel either
// starts a new logical bin or continues the previous one.
const (
	GroupStart    = 1
	GroupContinue = -1
)

// Spectrum holds the parsed per-channel arrays of one spectral observation
// (source or background) as delivered by an upstream file reader. All
// slices have one entry per channel.
type Spectrum struct {
	Channels []int     `json:"channels"`
	Data     []float64 `json:"data"`
	Errors   []float64 `json:"errors"`
	Quality  []int     `json:"quality"`
	Grouping []int     `json:"grouping"`
	Exposure float64   `json:"exposure"` // seconds
	Units    Units     `json:"units"`
}

// NumChannels returns the number of channels in the spectrum.
func (s *Spectrum) NumChannels() int { return len(s.Data) }

// Clone returns a deep copy of the spectrum. Datasets must not share a
// spectrum across fits; clone first.
func (s *Spectrum) Clone() *Spectrum {
	out := *s
	out.Channels = append([]int(nil), s.Channels...)
	out.Data = append([]float64(nil), s.Data...)
	out.Errors = append([]float64(nil), s.Errors...)
	out.Quality = append([]int(nil), s.Quality...)
	out.Grouping = append([]int(nil), s.Grouping...)
	return &out
}

func (s *Spectrum) validate() error {
	n := len(s.Data)
	if len(s.Channels) != n || len(s.Errors) != n || len(s.Quality) != n || len(s.Grouping) != n {
		return fmt.Errorf("%w: spectrum arrays have lengths channels=%d data=%d errors=%d quality=%d grouping=%d",
			ErrShapeMismatch, len(s.Channels), n, len(s.Errors), len(s.Quality), len(s.Grouping))
	}
	return nil
}

// ConvertToRate rescales counts to a count rate by the exposure time.
// Spectra already in rate or rate-density units are left untouched.
func (s *Spectrum) ConvertToRate() error {
	if s.Units != UnitsCounts {
		return nil
	}
	if s.Exposure <= 0 {
		return fmt.Errorf("%w: exposure %g must be positive to convert counts to rate", ErrShapeMismatch, s.Exposure)
	}
	floats.Scale(1/s.Exposure, s.Data)
	floats.Scale(1/s.Exposure, s.Errors)
	s.Units = UnitsRate
	return nil
}

// dropChannels removes every channel marked true in drop, compacting all
// per-channel arrays in place.
func (s *Spectrum) dropChannels(drop []bool) {
	s.Channels = compactInts(s.Channels, drop)
	s.Data = compactFloats(s.Data, drop)
	s.Errors = compactFloats(s.Errors, drop)
	s.Quality = compactInts(s.Quality, drop)
	s.Grouping = compactInts(s.Grouping, drop)
}

// regroup merges adjacent channels according to the grouping flags: counts
// are summed, errors combined in quadrature, the group takes its first
// member's channel number and its worst member's quality flag. The
// spectrum's own grouping resets to one channel per group.
func (s *Spectrum) regroup(grouping []int) error {
	if len(grouping) != s.NumChannels() {
		return fmt.Errorf("%w: grouping length %d for %d channels", ErrShapeMismatch, len(grouping), s.NumChannels())
	}

	var (
		channels []int
		data     []float64
		sumsq    []float64
		quality  []int
	)
	for i, g := range grouping {
		if g != GroupContinue || i == 0 {
			channels = append(channels, s.Channels[i])
			data = append(data, s.Data[i])
			sumsq = append(sumsq, s.Errors[i]*s.Errors[i])
			quality = append(quality, s.Quality[i])
			continue
		}
		last := len(data) - 1
		data[last] += s.Data[i]
		sumsq[last] += s.Errors[i] * s.Errors[i]
		if s.Quality[i] > quality[last] {
			quality[last] = s.Quality[i]
		}
	}

	errs := sumsq
	for i, v := range sumsq {
		errs[i] = math.Sqrt(v)
	}

	s.Channels = channels
	s.Data = data
	s.Errors = errs
	s.Quality = quality
	s.Grouping = make([]int, len(data))
	for i := range s.Grouping {
		s.Grouping[i] = GroupStart
	}
	return nil
}

func compactFloats(a []float64, drop []bool) []float64 {
	out := a[:0]
	for i, v := range a {
		if !drop[i] {
			out = append(out, v)
		}
	}
	return out
}

func compactInts(a []int, drop []bool) []int {
	out := a[:0]
	for i, v := range a {
		if !drop[i] {
			out = append(out, v)
		}
	}
	return out
}

func compactBools(a []bool, drop []bool) []bool {
	out := a[:0]
	for i, v := range a {
		if !drop[i] {
			out = append(out, v)
		}
	}
	return out
}
