package specfold

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DatasetConfig configures dataset construction. Spectrum and Response are
// required; Background and Ancillary are optional.
type DatasetConfig struct {
	Spectrum   *Spectrum
	Background *Spectrum
	Response   *Response
	Ancillary  *Ancillary

	// Warnf receives warning-level diagnostics (non-contiguous channels,
	// unit mismatches). nil means log.Printf.
	Warnf func(format string, args ...any)
}

// Dataset owns one detector's energy axis, response matrix, model domain and
// per-channel inclusion mask. It is constructed once from parsed inputs and
// mutated in place by masking, dropping, regrouping, background subtraction
// and normalization. All mutation must be complete before the dataset backs
// a fitting configuration.
type Dataset struct {
	Spectrum   *Spectrum
	Background *Spectrum
	Response   *Response
	Ancillary  *Ancillary

	// EnergyLow and EnergyHigh are the per-channel energy edges derived from
	// the channel-to-energy mapping.
	EnergyLow  []float64
	EnergyHigh []float64

	// Domain is the energy-bin-edge grid models are evaluated on. It
	// defaults to the response's model-energy axis and may be replaced with
	// a finer grid via SetDomain.
	Domain []float64

	// Mask marks the channels included in the fit objective.
	Mask []bool

	warnf func(format string, args ...any)
}

// NewDataset builds a dataset from parsed spectral inputs. Count spectra are
// converted to rates using their exposure time; the per-channel energy axis
// is derived by aligning the data channels against the response channels.
func NewDataset(cfg DatasetConfig) (*Dataset, error) {
	if cfg.Spectrum == nil || cfg.Response == nil {
		return nil, fmt.Errorf("%w: dataset requires a spectrum and a response", ErrShapeMismatch)
	}
	warnf := cfg.Warnf
	if warnf == nil {
		warnf = log.Printf
	}

	spec, bg, resp := cfg.Spectrum, cfg.Background, cfg.Response
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, err
	}
	if resp.NumChannels() != spec.NumChannels() {
		return nil, fmt.Errorf("%w: spectrum has %d channels, response has %d",
			ErrShapeMismatch, spec.NumChannels(), resp.NumChannels())
	}
	if bg != nil {
		if err := bg.validate(); err != nil {
			return nil, err
		}
		if bg.NumChannels() != spec.NumChannels() {
			return nil, fmt.Errorf("%w: background has %d channels, spectrum has %d",
				ErrShapeMismatch, bg.NumChannels(), spec.NumChannels())
		}
	}
	if cfg.Ancillary != nil && len(cfg.Ancillary.Area) != resp.NumEnergyBins() {
		return nil, fmt.Errorf("%w: ancillary has %d bins, response has %d",
			ErrShapeMismatch, len(cfg.Ancillary.Area), resp.NumEnergyBins())
	}

	if err := spec.ConvertToRate(); err != nil {
		return nil, err
	}
	if bg != nil {
		if err := bg.ConvertToRate(); err != nil {
			return nil, err
		}
	}

	edges, err := AugmentedEnergyChannels(spec.Channels, resp.Channels, resp.ChannelEnergyLow, resp.ChannelEnergyHigh, warnf)
	if err != nil {
		return nil, err
	}

	n := spec.NumChannels()
	low := make([]float64, n)
	high := make([]float64, n)
	copy(low, edges[:n])
	copy(high, edges[1:])

	domain := make([]float64, resp.NumEnergyBins()+1)
	copy(domain, resp.EnergyLow)
	domain[len(domain)-1] = resp.EnergyHigh[len(resp.EnergyHigh)-1]

	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}

	return &Dataset{
		Spectrum:   spec,
		Background: bg,
		Response:   resp,
		Ancillary:  cfg.Ancillary,
		EnergyLow:  low,
		EnergyHigh: high,
		Domain:     domain,
		Mask:       mask,
		warnf:      warnf,
	}, nil
}

// NumChannels returns the current channel count.
func (d *Dataset) NumChannels() int { return len(d.Mask) }

// NumActive returns the number of channels included in the fit objective.
func (d *Dataset) NumActive() int {
	n := 0
	for _, m := range d.Mask {
		if m {
			n++
		}
	}
	return n
}

// HasBackground reports whether a background spectrum is present.
func (d *Dataset) HasBackground() bool { return d.Background != nil }

// HasAncillary reports whether an ancillary response is present.
func (d *Dataset) HasAncillary() bool { return d.Ancillary != nil }

// MaskEnergies excludes every channel for which neither the low nor the high
// energy edge satisfies pred. A channel survives if either endpoint
// satisfies the predicate. The mask only ever shrinks: channels already
// excluded stay excluded. Returns the dataset for chaining.
func (d *Dataset) MaskEnergies(pred func(e float64) bool) *Dataset {
	for i := range d.Mask {
		if !pred(d.EnergyLow[i]) && !pred(d.EnergyHigh[i]) {
			d.Mask[i] = false
		}
	}
	return d
}

// RestrictDomain excludes channels whose energy range lies entirely outside
// the inclusive window [low, high]. Returns the dataset for chaining.
func (d *Dataset) RestrictDomain(low, high float64) *Dataset {
	return d.MaskEnergies(func(e float64) bool { return low <= e && e <= high })
}

// DropBadChannels physically removes channels whose quality flag is not
// good, returning the number removed.
func (d *Dataset) DropBadChannels() int {
	var indices []int
	for i, q := range d.Spectrum.Quality {
		if q != QualityGood {
			indices = append(indices, i)
		}
	}
	return d.DropChannels(indices)
}

// DropNegativeChannels physically removes channels with negative data,
// returning the number removed.
func (d *Dataset) DropNegativeChannels() int {
	var indices []int
	for i, v := range d.Spectrum.Data {
		if v < 0 {
			indices = append(indices, i)
		}
	}
	return d.DropChannels(indices)
}

// DropChannels physically removes the listed channel indices from the
// spectrum, background, response, mask and energy axes, keeping all
// per-channel arrays consistent. Out-of-range and duplicate indices are
// ignored. Returns the number of channels removed.
func (d *Dataset) DropChannels(indices []int) int {
	n := d.NumChannels()
	drop := make([]bool, n)
	removed := 0
	for _, i := range indices {
		if i >= 0 && i < n && !drop[i] {
			drop[i] = true
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	d.Spectrum.dropChannels(drop)
	if d.Background != nil {
		d.Background.dropChannels(drop)
	}
	d.Response.dropChannels(drop)
	d.EnergyLow = compactFloats(d.EnergyLow, drop)
	d.EnergyHigh = compactFloats(d.EnergyHigh, drop)
	d.Mask = compactBools(d.Mask, drop)

	return removed
}

// Regroup merges adjacent channels according to the grouping flags
// (GroupStart begins a bin, GroupContinue extends it), shrinking the
// spectrum, background, response and energy axes to the new channel count.
// Each group's energy range spans its first member's low edge to its last
// member's high edge. The mask resets to all-included, so Regroup must be
// called before any masking.
func (d *Dataset) Regroup(grouping []int) error {
	if len(grouping) != d.NumChannels() {
		return fmt.Errorf("%w: grouping length %d for %d channels", ErrShapeMismatch, len(grouping), d.NumChannels())
	}

	if err := d.Spectrum.regroup(grouping); err != nil {
		return err
	}
	if d.Background != nil {
		if err := d.Background.regroup(grouping); err != nil {
			return err
		}
	}
	if err := d.Response.regroup(grouping); err != nil {
		return err
	}

	var low, high []float64
	for i, g := range grouping {
		if g != GroupContinue || i == 0 {
			low = append(low, d.EnergyLow[i])
			high = append(high, d.EnergyHigh[i])
			continue
		}
		high[len(high)-1] = d.EnergyHigh[i]
	}
	d.EnergyLow = low
	d.EnergyHigh = high

	d.Mask = make([]bool, len(low))
	for i := range d.Mask {
		d.Mask[i] = true
	}
	return nil
}

// Normalize converts the spectrum (and background, if present) to
// rate-per-energy-width units by dividing data and errors by the channel
// bin widths. Spectra already in rate-density units are left untouched.
func (d *Dataset) Normalize() error {
	if err := d.normalizeSpectrum(d.Spectrum); err != nil {
		return err
	}
	if d.Background != nil {
		if err := d.normalizeSpectrum(d.Background); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) normalizeSpectrum(s *Spectrum) error {
	if s.Units == UnitsRateDensity {
		return nil
	}
	// The exposure-time rate conversion happens at construction, but a
	// caller-built spectrum may still carry counts.
	if err := s.ConvertToRate(); err != nil {
		return err
	}
	if s.NumChannels() != d.NumChannels() {
		return fmt.Errorf("%w: spectrum has %d channels, dataset has %d", ErrShapeMismatch, s.NumChannels(), d.NumChannels())
	}
	for i := range s.Data {
		w := d.EnergyHigh[i] - d.EnergyLow[i]
		s.Data[i] /= w
		s.Errors[i] /= w
	}
	s.Units = UnitsRateDensity
	return nil
}

// SubtractBackground subtracts the background rate from the spectrum rate
// with quadrature error propagation, then discards the background. Returns
// ErrMissingBackground if no background is present.
func (d *Dataset) SubtractBackground() error {
	if d.Background == nil {
		return ErrMissingBackground
	}
	if d.Background.Units != d.Spectrum.Units {
		return fmt.Errorf("%w: background in %s, spectrum in %s", ErrShapeMismatch, d.Background.Units, d.Spectrum.Units)
	}

	floats.Sub(d.Spectrum.Data, d.Background.Data)
	for i := range d.Spectrum.Errors {
		se, be := d.Spectrum.Errors[i], d.Background.Errors[i]
		d.Spectrum.Errors[i] = math.Sqrt(se*se + be*be)
	}
	d.Background = nil
	return nil
}

// SetDomain replaces the energy grid models are evaluated on. The grid must
// be a strictly increasing edge sequence of at least two entries.
func (d *Dataset) SetDomain(domain []float64) error {
	if len(domain) < 2 {
		return fmt.Errorf("%w: domain needs at least 2 edges, got %d", ErrShapeMismatch, len(domain))
	}
	for i := 1; i < len(domain); i++ {
		if domain[i] <= domain[i-1] {
			return fmt.Errorf("%w: domain edges must be strictly increasing at index %d", ErrShapeMismatch, i)
		}
	}
	d.Domain = domain
	return nil
}

// BinWidths returns the energy widths of the active channels. This is the
// normalization divisor everywhere flux densities are computed.
func (d *Dataset) BinWidths() []float64 {
	out := make([]float64, 0, d.NumActive())
	for i, m := range d.Mask {
		if m {
			out = append(out, d.EnergyHigh[i]-d.EnergyLow[i])
		}
	}
	return out
}

// SpectrumEnergy returns the energy midpoints of the active channels.
func (d *Dataset) SpectrumEnergy() []float64 {
	out := make([]float64, 0, d.NumActive())
	for i, m := range d.Mask {
		if m {
			out = append(out, (d.EnergyLow[i]+d.EnergyHigh[i])/2)
		}
	}
	return out
}

// Objective returns the active-masked observed rate density. A warning is
// emitted if the spectrum is not yet in rate-density units; call Normalize
// first.
func (d *Dataset) Objective() []float64 {
	if d.Spectrum.Units != UnitsRateDensity {
		d.warnf("specfold: objective extracted in %s units; call Normalize first", d.Spectrum.Units)
	}
	out := make([]float64, 0, d.NumActive())
	for i, m := range d.Mask {
		if m {
			out = append(out, d.Spectrum.Data[i])
		}
	}
	return out
}

// Variance returns the active-masked squared errors.
func (d *Dataset) Variance() []float64 {
	out := make([]float64, 0, d.NumActive())
	for i, m := range d.Mask {
		if m {
			out = append(out, d.Spectrum.Errors[i]*d.Spectrum.Errors[i])
		}
	}
	return out
}

// ActiveMatrix returns the ancillary-corrected response matrix restricted to
// the active channels. The result is a fresh matrix; mutating the dataset
// afterwards does not update it.
func (d *Dataset) ActiveMatrix() (*mat.Dense, error) {
	corrected, err := d.Response.Corrected(d.Ancillary)
	if err != nil {
		return nil, err
	}
	if d.NumActive() == d.NumChannels() {
		return corrected, nil
	}
	_, cols := corrected.Dims()
	out := mat.NewDense(d.NumActive(), cols, nil)
	ri := 0
	for i, m := range d.Mask {
		if !m {
			continue
		}
		out.SetRow(ri, corrected.RawRowView(i))
		ri++
	}
	return out, nil
}

// Clone returns a deep copy of the dataset. One dataset instance backs
// exactly one fit configuration at a time; clone before reusing.
func (d *Dataset) Clone() *Dataset {
	out := *d
	out.Spectrum = d.Spectrum.Clone()
	if d.Background != nil {
		out.Background = d.Background.Clone()
	}
	if d.Response != nil {
		r := *d.Response
		r.Matrix = mat.DenseCopyOf(d.Response.Matrix)
		r.Channels = append([]int(nil), d.Response.Channels...)
		r.ChannelEnergyLow = append([]float64(nil), d.Response.ChannelEnergyLow...)
		r.ChannelEnergyHigh = append([]float64(nil), d.Response.ChannelEnergyHigh...)
		r.EnergyLow = append([]float64(nil), d.Response.EnergyLow...)
		r.EnergyHigh = append([]float64(nil), d.Response.EnergyHigh...)
		out.Response = &r
	}
	out.EnergyLow = append([]float64(nil), d.EnergyLow...)
	out.EnergyHigh = append([]float64(nil), d.EnergyHigh...)
	out.Domain = append([]float64(nil), d.Domain...)
	out.Mask = append([]bool(nil), d.Mask...)
	return &out
}
