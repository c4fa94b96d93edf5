package specfold_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/specfold/specfold"
)

func silentWarnf(string, ...any) {}

func makeSpectrum(n int) *specfold.Spectrum {
	s := &specfold.Spectrum{
		Channels: make([]int, n),
		Data:     make([]float64, n),
		Errors:   make([]float64, n),
		Quality:  make([]int, n),
		Grouping: make([]int, n),
		Exposure: 1,
		Units:    specfold.UnitsRate,
	}
	for i := 0; i < n; i++ {
		s.Channels[i] = i
		s.Data[i] = float64(i + 1)
		s.Errors[i] = 1
		s.Grouping[i] = specfold.GroupStart
	}
	return s
}

// makeResponse builds an identity response with unit-width channels: channel
// i covers [i, i+1] on both the channel and the model axis.
func makeResponse(n int) *specfold.Response {
	r := &specfold.Response{
		Matrix:            mat.NewDense(n, n, nil),
		Channels:          make([]int, n),
		ChannelEnergyLow:  make([]float64, n),
		ChannelEnergyHigh: make([]float64, n),
		EnergyLow:         make([]float64, n),
		EnergyHigh:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		r.Matrix.Set(i, i, 1)
		r.Channels[i] = i
		r.ChannelEnergyLow[i] = float64(i)
		r.ChannelEnergyHigh[i] = float64(i + 1)
		r.EnergyLow[i] = float64(i)
		r.EnergyHigh[i] = float64(i + 1)
	}
	return r
}

func makeDataset(t *testing.T, n int) *specfold.Dataset {
	t.Helper()
	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum: makeSpectrum(n),
		Response: makeResponse(n),
		Warnf:    silentWarnf,
	})
	require.NoError(t, err)
	return ds
}

// requireConsistent checks the length invariant that every mutator must
// maintain.
func requireConsistent(t *testing.T, ds *specfold.Dataset) {
	t.Helper()
	n := ds.NumChannels()
	require.Len(t, ds.EnergyLow, n)
	require.Len(t, ds.EnergyHigh, n)
	require.Len(t, ds.Mask, n)
	require.Equal(t, n, ds.Spectrum.NumChannels())
	require.Equal(t, n, ds.Response.NumChannels())
	if ds.HasBackground() {
		require.Equal(t, n, ds.Background.NumChannels())
	}
}

func TestNewDatasetValidation(t *testing.T) {
	_, err := specfold.NewDataset(specfold.DatasetConfig{Response: makeResponse(3)})
	require.ErrorIs(t, err, specfold.ErrShapeMismatch)

	_, err = specfold.NewDataset(specfold.DatasetConfig{
		Spectrum: makeSpectrum(4),
		Response: makeResponse(3),
	})
	require.ErrorIs(t, err, specfold.ErrShapeMismatch)

	_, err = specfold.NewDataset(specfold.DatasetConfig{
		Spectrum:   makeSpectrum(3),
		Response:   makeResponse(3),
		Background: makeSpectrum(2),
	})
	require.ErrorIs(t, err, specfold.ErrShapeMismatch)

	_, err = specfold.NewDataset(specfold.DatasetConfig{
		Spectrum:  makeSpectrum(3),
		Response:  makeResponse(3),
		Ancillary: &specfold.Ancillary{Area: []float64{1, 1}},
	})
	require.ErrorIs(t, err, specfold.ErrShapeMismatch)
}

func TestNewDatasetConvertsCounts(t *testing.T) {
	spec := makeSpectrum(3)
	spec.Units = specfold.UnitsCounts
	spec.Exposure = 2
	spec.Data = []float64{2, 4, 6}
	spec.Errors = []float64{2, 2, 2}

	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum: spec,
		Response: makeResponse(3),
		Warnf:    silentWarnf,
	})
	require.NoError(t, err)
	assert.Equal(t, specfold.UnitsRate, ds.Spectrum.Units)
	assert.Equal(t, []float64{1, 2, 3}, ds.Spectrum.Data)
	assert.Equal(t, []float64{1, 1, 1}, ds.Spectrum.Errors)
}

func TestNewDatasetDerivesAxes(t *testing.T) {
	ds := makeDataset(t, 4)
	assert.Equal(t, []float64{0, 1, 2, 3}, ds.EnergyLow)
	assert.Equal(t, []float64{1, 2, 3, 4}, ds.EnergyHigh)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, ds.Domain)
	assert.Equal(t, 4, ds.NumActive())
}

// The documented masking scenario: channels survive if either energy edge
// falls inside the window.
func TestRestrictDomainScenario(t *testing.T) {
	ds := makeDataset(t, 5)
	ds.RestrictDomain(1.5, 3.5)
	assert.Equal(t, []bool{false, true, true, true, false}, ds.Mask)
	requireConsistent(t, ds)
}

func TestMaskEnergiesIdempotent(t *testing.T) {
	ds := makeDataset(t, 5)
	pred := func(e float64) bool { return e >= 1.5 && e <= 3.5 }

	ds.MaskEnergies(pred)
	first := append([]bool(nil), ds.Mask...)
	ds.MaskEnergies(pred)
	assert.Equal(t, first, ds.Mask)
}

// Masking only ever excludes: a second, narrower window cannot resurrect
// channels the first one removed.
func TestMaskEnergiesAccumulates(t *testing.T) {
	ds := makeDataset(t, 5)
	ds.RestrictDomain(0, 2).RestrictDomain(3, 5)
	assert.Equal(t, []bool{false, false, true, false, false}, ds.Mask)
}

func TestDropChannels(t *testing.T) {
	spec := makeSpectrum(5)
	bg := makeSpectrum(5)
	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum:   spec,
		Background: bg,
		Response:   makeResponse(5),
		Warnf:      silentWarnf,
	})
	require.NoError(t, err)

	removed := ds.DropChannels([]int{1, 3, 3, 99, -1})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, ds.NumChannels())
	assert.Equal(t, []float64{1, 3, 5}, ds.Spectrum.Data)
	assert.Equal(t, []float64{0, 2, 4}, ds.EnergyLow)
	assert.Equal(t, []float64{1, 3, 5}, ds.EnergyHigh)
	requireConsistent(t, ds)

	assert.Equal(t, 0, ds.DropChannels(nil))
}

func TestDropBadChannels(t *testing.T) {
	ds := makeDataset(t, 4)
	ds.Spectrum.Quality[2] = 5

	assert.Equal(t, 1, ds.DropBadChannels())
	assert.Equal(t, 3, ds.NumChannels())
	assert.Equal(t, []float64{1, 2, 4}, ds.Spectrum.Data)
	requireConsistent(t, ds)
}

func TestDropNegativeChannels(t *testing.T) {
	ds := makeDataset(t, 4)
	ds.Spectrum.Data[0] = -3
	ds.Spectrum.Data[3] = -1

	assert.Equal(t, 2, ds.DropNegativeChannels())
	assert.Equal(t, []float64{2, 3}, ds.Spectrum.Data)
	requireConsistent(t, ds)
}

func TestRegroup(t *testing.T) {
	spec := makeSpectrum(4)
	bg := makeSpectrum(4)
	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum:   spec,
		Background: bg,
		Response:   makeResponse(4),
		Warnf:      silentWarnf,
	})
	require.NoError(t, err)
	ds.Mask[0] = false // must be reset by Regroup

	grouping := []int{
		specfold.GroupStart, specfold.GroupContinue,
		specfold.GroupStart, specfold.GroupContinue,
	}
	require.NoError(t, ds.Regroup(grouping))

	assert.Equal(t, 2, ds.NumChannels())
	assert.Equal(t, []bool{true, true}, ds.Mask)
	assert.Equal(t, []float64{0, 2}, ds.EnergyLow)
	assert.Equal(t, []float64{2, 4}, ds.EnergyHigh)
	assert.Equal(t, []float64{3, 7}, ds.Spectrum.Data)
	assert.InDelta(t, math.Sqrt2, ds.Spectrum.Errors[0], 1e-12)
	requireConsistent(t, ds)

	// Response rows merged: each group sums two identity rows.
	m, err := ds.ActiveMatrix()
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 4, cols)
	assert.Equal(t, []float64{1, 1, 0, 0}, m.RawRowView(0))
	assert.Equal(t, []float64{0, 0, 1, 1}, m.RawRowView(1))
}

func TestRegroupShapeMismatch(t *testing.T) {
	ds := makeDataset(t, 4)
	require.ErrorIs(t, ds.Regroup([]int{specfold.GroupStart}), specfold.ErrShapeMismatch)
}

func TestNormalize(t *testing.T) {
	spec := makeSpectrum(3)
	// Stretch the energy axis so the widths are not all 1.
	resp := makeResponse(3)
	for i := range resp.ChannelEnergyLow {
		resp.ChannelEnergyLow[i] *= 2
		resp.ChannelEnergyHigh[i] *= 2
	}
	resp.ChannelEnergyHigh[0] = 2 // [0,2], [2,4], [4,6]

	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum: spec,
		Response: resp,
		Warnf:    silentWarnf,
	})
	require.NoError(t, err)

	require.NoError(t, ds.Normalize())
	assert.Equal(t, specfold.UnitsRateDensity, ds.Spectrum.Units)
	assert.Equal(t, []float64{0.5, 1, 1.5}, ds.Spectrum.Data)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, ds.Spectrum.Errors)

	// Normalizing twice must not divide again.
	require.NoError(t, ds.Normalize())
	assert.Equal(t, []float64{0.5, 1, 1.5}, ds.Spectrum.Data)
}

func TestSubtractBackground(t *testing.T) {
	spec := makeSpectrum(3)
	bg := makeSpectrum(3)
	bg.Data = []float64{0.5, 0.5, 0.5}
	bg.Errors = []float64{1, 1, 1}

	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum:   spec,
		Background: bg,
		Response:   makeResponse(3),
		Warnf:      silentWarnf,
	})
	require.NoError(t, err)

	require.NoError(t, ds.SubtractBackground())
	assert.False(t, ds.HasBackground())
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, ds.Spectrum.Data)
	assert.InDelta(t, math.Sqrt2, ds.Spectrum.Errors[0], 1e-12)

	require.ErrorIs(t, ds.SubtractBackground(), specfold.ErrMissingBackground)
}

func TestSetDomain(t *testing.T) {
	ds := makeDataset(t, 3)
	require.ErrorIs(t, ds.SetDomain([]float64{1}), specfold.ErrShapeMismatch)
	require.ErrorIs(t, ds.SetDomain([]float64{1, 1}), specfold.ErrShapeMismatch)
	require.NoError(t, ds.SetDomain([]float64{0, 0.5, 1, 1.5, 2, 2.5, 3}))
	assert.Len(t, ds.Domain, 7)
}

func TestMaskedQueries(t *testing.T) {
	ds := makeDataset(t, 4)
	ds.RestrictDomain(1.2, 2.8) // keeps channels 1 and 2

	assert.Equal(t, 2, ds.NumActive())
	assert.Equal(t, []float64{1, 1}, ds.BinWidths())
	assert.Equal(t, []float64{1.5, 2.5}, ds.SpectrumEnergy())
	assert.Equal(t, []float64{2, 3}, ds.Objective())
	assert.Equal(t, []float64{1, 1}, ds.Variance())
}

func TestObjectiveWarnsOnUnits(t *testing.T) {
	var warnings []string
	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum: makeSpectrum(3),
		Response: makeResponse(3),
		Warnf: func(format string, args ...any) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		},
	})
	require.NoError(t, err)

	ds.Objective() // still in counts/s
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Normalize")

	require.NoError(t, ds.Normalize())
	warnings = warnings[:0]
	ds.Objective()
	assert.Empty(t, warnings)
}

func TestActiveMatrixMaskAndAncillary(t *testing.T) {
	anc := &specfold.Ancillary{
		EnergyLow:  []float64{0, 1, 2},
		EnergyHigh: []float64{1, 2, 3},
		Area:       []float64{10, 20, 30},
	}
	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum:  makeSpectrum(3),
		Response:  makeResponse(3),
		Ancillary: anc,
		Warnf:     silentWarnf,
	})
	require.NoError(t, err)
	assert.True(t, ds.HasAncillary())

	ds.Mask[1] = false
	m, err := ds.ActiveMatrix()
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, []float64{10, 0, 0}, m.RawRowView(0))
	assert.Equal(t, []float64{0, 0, 30}, m.RawRowView(1))

	// The ancillary correction never mutates the stored response.
	assert.Equal(t, 1.0, ds.Response.Matrix.At(0, 0))
}

func TestDatasetCloneIndependent(t *testing.T) {
	ds := makeDataset(t, 3)
	c := ds.Clone()

	c.Spectrum.Data[0] = -1
	c.Mask[0] = false
	c.Response.Matrix.Set(0, 0, 42)

	assert.Equal(t, 1.0, ds.Spectrum.Data[0])
	assert.True(t, ds.Mask[0])
	assert.Equal(t, 1.0, ds.Response.Matrix.At(0, 0))
}
