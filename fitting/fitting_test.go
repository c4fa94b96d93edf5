package fitting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/specfold/specfold"
)

// lineModel is a two-parameter test model: flux(E) = norm + slope·Emid per
// bin. Its chi-square surface is exactly quadratic, which keeps the solver
// tests deterministic.
type lineModel struct {
	kind        Kind
	frozenSlope bool
}

func (m lineModel) Parameters() []Parameter {
	return []Parameter{
		{Name: "norm", Value: 1, Lower: -100, Upper: 100},
		{Name: "slope", Value: 0.5, Lower: -10, Upper: 10, Frozen: m.frozenSlope},
	}
}

func (m lineModel) Kind() Kind {
	if m.kind == 0 {
		return KindNative
	}
	return m.kind
}

func (m lineModel) Eval(dst, domain, params []float64) error {
	for i := range dst {
		mid := (domain[i] + domain[i+1]) / 2
		dst[i] = params[0] + params[1]*mid
	}
	return nil
}

var errModelBroken = errors.New("model exploded")

// brokenModel always fails evaluation; used to check error propagation.
type brokenModel struct{ lineModel }

func (brokenModel) Eval(dst, domain, params []float64) error { return errModelBroken }

// testDataset builds an n-channel dataset with an identity response and
// unit-width channels, its data set to the lineModel truth at (norm=2,
// slope=1), already normalized to rate density.
func testDataset(t testing.TB, n int) *specfold.Dataset {
	t.Helper()

	spec := &specfold.Spectrum{
		Channels: make([]int, n),
		Data:     make([]float64, n),
		Errors:   make([]float64, n),
		Quality:  make([]int, n),
		Grouping: make([]int, n),
		Exposure: 1,
		Units:    specfold.UnitsRate,
	}
	resp := &specfold.Response{
		Matrix:            mat.NewDense(n, n, nil),
		Channels:          make([]int, n),
		ChannelEnergyLow:  make([]float64, n),
		ChannelEnergyHigh: make([]float64, n),
		EnergyLow:         make([]float64, n),
		EnergyHigh:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		mid := float64(i) + 0.5
		spec.Channels[i] = i
		spec.Data[i] = 2 + 1*mid
		spec.Errors[i] = 1
		spec.Grouping[i] = specfold.GroupStart
		resp.Matrix.Set(i, i, 1)
		resp.Channels[i] = i
		resp.ChannelEnergyLow[i] = float64(i)
		resp.ChannelEnergyHigh[i] = float64(i + 1)
		resp.EnergyLow[i] = float64(i)
		resp.EnergyHigh[i] = float64(i + 1)
	}

	ds, err := specfold.NewDataset(specfold.DatasetConfig{
		Spectrum: spec,
		Response: resp,
		Warnf:    func(string, ...any) {},
	})
	require.NoError(t, err)
	require.NoError(t, ds.Normalize())
	return ds
}

// fineEdges returns a grid over [0, n] with bins-per-unit subdivisions.
func fineEdges(n, per int) []float64 {
	out := make([]float64, n*per+1)
	for i := range out {
		out[i] = float64(i) / float64(per)
	}
	return out
}
