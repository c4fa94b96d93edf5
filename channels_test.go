package specfold_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfold/specfold"
)

func TestAugmentedEnergyChannelsIdentity(t *testing.T) {
	edges, err := specfold.AugmentedEnergyChannels(
		[]int{0, 1, 2},
		[]int{0, 1, 2},
		[]float64{0, 1, 2},
		[]float64{1, 2, 3},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, edges)
}

// The data channels may start at an offset into the response numbering.
func TestAugmentedEnergyChannelsOffset(t *testing.T) {
	edges, err := specfold.AugmentedEnergyChannels(
		[]int{2, 3},
		[]int{0, 1, 2, 3},
		[]float64{0, 0.5, 1, 1.5},
		[]float64{0.5, 1, 1.5, 2},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5, 2}, edges)
}

func TestAugmentedEnergyChannelsMissingChannel(t *testing.T) {
	_, err := specfold.AugmentedEnergyChannels(
		[]int{0, 7},
		[]int{0, 1, 2},
		[]float64{0, 1, 2},
		[]float64{1, 2, 3},
		nil,
	)
	require.ErrorIs(t, err, specfold.ErrChannelMapping)
}

// A gap between consecutive channel edges warns but does not fail.
func TestAugmentedEnergyChannelsNonContiguousWarn(t *testing.T) {
	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	edges, err := specfold.AugmentedEnergyChannels(
		[]int{0, 1},
		[]int{0, 1},
		[]float64{0, 2},
		[]float64{1, 3},
		warnf,
	)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 3}, edges)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "non-contiguous")
}

func TestAugmentedEnergyChannelsShapeMismatch(t *testing.T) {
	_, err := specfold.AugmentedEnergyChannels(
		[]int{0},
		[]int{0, 1},
		[]float64{0},
		[]float64{1},
		nil,
	)
	require.ErrorIs(t, err, specfold.ErrShapeMismatch)
}
