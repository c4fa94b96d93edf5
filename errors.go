package specfold

import "errors"

// Sentinel errors for the specfold package.
// Use errors.Is to check: errors.Is(err, specfold.ErrRebinning)
var (
	// ErrRebinning is returned when a rebin call would up-sample instead of
	// strictly down-sample. Up-sampling must go through an interpolation
	// strategy instead.
	ErrRebinning = errors.New("specfold: rebinning requires a strictly coarser destination")

	// ErrChannelMapping is returned when a data channel has no matching
	// channel in the response's channel list, indicating mismatched
	// instrument files.
	ErrChannelMapping = errors.New("specfold: data channel missing from response channels")

	// ErrMissingBackground is returned by SubtractBackground when the
	// dataset has no background spectrum.
	ErrMissingBackground = errors.New("specfold: dataset has no background")

	// ErrShapeMismatch is returned when array lengths handed across the API
	// boundary are inconsistent with each other.
	ErrShapeMismatch = errors.New("specfold: array shape mismatch")
)
