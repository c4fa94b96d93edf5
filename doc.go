// Package specfold implements the data plane of forward-folding spectral
// analysis: it prepares detector datasets so that a physical emission model,
// evaluated on a fine energy grid, can be folded through the instrument's
// response onto the coarser channel grid the detector actually measures.
//
// The root package provides flux-conserving rebinning between energy
// partitions ([DownsampleRebin]), channel-to-energy mapping
// ([AugmentedEnergyChannels]), and the mutable [Dataset] state: per-channel
// inclusion masking, channel dropping and regrouping, background
// subtraction, and unit normalization. The specfold/fitting subpackage
// provides the fit plane: a buffer-reusing evaluation cache and a driver for
// an external nonlinear solver.
//
// Basic usage:
//
//	ds, err := specfold.NewDataset(specfold.DatasetConfig{
//	    Spectrum: spec,
//	    Response: resp,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ds.DropBadChannels()
//	ds.RestrictDomain(1.0, 10.0)
//
// All dataset mutation must happen before a fitting.Config is constructed
// from it; the fit cache captures matrix dimensions and buffer sizes at
// construction time.
package specfold
