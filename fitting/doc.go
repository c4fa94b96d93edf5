// Package fitting fits spectral models to specfold datasets.
//
// It provides three layers:
//
//   - [Pipeline] folds a model flux through a dataset's response matrix,
//     rebinning between energy partitions when they differ and normalizing
//     by channel bin width.
//
//   - [Cache] owns every buffer needed to evaluate one model against one
//     dataset thousands of times without allocating. Buffers are selected by
//     an evaluation [Mode] so that interleaved plain and gradient
//     evaluations never share storage.
//
//   - [Config] and [Fitter] bind the above into an objective function for a
//     gonum/optimize solver and package the fitted chi-square statistic.
//
// # Usage
//
//	cfg, err := fitting.NewConfig(model, dataset)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := fitting.Fit(ctx, cfg)
//
// Dataset mutation (masking, dropping, regrouping) must be complete before a
// Config is constructed: construction captures matrix dimensions and buffer
// sizes, and mutating the dataset afterwards invalidates them.
package fitting
