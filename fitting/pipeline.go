package fitting

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/specfold/specfold"
)

// Pipeline folds a model flux through one dataset's response. Construction
// captures the ancillary-corrected response matrix restricted to the active
// channels, the active bin widths, the native response energy grid, and a
// scratch buffer; the dataset must not be mutated afterwards.
type Pipeline struct {
	matrix  *mat.Dense // active channels × model-energy bins
	widths  []float64  // active bin widths
	native  []float64  // response model-energy edges, len = bins+1
	scratch []float64  // len = model-energy bins

	// Preallocated vector views used by Fold; scratchVec shares backing
	// storage with scratch.
	scratchVec *mat.VecDense
	outVec     *mat.VecDense
}

// NewPipeline builds a fold pipeline bound to the dataset's current mask,
// response and ancillary correction.
func NewPipeline(data *specfold.Dataset) (*Pipeline, error) {
	matrix, err := data.ActiveMatrix()
	if err != nil {
		return nil, err
	}
	rows, cols := matrix.Dims()
	if rows == 0 {
		return nil, ErrNoActiveChannels
	}

	widths := data.BinWidths()
	resp := data.Response
	native := make([]float64, cols+1)
	copy(native, resp.EnergyLow)
	native[cols] = resp.EnergyHigh[cols-1]

	scratch := make([]float64, cols)
	return &Pipeline{
		matrix:     matrix,
		widths:     widths,
		native:     native,
		scratch:    scratch,
		scratchVec: mat.NewVecDense(cols, scratch),
		outVec:     mat.NewVecDense(rows, nil),
	}, nil
}

// OutputSize returns the number of active channels the pipeline folds onto.
func (p *Pipeline) OutputSize() int {
	rows, _ := p.matrix.Dims()
	return rows
}

// NativeDomain returns the response's model-energy edge grid the pipeline
// folds from.
func (p *Pipeline) NativeDomain() []float64 { return p.native }

// Fold folds a model flux defined on domain into dst, which must have
// OutputSize elements. When the domain has the same number of bins as the
// native response grid the flux is used directly; otherwise it is rebinned
// onto the native partition first. The folded rates are divided by the
// active bin widths, yielding a flux density.
//
// Fold performs no allocation; flux must not alias dst.
func (p *Pipeline) Fold(dst, domain, flux []float64) error {
	if len(flux) != len(domain)-1 {
		return fmt.Errorf("%w: %d flux bins for %d domain edges", specfold.ErrShapeMismatch, len(flux), len(domain))
	}
	if len(dst) != p.OutputSize() {
		return fmt.Errorf("%w: output length %d, active channels %d", specfold.ErrShapeMismatch, len(dst), p.OutputSize())
	}

	if len(flux) == len(p.scratch) {
		// Domains already match; no resampling needed.
		copy(p.scratch, flux)
	} else if err := specfold.DownsampleRebin(p.scratch, domain, flux, p.native[1:]); err != nil {
		return err
	}

	p.outVec.MulVec(p.matrix, p.scratchVec)
	copy(dst, p.outVec.RawVector().Data)
	floats.Div(dst, p.widths)
	return nil
}

// Folded is the allocating variant of [Fold]; both produce identical results
// for identical inputs.
func (p *Pipeline) Folded(domain, flux []float64) ([]float64, error) {
	dst := make([]float64, p.OutputSize())
	if err := p.Fold(dst, domain, flux); err != nil {
		return nil, err
	}
	return dst, nil
}
