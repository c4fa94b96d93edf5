package fitting

import (
	"fmt"

	"github.com/specfold/specfold"
)

// Mode tags one numeric evaluation flavor. The cache keeps independent
// buffer slots per mode so that plain objective evaluations and
// finite-difference gradient evaluations interleaved by a solver never write
// into the same memory.
type Mode int

const (
	// ModePlain is a plain objective evaluation.
	ModePlain Mode = iota
	// ModeGradient is a derivative-tracking evaluation, used when probing
	// perturbed parameter values for a gradient or Jacobian column.
	ModeGradient

	numModes
)

var modeNames = [...]string{ModePlain: "Plain", ModeGradient: "Gradient"}

// IsValid reports whether m is a known evaluation mode.
func (m Mode) IsValid() bool { return m >= ModePlain && m < numModes }

// String returns the mode name. For invalid values it returns "Mode(n)".
func (m Mode) String() string {
	if m.IsValid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Cache owns every buffer needed to evaluate one model against one dataset
// repeatedly without allocating: a model-output slot and a folded-output
// slot per mode, and a single buffer for expanding the free parameter vector
// to the full one.
//
// A Cache is not safe for concurrent use; callers must serialize calls. The
// per-mode slots guarantee only that a call in one mode does not invalidate
// the buffer last returned for the other mode.
type Cache struct {
	model    Model
	pipeline *Pipeline

	params []Parameter
	free   []int     // indices of the non-frozen parameters
	full   []float64 // parameter expansion buffer

	modelOut [numModes][]float64
	folded   [numModes][]float64
}

// NewCache builds a cache for evaluating model over the given energy domain
// and folding through pipeline. Buffer sizes are fixed here; later calls
// must use a domain with the same bin count.
func NewCache(model Model, pipeline *Pipeline, domain []float64) *Cache {
	params := model.Parameters()
	var free []int
	for i, p := range params {
		if !p.Frozen {
			free = append(free, i)
		}
	}

	c := &Cache{
		model:    model,
		pipeline: pipeline,
		params:   params,
		free:     free,
		full:     make([]float64, len(params)),
	}
	bins := len(domain) - 1
	for m := Mode(0); m < numModes; m++ {
		c.modelOut[m] = make([]float64, bins)
		c.folded[m] = make([]float64, pipeline.OutputSize())
	}
	return c
}

// NumFree returns the number of free (non-frozen) parameters.
func (c *Cache) NumFree() int { return len(c.free) }

// FreeValues returns a fresh slice holding the current values of the free
// parameters, in order. This is the natural starting point for a fit.
func (c *Cache) FreeValues() []float64 {
	out := make([]float64, len(c.free))
	for j, idx := range c.free {
		out[j] = c.params[idx].Value
	}
	return out
}

// ExpandParameters maps a reduced free-parameter vector onto the full
// parameter vector, holding frozen parameters at their declared values. The
// returned slice is the cache's reusable buffer, valid until the next call.
func (c *Cache) ExpandParameters(free []float64) ([]float64, error) {
	if len(free) != len(c.free) {
		return nil, fmt.Errorf("%w: got %d free values, want %d", ErrParameterCount, len(free), len(c.free))
	}
	for i, p := range c.params {
		c.full[i] = p.Value
	}
	for j, idx := range c.free {
		c.full[idx] = free[j]
	}
	return c.full, nil
}

// Eval evaluates the model on domain at the full-length parameter vector and
// folds the result, using the buffer slots of the given mode. The returned
// slice is the mode's folded buffer: it is reused storage, valid only until
// the next call with the same mode.
//
// Model errors (for example parameter domain violations) are propagated
// unmodified; the cache does not validate parameter bounds.
func (c *Cache) Eval(mode Mode, domain, full []float64) ([]float64, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("fitting: invalid evaluation mode %d", int(mode))
	}
	modelOut := c.modelOut[mode]
	if len(modelOut) != len(domain)-1 {
		return nil, fmt.Errorf("%w: cache sized for %d bins, domain has %d", specfold.ErrShapeMismatch, len(modelOut), len(domain)-1)
	}

	if err := c.model.Eval(modelOut, domain, full); err != nil {
		return nil, err
	}

	folded := c.folded[mode]
	if err := c.pipeline.Fold(folded, domain, modelOut); err != nil {
		return nil, err
	}
	return folded, nil
}
