package fitting

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fitting package.
var (
	// ErrInvalidParameters is returned when parameter values fall outside
	// their declared bounds.
	ErrInvalidParameters = errors.New("fitting: parameters out of bounds")

	// ErrParameterCount is returned when a parameter vector has the wrong
	// length for the model.
	ErrParameterCount = errors.New("fitting: wrong parameter count")

	// ErrGradientUnsupported is returned when a gradient-based fit method is
	// requested for a model kind that only supports derivative-free
	// strategies.
	ErrGradientUnsupported = errors.New("fitting: model kind does not support gradient-based methods")

	// ErrNoActiveChannels is returned when every channel of the dataset is
	// masked out.
	ErrNoActiveChannels = errors.New("fitting: dataset has no active channels")
)

// Kind identifies how a model is implemented. It is a closed set: the
// differentiation capability of a model is a property of its implementation
// kind, not of individual instances.
type Kind int

const (
	// KindNative marks a model implemented in plain Go arithmetic, smooth in
	// its parameters, for which gradient-based fit strategies are valid.
	KindNative Kind = iota + 1

	// KindExternal marks an opaque model (table-driven, external process)
	// restricted to derivative-free fit strategies.
	KindExternal
)

var kindNames = [...]string{KindNative: "Native", KindExternal: "External"}

// IsValid reports whether k is a known model kind.
func (k Kind) IsValid() bool { return k >= KindNative && k <= KindExternal }

// String returns the kind name. For invalid values it returns "Kind(n)".
func (k Kind) String() string {
	if k.IsValid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SupportsGradient reports whether gradient-based fit strategies may be used
// with models of this kind.
func (k Kind) SupportsGradient() bool { return k == KindNative }

// Parameter describes one model parameter: its default value, bounds, and
// whether it is held frozen during the fit.
type Parameter struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Frozen bool    `json:"frozen"`
}

// Model maps an energy domain and a parameter vector to a per-bin flux. The
// domain is an ordered bin-edge sequence; implementations write one flux
// value per bin (len(domain)-1 values) into dst.
//
// Eval must not retain dst or params; both are reused storage owned by the
// caller.
type Model interface {
	// Parameters returns the model's parameter descriptors in evaluation
	// order, carrying the default values, bounds and frozen flags.
	Parameters() []Parameter

	// Kind reports the implementation kind, which determines whether
	// gradient-based fit strategies are valid.
	Kind() Kind

	// Eval evaluates the model flux over the domain at the given full-length
	// parameter vector. Any error is propagated unmodified to the fit.
	Eval(dst, domain, params []float64) error
}

// ValidateParameters checks a full-length value vector against the declared
// bounds. Frozen parameters are checked too: a frozen value outside its own
// bounds is a configuration mistake.
func ValidateParameters(params []Parameter, values []float64) error {
	if len(values) != len(params) {
		return fmt.Errorf("%w: got %d values for %d parameters", ErrParameterCount, len(values), len(params))
	}
	for i, p := range params {
		if values[i] < p.Lower || values[i] > p.Upper {
			return fmt.Errorf("%w: %s = %g, bounds [%g, %g]", ErrInvalidParameters, p.Name, values[i], p.Lower, p.Upper)
		}
	}
	return nil
}
