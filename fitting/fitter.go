package fitting

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Method selects the external solver strategy.
type Method int

const (
	// MethodNelderMead is a derivative-free simplex search, valid for every
	// model kind. It is the default.
	MethodNelderMead Method = iota + 1
	// MethodBFGS is a quasi-Newton method; it requires a gradient-capable
	// model kind.
	MethodBFGS
	// MethodGradientDescent is plain gradient descent; it requires a
	// gradient-capable model kind.
	MethodGradientDescent
)

var methodNames = [...]string{
	MethodNelderMead:      "NelderMead",
	MethodBFGS:            "BFGS",
	MethodGradientDescent: "GradientDescent",
}

// IsValid reports whether m is a known method.
func (m Method) IsValid() bool { return m >= MethodNelderMead && m <= MethodGradientDescent }

// String returns the method name. For invalid values it returns "Method(n)".
func (m Method) String() string {
	if m.IsValid() {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

func (m Method) needsGradient() bool { return m != MethodNelderMead }

func (m Method) method() optimize.Method {
	switch m {
	case MethodBFGS:
		return &optimize.BFGS{}
	case MethodGradientDescent:
		return &optimize.GradientDescent{}
	default:
		return &optimize.NelderMead{}
	}
}

// Fitter drives the external nonlinear solver over a Config's objective
// function. Zero values are replaced with sensible defaults.
type Fitter struct {
	Method        Method  // zero → MethodNelderMead
	MaxIterations int     // zero → solver default
	GradientStep  float64 // central-difference step; zero → 1e-6
}

// Fit minimizes the config's chi-square statistic starting from the model's
// current free-parameter values and finalizes at the solution.
//
// Plain objective evaluations run under ModePlain; the central-difference
// gradient, when the method needs one and the model kind permits it, runs
// under ModeGradient so the two never share cache buffers. The context is
// checked between solver evaluations; cancellation aborts the fit.
func (f *Fitter) Fit(ctx context.Context, cfg *Config) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := f.Method
	if method == 0 {
		method = MethodNelderMead
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("fitting: invalid method %d", int(method))
	}
	if method.needsGradient() && !cfg.SupportsGradient() {
		return nil, fmt.Errorf("%w: %s with %s model", ErrGradientUnsupported, method, cfg.Model.Kind())
	}

	initial := cfg.FreeValues()
	full, err := cfg.cache.ExpandParameters(initial)
	if err != nil {
		return nil, err
	}
	if err := ValidateParameters(cfg.params, full); err != nil {
		return nil, err
	}

	step := f.GradientStep
	if step == 0 {
		step = 1e-6
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			v, err := cfg.ChiSquared(ModePlain, x)
			if err != nil {
				return math.Inf(1)
			}
			return v
		},
	}
	if method.needsGradient() {
		probe := make([]float64, cfg.NumFree())
		problem.Grad = func(grad, x []float64) {
			for i := range x {
				copy(probe, x)
				probe[i] = x[i] + step
				plus, errPlus := cfg.ChiSquared(ModeGradient, probe)
				probe[i] = x[i] - step
				minus, errMinus := cfg.ChiSquared(ModeGradient, probe)
				if errPlus != nil || errMinus != nil {
					grad[i] = 0
					continue
				}
				grad[i] = (plus - minus) / (2 * step)
			}
		}
	}

	settings := &optimize.Settings{}
	if f.MaxIterations > 0 {
		settings.MajorIterations = f.MaxIterations
	}

	solution, err := optimize.Minimize(problem, initial, settings, method.method())
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("fitting: %w", err)
	}

	return cfg.Finalize(solution.X)
}

// Fit runs a default Fitter (Nelder-Mead) over the config.
func Fit(ctx context.Context, cfg *Config) (*Result, error) {
	return (&Fitter{}).Fit(ctx, cfg)
}
