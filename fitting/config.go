package fitting

import (
	"fmt"
	"strings"

	"github.com/specfold/specfold"
)

// Config binds one model to one dataset for fitting. Construction captures
// the model domain, the active-masked objective and variance arrays, and the
// evaluation cache; the dataset must not be mutated afterwards.
type Config struct {
	Model   Model
	Dataset *specfold.Dataset

	// Domain is the energy grid the model is evaluated on.
	Domain []float64
	// Objective is the active-masked observed rate density.
	Objective []float64
	// Variance is the active-masked squared error.
	Variance []float64
	// Covariance is the elementwise reciprocal of Variance unless supplied
	// via WithCovariance. It weights the chi-square statistic.
	Covariance []float64

	params []Parameter
	cache  *Cache
}

// ConfigOption customizes config construction.
type ConfigOption func(*Config)

// WithCovariance supplies explicit statistic weights instead of the
// reciprocal variance. The slice must match the active channel count.
func WithCovariance(cov []float64) ConfigOption {
	return func(c *Config) { c.Covariance = cov }
}

// NewConfig builds a fitting configuration for the (model, dataset) pair.
// The dataset's masking, dropping and regrouping must already be done.
func NewConfig(model Model, data *specfold.Dataset, opts ...ConfigOption) (*Config, error) {
	pipeline, err := NewPipeline(data)
	if err != nil {
		return nil, err
	}

	objective := data.Objective()
	variance := data.Variance()
	domain := append([]float64(nil), data.Domain...)

	cfg := &Config{
		Model:     model,
		Dataset:   data,
		Domain:    domain,
		Objective: objective,
		Variance:  variance,
		params:    model.Parameters(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Covariance == nil {
		cov := make([]float64, len(variance))
		for i, v := range variance {
			cov[i] = 1 / v
		}
		cfg.Covariance = cov
	} else if len(cfg.Covariance) != len(objective) {
		return nil, fmt.Errorf("%w: covariance length %d, active channels %d",
			specfold.ErrShapeMismatch, len(cfg.Covariance), len(objective))
	}

	cfg.cache = NewCache(model, pipeline, domain)
	return cfg, nil
}

// Parameters returns the model's parameter descriptors.
func (c *Config) Parameters() []Parameter { return c.params }

// NumFree returns the number of free parameters.
func (c *Config) NumFree() int { return c.cache.NumFree() }

// FreeValues returns the free parameters' current values, the fit's
// starting point.
func (c *Config) FreeValues() []float64 { return c.cache.FreeValues() }

// DegreesOfFreedom returns the active channel count minus the number of
// free parameters.
func (c *Config) DegreesOfFreedom() int { return len(c.Objective) - c.cache.NumFree() }

// SupportsGradient reports whether gradient-based fit strategies are valid
// for the model's implementation kind.
func (c *Config) SupportsGradient() bool { return c.Model.Kind().SupportsGradient() }

// Eval evaluates the folded model prediction at the given free-parameter
// values under the given mode. The returned slice is reused storage, valid
// only until the next call with the same mode.
func (c *Config) Eval(mode Mode, free []float64) ([]float64, error) {
	full, err := c.cache.ExpandParameters(free)
	if err != nil {
		return nil, err
	}
	return c.cache.Eval(mode, c.Domain, full)
}

// EvalFull is like [Config.Eval] but takes the full-length parameter vector,
// bypassing frozen-parameter expansion.
func (c *Config) EvalFull(mode Mode, full []float64) ([]float64, error) {
	return c.cache.Eval(mode, c.Domain, full)
}

// ChiSquared evaluates the weighted sum of squared residuals between the
// observed objective and the folded prediction at the given free-parameter
// values.
func (c *Config) ChiSquared(mode Mode, free []float64) (float64, error) {
	pred, err := c.Eval(mode, free)
	if err != nil {
		return 0, err
	}
	return c.statistic(pred), nil
}

func (c *Config) statistic(pred []float64) float64 {
	var sum float64
	for i, obs := range c.Objective {
		r := obs - pred[i]
		sum += r * r * c.Covariance[i]
	}
	return sum
}

// Finalize evaluates the objective function once at the given free-parameter
// values and packages the resulting statistic with a parameter snapshot.
func (c *Config) Finalize(free []float64) (*Result, error) {
	pred, err := c.Eval(ModePlain, free)
	if err != nil {
		return nil, err
	}
	stat := c.statistic(pred)

	full, err := c.cache.ExpandParameters(free)
	if err != nil {
		return nil, err
	}
	params := append([]Parameter(nil), c.params...)
	for i := range params {
		params[i].Value = full[i]
	}

	return &Result{
		Statistic:        stat,
		DegreesOfFreedom: c.DegreesOfFreedom(),
		Parameters:       params,
		Config:           c,
	}, nil
}

// Result bundles a fitted statistic with the parameter values it was
// evaluated at and the configuration that produced it.
type Result struct {
	Statistic        float64
	DegreesOfFreedom int
	Parameters       []Parameter
	Config           *Config
}

// ReducedStatistic returns the statistic per degree of freedom.
func (r *Result) ReducedStatistic() float64 {
	if r.DegreesOfFreedom <= 0 {
		return r.Statistic
	}
	return r.Statistic / float64(r.DegreesOfFreedom)
}

// String formats the result as a short fit report.
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chi-square = %.6g (reduced %.6g, dof %d)", r.Statistic, r.ReducedStatistic(), r.DegreesOfFreedom)
	for _, p := range r.Parameters {
		frozen := ""
		if p.Frozen {
			frozen = " (frozen)"
		}
		fmt.Fprintf(&b, "\n  %s = %.6g%s", p.Name, p.Value, frozen)
	}
	return b.String()
}
