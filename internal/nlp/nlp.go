// Package nlp adapts a model.Model to the callback interface of an external
// nonlinear (interior-point style) solver.
//
// The adapter assigns contiguous indices to variables and constraints,
// precomputes the sparse Jacobian and lower-triangular Hessian-of-Lagrangian
// patterns, and serves the solver's callbacks:
//
//	a, err := nlp.New(m, nlp.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	dims := a.Dimensions()
//	rows := make([]int, dims.NNZJacobian)
//	cols := make([]int, dims.NNZJacobian)
//	a.Jacobian(nil, false, rows, cols, nil) // structure
//	...
//	a.Jacobian(x, true, nil, nil, values)   // values at x
//	...
//	a.Finalize(nlp.OutcomeSuccess, x, zL, zU, g, lambda, obj)
//
// Values are cached per point: passing newX == false reuses the tapes'
// last results, passing newX == true writes x into the model variables and
// re-evaluates the objective and all constraints once. Derivatives are
// computed lazily and at most once per point and component.
//
// An Adapter is not safe for concurrent use; it parallelizes internally
// across constraints when configured with more than one worker.
package nlp

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/aml/internal/config"
)

var (
	// ErrNoObjective is returned by New for a model without objective.
	ErrNoObjective = errors.New("nlp: model has no objective")

	// ErrDimension reports a callback slice of the wrong length.
	ErrDimension = errors.New("nlp: dimension mismatch")

	// ErrFinalized is returned by callbacks after Finalize.
	ErrFinalized = errors.New("nlp: solve already finalized")
)

// IndexStyle selects the base of sparse index output.
type IndexStyle int

const (
	// CStyle indices start at 0.
	CStyle IndexStyle = iota
	// FortranStyle indices start at 1.
	FortranStyle
)

// Offset returns the value added to 0-based indices.
func (s IndexStyle) Offset() int {
	if s == FortranStyle {
		return 1
	}
	return 0
}

func (s IndexStyle) String() string {
	if s == FortranStyle {
		return "fortran"
	}
	return "c"
}

// ParseIndexStyle accepts "c" or "fortran" (or "f"), in any case.
func ParseIndexStyle(s string) (IndexStyle, error) {
	switch strings.ToLower(s) {
	case "", "c":
		return CStyle, nil
	case "fortran", "f":
		return FortranStyle, nil
	}
	return CStyle, fmt.Errorf("nlp: unknown index style %q", s)
}

// Dimensions describes the problem to the solver.
type Dimensions struct {
	NumVars     int
	NumCons     int
	NNZJacobian int
	NNZHessian  int
	IndexStyle  IndexStyle
}

type options struct {
	logger     hclog.Logger
	workers    int
	style      IndexStyle
	registerer prometheus.Registerer
	namespace  string
}

// Option configures an Adapter.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithWorkers bounds the goroutines used to evaluate and differentiate
// constraints. Values below 1 mean runtime.GOMAXPROCS(0); 1 disables
// parallelism.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithIndexStyle selects 0- or 1-based sparse indices.
func WithIndexStyle(s IndexStyle) Option {
	return func(o *options) { o.style = s }
}

// WithRegisterer registers the adapter metrics with reg. By default they go
// to a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithNamespace sets the metric namespace (default "aml").
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// FromConfig converts a loaded configuration into options.
func FromConfig(cfg config.Config) ([]Option, error) {
	style, err := ParseIndexStyle(cfg.IndexStyle)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithWorkers(cfg.Workers),
		WithIndexStyle(style),
	}
	if cfg.Metrics.Namespace != "" {
		opts = append(opts, WithNamespace(cfg.Metrics.Namespace))
	}
	return opts, nil
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    hclog.NewNullLogger(),
		namespace: "aml",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}
	return o
}
