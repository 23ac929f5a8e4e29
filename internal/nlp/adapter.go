package nlp

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/born-ml/aml/internal/expr"
	"github.com/born-ml/aml/internal/model"
)

// jacEntry is one structural nonzero of the constraint Jacobian.
type jacEntry struct {
	con *model.Constraint
	v   *expr.Variable
}

// hessEntry is one lower-triangular nonzero of the Lagrangian Hessian with
// the components contributing to it. row.Index() >= col.Index().
type hessEntry struct {
	row, col  *expr.Variable
	objective bool
	cons      []*model.Constraint
}

// Adapter serves solver callbacks for one solve of a model.
type Adapter struct {
	model *model.Model
	obj   *model.Objective
	vars  []*expr.Variable
	cons  []*model.Constraint

	jac  []jacEntry
	hess []hessEntry

	// Hessian columns each component needs, for warming caches in parallel.
	objCols []*expr.Variable
	conCols [][]*expr.Variable

	opts      options
	logger    hclog.Logger
	metrics   *metrics
	epoch     uint64 // bumped per new point
	evaluated bool
	finalized bool
}

// New prepares m for a solve: it validates the model, assigns indices and
// builds the sparsity patterns. Indices stay assigned until Finalize.
func New(m *model.Model, opts ...Option) (*Adapter, error) {
	if m.Objective() == nil {
		return nil, ErrNoObjective
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("nlp: invalid model: %w", err)
	}

	o := buildOptions(opts)
	a := &Adapter{
		model:   m,
		obj:     m.Objective(),
		vars:    append([]*expr.Variable(nil), m.Variables()...),
		cons:    append([]*model.Constraint(nil), m.Constraints()...),
		opts:    o,
		logger:  o.logger.Named("nlp"),
		metrics: newMetrics(o.registerer, o.namespace),
	}
	m.SetObserver(a.metrics.observePass)

	for i, v := range a.vars {
		v.SetIndex(i)
	}
	for i, c := range a.cons {
		c.SetIndex(i)
	}

	for _, c := range a.cons {
		for _, v := range c.Variables() {
			a.jac = append(a.jac, jacEntry{con: c, v: v})
		}
	}
	a.buildHessian()

	a.logger.Debug("problem prepared",
		"vars", len(a.vars),
		"cons", len(a.cons),
		"nnz_jac", len(a.jac),
		"nnz_hess", len(a.hess),
		"workers", o.workers)
	return a, nil
}

// buildHessian merges the structural patterns of the objective and every
// constraint into one lower-triangular pattern sorted by row, then column.
func (a *Adapter) buildHessian() {
	type key struct{ row, col *expr.Variable }
	entries := make(map[key]*hessEntry)

	lookup := func(p, q *expr.Variable) *hessEntry {
		if p.Index() < q.Index() {
			p, q = q, p
		}
		k := key{p, q}
		e, ok := entries[k]
		if !ok {
			e = &hessEntry{row: p, col: q}
			entries[k] = e
		}
		return e
	}

	colsOf := func(seen map[*expr.Variable]bool, out []*expr.Variable, e *hessEntry) []*expr.Variable {
		if !seen[e.col] {
			seen[e.col] = true
			out = append(out, e.col)
		}
		return out
	}

	seen := make(map[*expr.Variable]bool)
	for _, p := range a.obj.HessianPattern() {
		e := lookup(p.A, p.B)
		e.objective = true
		a.objCols = colsOf(seen, a.objCols, e)
	}

	a.conCols = make([][]*expr.Variable, len(a.cons))
	for i, c := range a.cons {
		seen := make(map[*expr.Variable]bool)
		for _, p := range c.HessianPattern() {
			e := lookup(p.A, p.B)
			e.cons = append(e.cons, c)
			a.conCols[i] = colsOf(seen, a.conCols[i], e)
		}
	}

	a.hess = make([]hessEntry, 0, len(entries))
	for _, e := range entries {
		a.hess = append(a.hess, *e)
	}
	sort.Slice(a.hess, func(i, j int) bool {
		ri, rj := a.hess[i].row.Index(), a.hess[j].row.Index()
		if ri != rj {
			return ri < rj
		}
		return a.hess[i].col.Index() < a.hess[j].col.Index()
	})
}

// Dimensions returns the problem sizes.
func (a *Adapter) Dimensions() Dimensions {
	return Dimensions{
		NumVars:     len(a.vars),
		NumCons:     len(a.cons),
		NNZJacobian: len(a.jac),
		NNZHessian:  len(a.hess),
		IndexStyle:  a.opts.style,
	}
}

// Bounds fills variable and constraint bounds.
func (a *Adapter) Bounds(xl, xu, gl, gu []float64) error {
	if err := a.live(); err != nil {
		return err
	}
	if err := a.checkLen("x bounds", len(a.vars), xl, xu); err != nil {
		return err
	}
	if err := a.checkLen("constraint bounds", len(a.cons), gl, gu); err != nil {
		return err
	}
	for i, v := range a.vars {
		xl[i] = v.Lb
		xu[i] = v.Ub
	}
	for i, c := range a.cons {
		gl[i] = c.Lb
		gu[i] = c.Ub
	}
	return nil
}

// StartingPoint fills the requested parts of the initial iterate from the
// model: variable values, bound duals and constraint duals.
func (a *Adapter) StartingPoint(initX, initZ, initLambda bool, x, zL, zU, lambda []float64) error {
	if err := a.live(); err != nil {
		return err
	}
	if initX {
		if err := a.checkLen("x", len(a.vars), x); err != nil {
			return err
		}
		for i, v := range a.vars {
			x[i] = v.Value()
		}
	}
	if initZ {
		if err := a.checkLen("bound duals", len(a.vars), zL, zU); err != nil {
			return err
		}
		for i, v := range a.vars {
			zL[i] = v.LbDual
			zU[i] = v.UbDual
		}
	}
	if initLambda {
		if err := a.checkLen("lambda", len(a.cons), lambda); err != nil {
			return err
		}
		for i, c := range a.cons {
			lambda[i] = c.Dual
		}
	}
	return nil
}

func (a *Adapter) live() error {
	if a.finalized {
		return ErrFinalized
	}
	return nil
}

func (a *Adapter) checkLen(what string, want int, slices ...[]float64) error {
	for _, s := range slices {
		if len(s) != want {
			return fmt.Errorf("%w: %s has length %d, want %d", ErrDimension, what, len(s), want)
		}
	}
	return nil
}
