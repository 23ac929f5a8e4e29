package nlp

import (
	"fmt"
	"math"

	"github.com/born-ml/aml/internal/parallel"
)

// Objective returns f(x).
func (a *Adapter) Objective(x []float64, newX bool) (float64, error) {
	if err := a.prepare("objective", x, newX); err != nil {
		return 0, err
	}
	return a.obj.Value(), nil
}

// Gradient fills grad with ∇f(x), indexed by variable.
func (a *Adapter) Gradient(x []float64, newX bool, grad []float64) error {
	if err := a.checkLen("gradient", len(a.vars), grad); err != nil {
		return err
	}
	if err := a.prepare("gradient", x, newX); err != nil {
		return err
	}
	g := a.obj.Gradient()
	for i, v := range a.vars {
		grad[i] = g[v]
	}
	return nil
}

// Constraints fills g with the constraint bodies at x.
func (a *Adapter) Constraints(x []float64, newX bool, g []float64) error {
	if err := a.checkLen("constraints", len(a.cons), g); err != nil {
		return err
	}
	if err := a.prepare("constraints", x, newX); err != nil {
		return err
	}
	for i, c := range a.cons {
		g[i] = c.Value()
	}
	return nil
}

// Jacobian reports the constraint Jacobian. With values == nil it fills the
// sparsity structure into rows and cols and ignores x; otherwise it fills
// values at x in the same order.
func (a *Adapter) Jacobian(x []float64, newX bool, rows, cols []int, values []float64) error {
	if err := a.live(); err != nil {
		return err
	}
	if values == nil {
		a.metrics.callback("jacobian_structure")
		if len(rows) != len(a.jac) || len(cols) != len(a.jac) {
			return structureErr("jacobian structure", len(a.jac), len(rows), len(cols))
		}
		off := a.opts.style.Offset()
		for k, e := range a.jac {
			rows[k] = e.con.Index() + off
			cols[k] = e.v.Index() + off
		}
		return nil
	}

	if err := a.checkLen("jacobian", len(a.jac), values); err != nil {
		return err
	}
	if err := a.prepare("jacobian", x, newX); err != nil {
		return err
	}
	if err := a.parallel(len(a.cons), func(i int) { a.cons[i].Gradient() }); err != nil {
		return err
	}
	for k, e := range a.jac {
		values[k] = e.con.Derivative(e.v)
	}
	return nil
}

// Hessian reports the lower triangle of
//
//	objFactor·∇²f(x) + Σ lambda[i]·∇²g_i(x)
//
// With values == nil it fills the structure into rows and cols and ignores
// x, objFactor and lambda.
func (a *Adapter) Hessian(x []float64, newX bool, objFactor float64, lambda []float64, rows, cols []int, values []float64) error {
	if err := a.live(); err != nil {
		return err
	}
	if values == nil {
		a.metrics.callback("hessian_structure")
		if len(rows) != len(a.hess) || len(cols) != len(a.hess) {
			return structureErr("hessian structure", len(a.hess), len(rows), len(cols))
		}
		off := a.opts.style.Offset()
		for k, e := range a.hess {
			rows[k] = e.row.Index() + off
			cols[k] = e.col.Index() + off
		}
		return nil
	}

	if err := a.checkLen("hessian", len(a.hess), values); err != nil {
		return err
	}
	if err := a.checkLen("lambda", len(a.cons), lambda); err != nil {
		return err
	}
	if err := a.prepare("hessian", x, newX); err != nil {
		return err
	}

	// Columns are computed per component up front so the fan-out touches
	// each tape from exactly one goroutine.
	if objFactor != 0 {
		a.obj.PrepareHessian(a.objCols...)
	}
	err := a.parallel(len(a.cons), func(i int) {
		if lambda[i] != 0 {
			a.cons[i].PrepareHessian(a.conCols[i]...)
		}
	})
	if err != nil {
		return err
	}

	for k, e := range a.hess {
		var h float64
		if e.objective && objFactor != 0 {
			h += objFactor * a.obj.SecondDerivative(e.row, e.col)
		}
		for _, c := range e.cons {
			if l := lambda[c.Index()]; l != 0 {
				h += l * c.SecondDerivative(e.row, e.col)
			}
		}
		values[k] = h
	}
	return nil
}

// prepare counts the callback and moves the model to x when the solver
// reports a new point. The first evaluating callback always loads x, since
// no cached values exist yet.
func (a *Adapter) prepare(callback string, x []float64, newX bool) error {
	if err := a.live(); err != nil {
		return err
	}
	a.metrics.callback(callback)
	if !newX && a.evaluated {
		return nil
	}
	if err := a.checkLen("x", len(a.vars), x); err != nil {
		return err
	}
	return a.setPoint(x)
}

// setPoint writes x into the variables and evaluates every component once.
func (a *Adapter) setPoint(x []float64) error {
	for i, v := range a.vars {
		v.SetValue(x[i])
	}
	a.metrics.points.Inc()
	a.epoch++

	f := a.obj.Evaluate()
	if err := a.parallel(len(a.cons), func(i int) { a.cons[i].Evaluate() }); err != nil {
		return err
	}
	a.evaluated = true

	if a.logger.IsDebug() {
		a.logNonFinite(f)
	}
	return nil
}

func (a *Adapter) logNonFinite(f float64) {
	if !finite(f) {
		a.logger.Debug("objective is not finite", "epoch", a.epoch, "value", f)
	}
	for _, c := range a.cons {
		if v := c.Value(); !finite(v) {
			a.logger.Debug("constraint is not finite", "epoch", a.epoch, "constraint", c.Name, "value", v)
		}
	}
}

// parallel runs fn(0..n-1) on up to opts.workers goroutines. Each index
// touches a distinct tape; variables are only read.
func (a *Adapter) parallel(n int, fn func(i int)) error {
	return parallel.For(n, func(i int) error {
		fn(i)
		return nil
	}, parallel.Config{Workers: a.opts.workers, MinChunkSize: 1})
}

func structureErr(what string, want, rows, cols int) error {
	return fmt.Errorf("%w: %s has %d rows and %d cols, want %d", ErrDimension, what, rows, cols, want)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
