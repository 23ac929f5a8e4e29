package nlp

import (
	"fmt"
	"math"
)

// Mismatch is a derivative whose analytic and central-difference values
// disagree beyond the tolerance.
type Mismatch struct {
	Component string // "objective" or the constraint name
	Variable  string
	Analytic  float64
	Numeric   float64
	RelError  float64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("d %s / d %s: analytic %g, numeric %g (rel. error %.3g)",
		m.Component, m.Variable, m.Analytic, m.Numeric, m.RelError)
}

// CheckDerivatives compares the objective gradient and the constraint
// Jacobian at x against central differences with the given step. An entry
// mismatches when |analytic-numeric| / max(1, |analytic|, |numeric|) > tol.
// The model is left evaluated at x.
func (a *Adapter) CheckDerivatives(x []float64, step, tol float64) ([]Mismatch, error) {
	if err := a.live(); err != nil {
		return nil, err
	}
	if err := a.checkLen("x", len(a.vars), x); err != nil {
		return nil, err
	}
	if step <= 0 || tol <= 0 {
		return nil, fmt.Errorf("nlp: derivative check needs positive step and tolerance, got %g and %g", step, tol)
	}

	if err := a.setPoint(x); err != nil {
		return nil, err
	}
	objGrad := make([]float64, len(a.vars))
	g := a.obj.Gradient()
	for i, v := range a.vars {
		objGrad[i] = g[v]
	}
	jac := make([]float64, len(a.jac))
	for k, e := range a.jac {
		jac[k] = e.con.Derivative(e.v)
	}

	// Central differences: one pair of evaluations per variable.
	fPlus := make([]float64, len(a.vars))
	fMinus := make([]float64, len(a.vars))
	gPlus := make([][]float64, len(a.vars))
	gMinus := make([][]float64, len(a.vars))
	xp := append([]float64(nil), x...)
	for i := range a.vars {
		xp[i] = x[i] + step
		if err := a.setPoint(xp); err != nil {
			return nil, err
		}
		fPlus[i], gPlus[i] = a.obj.Value(), a.constraintValues()

		xp[i] = x[i] - step
		if err := a.setPoint(xp); err != nil {
			return nil, err
		}
		fMinus[i], gMinus[i] = a.obj.Value(), a.constraintValues()
		xp[i] = x[i]
	}
	if err := a.setPoint(x); err != nil {
		return nil, err
	}

	var out []Mismatch
	check := func(component, variable string, analytic, numeric float64) {
		rel := math.Abs(analytic-numeric) / math.Max(1, math.Max(math.Abs(analytic), math.Abs(numeric)))
		if rel > tol || math.IsNaN(rel) {
			out = append(out, Mismatch{
				Component: component,
				Variable:  variable,
				Analytic:  analytic,
				Numeric:   numeric,
				RelError:  rel,
			})
		}
	}
	for i, v := range a.vars {
		check("objective", v.String(), objGrad[i], (fPlus[i]-fMinus[i])/(2*step))
	}
	for k, e := range a.jac {
		i, r := e.v.Index(), e.con.Index()
		check(e.con.Name, e.v.String(), jac[k], (gPlus[i][r]-gMinus[i][r])/(2*step))
	}

	a.logger.Debug("derivative check", "step", step, "tolerance", tol, "mismatches", len(out))
	return out, nil
}

func (a *Adapter) constraintValues() []float64 {
	g := make([]float64, len(a.cons))
	for i, c := range a.cons {
		g[i] = c.Value()
	}
	return g
}
