package nlp

// Finalize records the solver's final iterate on the model: variable values
// and bound duals, constraint values and duals, the objective value and the
// status mapped from code. It clears the per-solve indices; every later
// callback fails with ErrFinalized.
func (a *Adapter) Finalize(code OutcomeCode, x, zL, zU, g, lambda []float64, obj float64) error {
	if err := a.live(); err != nil {
		return err
	}
	if err := a.checkLen("x", len(a.vars), x, zL, zU); err != nil {
		return err
	}
	if err := a.checkLen("constraints", len(a.cons), g, lambda); err != nil {
		return err
	}

	for i, v := range a.vars {
		v.SetValue(x[i])
		v.LbDual = zL[i]
		v.UbDual = zU[i]
	}
	for i, c := range a.cons {
		c.SetValue(g[i])
		c.Dual = lambda[i]
		c.Invalidate()
	}
	a.obj.SetValue(obj)
	a.obj.Invalidate()

	status := StatusOf(code)
	a.model.SolverStatus = string(status)

	for _, v := range a.vars {
		v.SetIndex(-1)
	}
	for _, c := range a.cons {
		c.SetIndex(-1)
	}
	a.model.SetObserver(nil)
	a.vars, a.cons = nil, nil
	a.jac, a.hess = nil, nil
	a.objCols, a.conCols = nil, nil
	a.finalized = true

	a.logger.Info("solve finalized", "status", status, "code", int(code), "objective", obj, "points", a.epoch)
	return nil
}
