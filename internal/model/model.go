// Package model holds the state an NLP adapter works on: variables,
// constraints with bounds and duals, and an objective, each constraint and
// objective backed by a compiled tape.
//
// Example:
//
//	m := model.New()
//	x := m.NewVariable("x", 3, 0, 10)
//	y := m.NewVariable("y", 4, 0, 10)
//	two := expr.Float(2)
//	if _, err := m.AddConstraint("circle", expr.Add(expr.Pow(x, two), expr.Pow(y, two)), 0, 25); err != nil {
//	    return err
//	}
//	if err := m.SetObjective(expr.Neg(x)); err != nil {
//	    return err
//	}
//	defer m.Close()
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"

	"github.com/born-ml/aml/internal/expr"
)

var (
	// ErrUnknownVariable reports an expression reading a variable that was
	// not added to the model.
	ErrUnknownVariable = errors.New("model: variable not in model")

	// ErrDuplicateName reports two constraints or variables sharing a name.
	ErrDuplicateName = errors.New("model: duplicate name")

	// ErrBounds reports a lower bound above its upper bound.
	ErrBounds = errors.New("model: lower bound exceeds upper bound")
)

// Constraint is lb <= body <= ub.
type Constraint struct {
	*component

	Name string
	Lb   float64
	Ub   float64
	Dual float64 // Lagrange multiplier

	index int
}

// Value returns the body value from the last evaluation.
func (c *Constraint) Value() float64 { return c.value }

// Index returns the solver row, or -1 outside a solve.
func (c *Constraint) Index() int { return c.index }

// SetIndex assigns the solver row. Pass -1 to clear it.
func (c *Constraint) SetIndex(i int) { c.index = i }

// SetValue overwrites the stored body value, e.g. with a solver's final
// constraint values.
func (c *Constraint) SetValue(v float64) { c.value = v }

// Objective is the function to minimize.
type Objective struct {
	*component
}

// Value returns the objective value from the last evaluation.
func (o *Objective) Value() float64 { return o.value }

// SetValue overwrites the stored objective value.
func (o *Objective) SetValue(v float64) { o.value = v }

// Model is a collection of variables, constraints and one objective.
// It is not safe for concurrent mutation.
type Model struct {
	vars     []*expr.Variable
	varNames map[string]*expr.Variable
	varSet   map[*expr.Variable]struct{}

	cons     []*Constraint
	conNames map[string]*Constraint

	obj *Objective

	// SolverStatus is the outcome recorded by the last finalized solve.
	SolverStatus string

	observer Observer
}

// New creates an empty model.
func New() *Model {
	return &Model{
		varNames: make(map[string]*expr.Variable),
		varSet:   make(map[*expr.Variable]struct{}),
		conNames: make(map[string]*Constraint),
	}
}

// SetObserver installs a callback notified of every tape walk.
func (m *Model) SetObserver(o Observer) {
	m.observer = o
}

func (m *Model) observe(p Pass) {
	if m.observer != nil {
		m.observer(p)
	}
}

// NewVariable creates a variable and adds it to the model. It panics on a
// duplicate non-empty name.
func (m *Model) NewVariable(name string, value, lb, ub float64) *expr.Variable {
	v := expr.NewVariable(name, value, lb, ub)
	if err := m.AddVariable(v); err != nil {
		panic(err)
	}
	return v
}

// AddVariable adds an existing variable. Adding the same variable twice is
// a no-op.
func (m *Model) AddVariable(v *expr.Variable) error {
	if _, ok := m.varSet[v]; ok {
		return nil
	}
	if v.Name != "" {
		if _, ok := m.varNames[v.Name]; ok {
			return fmt.Errorf("%w: variable %q", ErrDuplicateName, v.Name)
		}
		m.varNames[v.Name] = v
	}
	m.varSet[v] = struct{}{}
	m.vars = append(m.vars, v)
	return nil
}

// Variable looks a variable up by name.
func (m *Model) Variable(name string) (*expr.Variable, bool) {
	v, ok := m.varNames[name]
	return v, ok
}

// Variables returns the model's variables in insertion order.
func (m *Model) Variables() []*expr.Variable {
	return m.vars
}

// AddConstraint compiles body and adds lb <= body <= ub.
func (m *Model) AddConstraint(name string, body expr.Node, lb, ub float64) (*Constraint, error) {
	if name != "" {
		if _, ok := m.conNames[name]; ok {
			return nil, fmt.Errorf("%w: constraint %q", ErrDuplicateName, name)
		}
	}
	comp, err := newComponent(m, body)
	if err != nil {
		return nil, fmt.Errorf("constraint %q: %w", name, err)
	}
	if err := m.checkVariables(comp); err != nil {
		comp.release()
		return nil, fmt.Errorf("constraint %q: %w", name, err)
	}

	c := &Constraint{component: comp, Name: name, Lb: lb, Ub: ub, index: -1}
	m.cons = append(m.cons, c)
	if name != "" {
		m.conNames[name] = c
	}
	return c, nil
}

// Constraint looks a constraint up by name.
func (m *Model) Constraint(name string) (*Constraint, bool) {
	c, ok := m.conNames[name]
	return c, ok
}

// Constraints returns the constraints in insertion order.
func (m *Model) Constraints() []*Constraint {
	return m.cons
}

// RemoveConstraint drops c from the model and releases its tape.
func (m *Model) RemoveConstraint(c *Constraint) bool {
	for i, other := range m.cons {
		if other != c {
			continue
		}
		m.cons = append(m.cons[:i], m.cons[i+1:]...)
		if c.Name != "" {
			delete(m.conNames, c.Name)
		}
		c.release()
		return true
	}
	return false
}

// SetObjective compiles body as the objective, releasing any previous one.
func (m *Model) SetObjective(body expr.Node) error {
	comp, err := newComponent(m, body)
	if err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	if err := m.checkVariables(comp); err != nil {
		comp.release()
		return fmt.Errorf("objective: %w", err)
	}
	if m.obj != nil {
		m.obj.release()
	}
	m.obj = &Objective{component: comp}
	return nil
}

// Objective returns the objective, or nil if none was set.
func (m *Model) Objective() *Objective {
	return m.obj
}

func (m *Model) checkVariables(c *component) error {
	var result *multierror.Error
	for _, v := range c.Variables() {
		if _, ok := m.varSet[v]; !ok {
			result = multierror.Append(result, fmt.Errorf("%w: %v", ErrUnknownVariable, v))
		}
	}
	return result.ErrorOrNil()
}

// Validate reports every bound inconsistency in the model.
func (m *Model) Validate() error {
	var result *multierror.Error
	for _, v := range m.vars {
		if v.Lb > v.Ub || math.IsNaN(v.Lb) || math.IsNaN(v.Ub) {
			result = multierror.Append(result, fmt.Errorf("%w: variable %v [%g, %g]", ErrBounds, v, v.Lb, v.Ub))
		}
	}
	for _, c := range m.cons {
		if c.Lb > c.Ub || math.IsNaN(c.Lb) || math.IsNaN(c.Ub) {
			result = multierror.Append(result, fmt.Errorf("%w: constraint %q [%g, %g]", ErrBounds, c.Name, c.Lb, c.Ub))
		}
	}
	return result.ErrorOrNil()
}

// Close releases every tape held by the model.
func (m *Model) Close() {
	for _, c := range m.cons {
		c.release()
	}
	if m.obj != nil {
		m.obj.release()
	}
}
