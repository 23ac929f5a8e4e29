// Package main provides the aml CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/born-ml/aml/internal/config"
	"github.com/born-ml/aml/internal/expr"
	"github.com/born-ml/aml/internal/model"
	"github.com/born-ml/aml/internal/nlp"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "aml",
		Short:         "Expression tapes and derivatives for nonlinear programs",
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.AddCommand(newVersionCmd(), newCheckCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aml %s\n", version)
		},
	}
}

func newCheckCmd() *cobra.Command {
	var (
		configPath string
		x, y       float64
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the demo problem and verify its derivatives",
		Long: `check builds

    minimize  -x
    s.t.      0 <= x^2 + y^2 <= 25

prints every solver callback at (x, y) and compares the analytic
derivatives with central differences.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), cfg, x, y)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().Float64Var(&x, "x", 3, "x coordinate")
	cmd.Flags().Float64Var(&y, "y", 4, "y coordinate")
	return cmd
}

func runCheck(out io.Writer, cfg config.Config, x0, y0 float64) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "aml",
		Level:  cfg.Level(),
		Output: os.Stderr,
	})

	m := model.New()
	defer m.Close()
	x := m.NewVariable("x", x0, -10, 10)
	y := m.NewVariable("y", y0, -10, 10)
	two := expr.Float(2)
	if _, err := m.AddConstraint("circle", expr.Add(expr.Pow(x, two), expr.Pow(y, two)), 0, 25); err != nil {
		return err
	}
	if err := m.SetObjective(expr.Neg(x)); err != nil {
		return err
	}

	opts, err := nlp.FromConfig(cfg)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	opts = append(opts, nlp.WithLogger(logger), nlp.WithRegisterer(reg))

	a, err := nlp.New(m, opts...)
	if err != nil {
		return err
	}
	dims := a.Dimensions()
	fmt.Fprintf(out, "variables=%d constraints=%d nnz_jac=%d nnz_hess=%d index_style=%s\n",
		dims.NumVars, dims.NumCons, dims.NNZJacobian, dims.NNZHessian, dims.IndexStyle)

	pt := []float64{x0, y0}
	f, err := a.Objective(pt, true)
	if err != nil {
		return err
	}
	grad := make([]float64, dims.NumVars)
	if err := a.Gradient(pt, false, grad); err != nil {
		return err
	}
	g := make([]float64, dims.NumCons)
	if err := a.Constraints(pt, false, g); err != nil {
		return err
	}
	fmt.Fprintf(out, "objective=%g gradient=%v constraints=%v\n", f, grad, g)

	rows, cols := make([]int, dims.NNZJacobian), make([]int, dims.NNZJacobian)
	vals := make([]float64, dims.NNZJacobian)
	if err := a.Jacobian(nil, false, rows, cols, nil); err != nil {
		return err
	}
	if err := a.Jacobian(pt, false, nil, nil, vals); err != nil {
		return err
	}
	printSparse(out, "jacobian", rows, cols, vals)

	rows, cols = make([]int, dims.NNZHessian), make([]int, dims.NNZHessian)
	vals = make([]float64, dims.NNZHessian)
	lambda := make([]float64, dims.NumCons)
	for i := range lambda {
		lambda[i] = 1
	}
	if err := a.Hessian(nil, false, 0, nil, rows, cols, nil); err != nil {
		return err
	}
	if err := a.Hessian(pt, false, 1, lambda, nil, nil, vals); err != nil {
		return err
	}
	printSparse(out, "hessian", rows, cols, vals)

	mismatches, err := a.CheckDerivatives(pt, cfg.Check.Step, cfg.Check.Tolerance)
	if err != nil {
		return err
	}
	for _, mm := range mismatches {
		fmt.Fprintln(out, "mismatch:", mm)
	}
	fmt.Fprintf(out, "derivative check: %d mismatches\n", len(mismatches))

	if cfg.Metrics.Enabled {
		if err := printMetrics(out, reg); err != nil {
			return err
		}
	}
	return nil
}

func printSparse(out io.Writer, name string, rows, cols []int, vals []float64) {
	fmt.Fprintf(out, "%s:", name)
	for k := range vals {
		fmt.Fprintf(out, " (%d,%d)=%g", rows[k], cols[k], vals[k])
	}
	fmt.Fprintln(out)
}

func printMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := ""
			for _, lp := range metric.GetLabel() {
				labels += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			fmt.Fprintf(out, "%s%s %g\n", mf.GetName(), labels, metric.GetCounter().GetValue())
		}
	}
	return nil
}
