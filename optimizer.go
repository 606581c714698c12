package gosam

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// logger reports optimizer progress. It is silent unless SetLogger installs
// a real sink.
var logger = log.New(io.Discard)

// SetLogger installs the logger used for per-iteration progress and observer
// failures.
func SetLogger(l *log.Logger) { logger = l }

// OptimizerParams controls the outer iteration loop shared by all
// optimizers.
type OptimizerParams struct {
	// MaxIterations bounds the number of steps before giving up.
	MaxIterations int `yaml:"max_iterations"`
	// ErrorTol stops as soon as the total error drops below it.
	ErrorTol float64 `yaml:"error_tol"`
	// ErrorTolAbsolute stops when one step reduces the error by no more
	// than this.
	ErrorTolAbsolute float64 `yaml:"error_tol_absolute"`
	// ErrorTolRelative stops when the relative per-step reduction falls to
	// or below this.
	ErrorTolRelative float64 `yaml:"error_tol_relative"`
	// Convention selects the retraction applied when updating values. It
	// must match the convention of every residual in the graph.
	Convention Convention `yaml:"convention"`
	// Workers bounds parallel factor linearization; zero or one is
	// sequential.
	Workers int `yaml:"workers"`
}

// DefaultOptimizerParams returns the standard loop configuration.
func DefaultOptimizerParams() OptimizerParams {
	return OptimizerParams{
		MaxIterations:    100,
		ErrorTol:         0,
		ErrorTolAbsolute: 1e-6,
		ErrorTolRelative: 1e-6,
		Convention:       ConventionRight,
	}
}

// Observer is notified after every accepted iteration with the iteration
// number, the total error and the current estimate. Observers must treat the
// values as read-only.
type Observer interface {
	OnIteration(iter int, err float64, values *Values)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(iter int, err float64, values *Values)

// OnIteration implements the Observer interface.
func (f ObserverFunc) OnIteration(iter int, err float64, values *Values) {
	f(iter, err, values)
}

// notifyObservers calls every observer, isolating the optimizer from a
// panicking observer.
func notifyObservers(obs []Observer, iter int, err float64, values *Values) {
	for _, o := range obs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("observer panicked", "iter", iter, "recover", r)
				}
			}()
			o.OnIteration(iter, err, values)
		}()
	}
}

// runLoop drives the shared convergence loop: step, re-evaluate, notify,
// check tolerances. On exhaustion it returns the last values together with
// ErrMaxIterations so the caller keeps the best estimate reached.
func runLoop(graph *Graph, params OptimizerParams, obs []Observer, values *Values,
	step func(values *Values, iter int) error) (*Values, error) {

	errOld, err := graph.Error(values)
	if err != nil {
		return nil, err
	}
	logger.Info("starting optimization", "error", errOld, "factors", graph.Len(), "variables", values.Len())
	if errOld <= params.ErrorTol {
		logger.Info("converged", "reason", "error tolerance", "error", errOld)
		return values, nil
	}

	for i := 1; i <= params.MaxIterations; i++ {
		if err := step(values, i); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		errNew, err := graph.Error(values)
		if err != nil {
			return nil, err
		}
		absDiff := errOld - errNew
		relDiff := absDiff / errOld
		logger.Info("iteration", "iter", i, "error", errNew, "abs", absDiff, "rel", relDiff)
		notifyObservers(obs, i, errNew, values)

		if errNew <= params.ErrorTol {
			logger.Info("converged", "reason", "error tolerance", "iters", i)
			return values, nil
		}
		if absDiff <= params.ErrorTolAbsolute {
			logger.Info("converged", "reason", "absolute decrease", "iters", i)
			return values, nil
		}
		if relDiff <= params.ErrorTolRelative {
			logger.Info("converged", "reason", "relative decrease", "iters", i)
			return values, nil
		}
		errOld = errNew
	}
	return values, fmt.Errorf("%w after %d iterations", ErrMaxIterations, params.MaxIterations)
}

// GaussNewton iterates full Gauss-Newton steps: linearize, solve the
// least-squares subproblem, retract. Fast near the solution, with no
// safeguard against a step that increases the error.
type GaussNewton struct {
	Params    OptimizerParams
	graph     *Graph
	solver    LinearSolver
	observers []Observer

	order   *GraphOrder
	pattern *sparsityPattern
}

// NewGaussNewton returns a Gauss-Newton optimizer over graph with default
// parameters and a Cholesky solver.
func NewGaussNewton(graph *Graph) *GaussNewton {
	return &GaussNewton{
		Params: DefaultOptimizerParams(),
		graph:  graph,
		solver: NewCholeskySolver(),
	}
}

// SetSolver replaces the linear solver.
func (gn *GaussNewton) SetSolver(s LinearSolver) { gn.solver = s }

// AddObserver registers an iteration observer.
func (gn *GaussNewton) AddObserver(o Observer) {
	gn.observers = append(gn.observers, o)
}

// Optimize refines values in place until convergence. On ErrMaxIterations
// the values of the last iteration are returned alongside the error.
func (gn *GaussNewton) Optimize(values *Values) (*Values, error) {
	if err := gn.init(values); err != nil {
		return nil, err
	}
	return runLoop(gn.graph, gn.Params, gn.observers, values, gn.step)
}

func (gn *GaussNewton) init(values *Values) error {
	gn.graph.SetWorkers(gn.Params.Workers)
	gn.order = NewGraphOrder(values)
	pattern, err := gn.graph.SparsityPattern(gn.order)
	if err != nil {
		return err
	}
	gn.pattern = pattern
	return nil
}

func (gn *GaussNewton) step(values *Values, iter int) error {
	lg, err := gn.graph.Linearize(values)
	if err != nil {
		return err
	}
	r, j, err := lg.ResidualJacobian(gn.pattern)
	if err != nil {
		return err
	}
	dx, err := gn.solver.SolveLstSq(j, r)
	if err != nil {
		return err
	}
	delta, err := LinearValuesOf(gn.order, dx)
	if err != nil {
		return err
	}
	return values.Oplus(delta, gn.Params.Convention)
}
