package gosam

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// LMParams controls the damping schedule of Levenberg-Marquardt.
type LMParams struct {
	// LambdaInit is the damping the optimizer (re)starts each Optimize
	// call with.
	LambdaInit float64 `yaml:"lambda_init"`
	// LambdaFactor scales lambda down on an accepted step and up on a
	// rejected one.
	LambdaFactor float64 `yaml:"lambda_factor"`
	// LambdaMin floors lambda after accepted steps.
	LambdaMin float64 `yaml:"lambda_min"`
	// LambdaMax aborts the step once lambda exceeds it.
	LambdaMax float64 `yaml:"lambda_max"`
	// DiagonalDamping scales the damping by the diagonal of the normal
	// matrix instead of the identity.
	DiagonalDamping bool `yaml:"diagonal_damping"`
}

// DefaultLMParams returns the standard damping schedule.
func DefaultLMParams() LMParams {
	return LMParams{
		LambdaInit:      1e-5,
		LambdaFactor:    10,
		LambdaMin:       0,
		LambdaMax:       1e5,
		DiagonalDamping: true,
	}
}

// dampedCSR presents JᵀJ + λ·D without materializing it, where D is either
// the identity or diag(JᵀJ). It satisfies SparseMatrix; the base matrix is
// never modified, so one assembly serves every lambda retry.
type dampedCSR struct {
	base *sparse.CSR
	// add is the per-diagonal damping term.
	add []float64
	// stored marks diagonals present in the base structure.
	stored []bool
}

func newDamped(base *sparse.CSR, lambda float64, diagonal bool) *dampedCSR {
	n, _ := base.Dims()
	d := &dampedCSR{
		base:   base,
		add:    make([]float64, n),
		stored: make([]bool, n),
	}
	base.DoNonZero(func(i, j int, v float64) {
		if i == j {
			d.stored[i] = true
		}
	})
	for i := 0; i < n; i++ {
		if diagonal {
			d.add[i] = lambda * base.At(i, i)
		} else {
			d.add[i] = lambda
		}
	}
	return d
}

// Dims implements the mat.Matrix interface.
func (d *dampedCSR) Dims() (int, int) { return d.base.Dims() }

// At implements the mat.Matrix interface.
func (d *dampedCSR) At(i, j int) float64 {
	v := d.base.At(i, j)
	if i == j {
		v += d.add[i]
	}
	return v
}

// T implements the mat.Matrix interface. The damped normal matrix is
// symmetric.
func (d *dampedCSR) T() mat.Matrix { return d }

// DoNonZero implements the SparseMatrix interface.
func (d *dampedCSR) DoNonZero(fn func(i, j int, v float64)) {
	d.base.DoNonZero(func(i, j int, v float64) {
		if i == j {
			v += d.add[i]
		}
		fn(i, j, v)
	})
	for i, ok := range d.stored {
		if !ok && d.add[i] != 0 {
			fn(i, i, d.add[i])
		}
	}
}

// NNZ implements the SparseMatrix interface.
func (d *dampedCSR) NNZ() int {
	n := d.base.NNZ()
	for i, ok := range d.stored {
		if !ok && d.add[i] != 0 {
			n++
		}
	}
	return n
}

// LevenbergMarquardt iterates damped Gauss-Newton steps, retrying each step
// with increasing damping until the linear model predicts a cost decrease.
type LevenbergMarquardt struct {
	Params    OptimizerParams
	LM        LMParams
	graph     *Graph
	solver    LinearSolver
	observers []Observer

	order   *GraphOrder
	pattern *sparsityPattern
	lambda  float64
}

// NewLevenbergMarquardt returns a Levenberg-Marquardt optimizer over graph
// with default parameters and a Cholesky solver.
func NewLevenbergMarquardt(graph *Graph) *LevenbergMarquardt {
	return &LevenbergMarquardt{
		Params: DefaultOptimizerParams(),
		LM:     DefaultLMParams(),
		graph:  graph,
		solver: NewCholeskySolver(),
	}
}

// SetSolver replaces the linear solver.
func (lm *LevenbergMarquardt) SetSolver(s LinearSolver) { lm.solver = s }

// AddObserver registers an iteration observer.
func (lm *LevenbergMarquardt) AddObserver(o Observer) {
	lm.observers = append(lm.observers, o)
}

// Lambda returns the current damping, for inspection between iterations.
func (lm *LevenbergMarquardt) Lambda() float64 { return lm.lambda }

// Optimize refines values in place until convergence. Damping restarts at
// LambdaInit on every call. On ErrMaxIterations the values of the last
// iteration are returned alongside the error; ErrFailedToStep means no
// acceptable step existed below LambdaMax.
func (lm *LevenbergMarquardt) Optimize(values *Values) (*Values, error) {
	if err := lm.init(values); err != nil {
		return nil, err
	}
	return runLoop(lm.graph, lm.Params, lm.observers, values, lm.step)
}

func (lm *LevenbergMarquardt) init(values *Values) error {
	lm.graph.SetWorkers(lm.Params.Workers)
	lm.lambda = lm.LM.LambdaInit
	lm.order = NewGraphOrder(values)
	pattern, err := lm.graph.SparsityPattern(lm.order)
	if err != nil {
		return err
	}
	lm.pattern = pattern
	return nil
}

func (lm *LevenbergMarquardt) step(values *Values, iter int) error {
	lg, err := lm.graph.Linearize(values)
	if err != nil {
		return err
	}
	r, j, err := lg.ResidualJacobian(lm.pattern)
	if err != nil {
		return err
	}
	ata, atb := normalEquations(j, r)

	errZero, err := lg.Error(NewLinearValues(lm.order))
	if err != nil {
		return err
	}

	for {
		damped := newDamped(ata, lm.lambda, lm.LM.DiagonalDamping)
		dx, err := lm.solver.SolveSymmetric(damped, atb)
		if err == nil {
			delta, derr := LinearValuesOf(lm.order, dx)
			if derr != nil {
				return derr
			}
			errDx, derr := lg.Error(delta)
			if derr != nil {
				return derr
			}
			if errDx < errZero {
				lm.lambda /= lm.LM.LambdaFactor
				if lm.lambda < lm.LM.LambdaMin {
					lm.lambda = lm.LM.LambdaMin
				}
				return values.Oplus(delta, lm.Params.Convention)
			}
			logger.Debug("step rejected", "iter", iter, "lambda", lm.lambda,
				"model_error", errDx, "model_error_zero", errZero)
		} else {
			logger.Debug("damped solve failed", "iter", iter, "lambda", lm.lambda, "err", err)
		}
		lm.lambda *= lm.LM.LambdaFactor
		if lm.lambda > lm.LM.LambdaMax {
			return fmt.Errorf("%w: lambda %.3g exceeds maximum %.3g",
				ErrFailedToStep, lm.lambda, lm.LM.LambdaMax)
		}
	}
}
