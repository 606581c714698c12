package gosam

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Graph is an ordered collection of factors. Factor order affects only the
// row ordering of the assembled system, not correctness. Graphs are mutated
// only by appending factors before optimization begins.
type Graph struct {
	factors []*Factor
	workers int
	pattern *sparsityPattern
}

// NewGraph returns an empty graph.
func NewGraph() *Graph { return &Graph{} }

// AddFactor appends a factor, invalidating any cached sparsity pattern.
func (g *Graph) AddFactor(f *Factor) {
	g.factors = append(g.factors, f)
	g.pattern = nil
}

// Len returns the number of factors.
func (g *Graph) Len() int { return len(g.factors) }

// SetWorkers bounds the goroutines used to linearize factors in parallel.
// Zero or one keeps linearization sequential.
func (g *Graph) SetWorkers(n int) { g.workers = n }

// Error sums the robust-weighted error of every factor at values.
func (g *Graph) Error(values *Values) (float64, error) {
	total := 0.0
	for _, f := range g.factors {
		e, err := f.Error(values)
		if err != nil {
			return 0, err
		}
		total += e
	}
	return total, nil
}

// SparsityPattern returns the symbolic non-zero structure of the stacked
// Jacobian under order, computing it on first use and reusing it for every
// subsequent linearization with the same ordering.
func (g *Graph) SparsityPattern(order *GraphOrder) (*sparsityPattern, error) {
	if g.pattern != nil && g.pattern.orderPrint == order.Fingerprint() {
		return g.pattern, nil
	}
	p, err := newSparsityPattern(g.factors, order)
	if err != nil {
		return nil, err
	}
	g.pattern = p
	return p, nil
}

// Linearize produces the LinearGraph at values. Factors are independent pure
// computations, so with SetWorkers > 1 they are linearized concurrently;
// each writes only its own slot.
func (g *Graph) Linearize(values *Values) (*LinearGraph, error) {
	out := make([]*LinearFactor, len(g.factors))
	if g.workers > 1 {
		var eg errgroup.Group
		eg.SetLimit(g.workers)
		for i, f := range g.factors {
			i, f := i, f
			eg.Go(func() error {
				lf, err := f.Linearize(values)
				if err != nil {
					return err
				}
				out[i] = lf
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, f := range g.factors {
			lf, err := f.Linearize(values)
			if err != nil {
				return nil, err
			}
			out[i] = lf
		}
	}
	return &LinearGraph{factors: out}, nil
}

// LinearGraph is the fully assembled linear system for one linearization
// point, kept factor-wise until ResidualJacobian scatters it.
type LinearGraph struct {
	factors []*LinearFactor
}

// NewLinearGraph wraps a list of linear factors, for tests and custom
// assembly.
func NewLinearGraph(factors []*LinearFactor) *LinearGraph {
	return &LinearGraph{factors: factors}
}

// Error evaluates the linear-model cost at a candidate delta.
func (lg *LinearGraph) Error(dx *LinearValues) (float64, error) {
	total := 0.0
	for _, lf := range lg.factors {
		e, err := lf.Error(dx)
		if err != nil {
			return 0, err
		}
		total += e
	}
	return total, nil
}

// ResidualJacobian stacks the factor residuals into a dense vector and
// scatters the dense Jacobian blocks into the cached sparse structure's
// numeric slots, in the exact order the symbolic pass discovered them.
func (lg *LinearGraph) ResidualJacobian(p *sparsityPattern) (*mat.VecDense, *sparse.CSR, error) {
	r := mat.NewVecDense(p.rows, nil)
	data := make([]float64, p.nnz())

	row := 0
	emit := 0
	for _, lf := range lg.factors {
		for i := 0; i < lf.Dim(); i++ {
			r.SetVec(row+i, lf.B.AtVec(i))
		}
		rows, cols := lf.A.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if emit >= len(p.slots) {
					return nil, nil, fmt.Errorf("%w: linear graph does not match cached sparsity pattern",
						ErrDimensionMismatch)
				}
				data[p.slots[emit]] += lf.A.At(i, j)
				emit++
			}
		}
		row += lf.Dim()
	}
	if emit != len(p.slots) || row != p.rows {
		return nil, nil, fmt.Errorf("%w: linear graph does not match cached sparsity pattern",
			ErrDimensionMismatch)
	}

	indptr := make([]int, len(p.indptr))
	copy(indptr, p.indptr)
	ind := make([]int, len(p.ind))
	copy(ind, p.ind)
	return r, sparse.NewCSR(p.rows, p.cols, indptr, ind, data), nil
}
