package gosam

import (
	"errors"
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// SparseMatrix is the read-only sparse surface the solvers consume. Both
// sparse.CSR and the damped wrapper used by Levenberg-Marquardt satisfy it.
type SparseMatrix interface {
	mat.Matrix
	// DoNonZero visits every stored element.
	DoNonZero(fn func(i, j int, v float64))
	// NNZ returns the number of stored elements.
	NNZ() int
}

// LinearSolver solves the linear subproblem of one optimizer step. Solvers
// may keep factorization workspaces between calls; workspaces are reallocated
// whenever the system shape changes.
type LinearSolver interface {
	// SolveSymmetric solves a·x = b for symmetric positive definite a, the
	// normal-equations form used by Levenberg-Marquardt.
	SolveSymmetric(a SparseMatrix, b mat.Vector) (*mat.VecDense, error)
	// SolveLstSq solves min ‖a·x − b‖² for a tall (or square) a, the form
	// used by Gauss-Newton.
	SolveLstSq(a *sparse.CSR, b mat.Vector) (*mat.VecDense, error)
}

// normalEquations forms aᵀa and aᵀb.
func normalEquations(a *sparse.CSR, b mat.Vector) (*sparse.CSR, *mat.VecDense) {
	var ata sparse.CSR
	ata.Mul(a.T(), a)
	_, cols := a.Dims()
	atb := mat.NewVecDense(cols, nil)
	atb.MulVec(a.T(), b)
	return &ata, atb
}

// denseSym gathers a sparse symmetric matrix into a reusable SymDense.
func denseSym(a SparseMatrix, ws *mat.SymDense) (*mat.SymDense, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: symmetric solve on a %dx%d system", ErrInvalidSystem, rows, cols)
	}
	if ws == nil || ws.SymmetricDim() != rows {
		ws = mat.NewSymDense(rows, nil)
	} else {
		ws.Zero()
	}
	a.DoNonZero(func(i, j int, v float64) {
		if j >= i {
			ws.SetSym(i, j, v)
		}
	})
	return ws, nil
}

// CholeskySolver solves via Cholesky factorization of the normal equations.
// It is the fastest of the solvers and the default, at the cost of squaring
// the condition number of the problem.
type CholeskySolver struct {
	chol mat.Cholesky
	sym  *mat.SymDense
}

// NewCholeskySolver returns a Cholesky solver with an empty workspace.
func NewCholeskySolver() *CholeskySolver { return &CholeskySolver{} }

// SolveSymmetric implements the LinearSolver interface.
func (s *CholeskySolver) SolveSymmetric(a SparseMatrix, b mat.Vector) (*mat.VecDense, error) {
	sym, err := denseSym(a, s.sym)
	if err != nil {
		return nil, err
	}
	s.sym = sym
	if ok := s.chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%w: Cholesky factorization failed", ErrNotPositiveDefinite)
	}
	x := mat.NewVecDense(b.Len(), nil)
	if err := s.chol.SolveVecTo(x, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}
	return x, nil
}

// SolveLstSq implements the LinearSolver interface.
func (s *CholeskySolver) SolveLstSq(a *sparse.CSR, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if rows < cols {
		return nil, fmt.Errorf("%w: %d residual rows for %d unknowns", ErrInvalidSystem, rows, cols)
	}
	ata, atb := normalEquations(a, b)
	return s.SolveSymmetric(ata, atb)
}

// QRSolver solves the least-squares system directly by QR factorization,
// avoiding the normal equations and their conditioning penalty.
type QRSolver struct {
	qr    mat.QR
	dense *mat.Dense
}

// NewQRSolver returns a QR solver with an empty workspace.
func NewQRSolver() *QRSolver { return &QRSolver{} }

// SolveSymmetric implements the LinearSolver interface.
func (s *QRSolver) SolveSymmetric(a SparseMatrix, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: symmetric solve on a %dx%d system", ErrInvalidSystem, rows, cols)
	}
	return s.solve(a, b)
}

// SolveLstSq implements the LinearSolver interface.
func (s *QRSolver) SolveLstSq(a *sparse.CSR, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if rows < cols {
		return nil, fmt.Errorf("%w: %d residual rows for %d unknowns", ErrInvalidSystem, rows, cols)
	}
	return s.solve(a, b)
}

func (s *QRSolver) solve(a SparseMatrix, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if s.dense == nil {
		s.dense = mat.NewDense(rows, cols, nil)
	} else if r, c := s.dense.Dims(); r != rows || c != cols {
		s.dense = mat.NewDense(rows, cols, nil)
	} else {
		s.dense.Zero()
	}
	a.DoNonZero(func(i, j int, v float64) { s.dense.Set(i, j, v) })

	s.qr.Factorize(s.dense)
	x := mat.NewVecDense(cols, nil)
	if err := s.qr.SolveVecTo(x, false, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return x, nil
}

// LUSolver solves the normal equations by LU factorization. It does not
// exploit symmetry but tolerates indefinite systems that Cholesky rejects.
// An ill-conditioned (but non-singular) factorization still yields a
// solution.
type LUSolver struct {
	lu    mat.LU
	dense *mat.Dense
}

// NewLUSolver returns an LU solver with an empty workspace.
func NewLUSolver() *LUSolver { return &LUSolver{} }

// SolveSymmetric implements the LinearSolver interface.
func (s *LUSolver) SolveSymmetric(a SparseMatrix, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: symmetric solve on a %dx%d system", ErrInvalidSystem, rows, cols)
	}
	if s.dense == nil || !sameDims(s.dense, rows, cols) {
		s.dense = mat.NewDense(rows, cols, nil)
	} else {
		s.dense.Zero()
	}
	a.DoNonZero(func(i, j int, v float64) { s.dense.Set(i, j, v) })

	s.lu.Factorize(s.dense)
	x := mat.NewVecDense(cols, nil)
	if err := s.lu.SolveVecTo(x, false, b); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			// Ill-conditioned but solvable; the step is still usable.
			return x, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return x, nil
}

// SolveLstSq implements the LinearSolver interface.
func (s *LUSolver) SolveLstSq(a *sparse.CSR, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if rows < cols {
		return nil, fmt.Errorf("%w: %d residual rows for %d unknowns", ErrInvalidSystem, rows, cols)
	}
	ata, atb := normalEquations(a, b)
	return s.SolveSymmetric(ata, atb)
}

func sameDims(m mat.Matrix, rows, cols int) bool {
	r, c := m.Dims()
	return r == rows && c == cols
}
