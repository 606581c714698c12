package gosam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NoiseModel whitens residual vectors and Jacobians by a square-root
// information transform, converting a weighted least-squares problem into a
// standard one. The model's dimension must equal the residual's output
// dimension.
type NoiseModel interface {
	Dim() int
	WhitenVec(r *mat.VecDense) *mat.VecDense
	WhitenMat(j *mat.Dense) *mat.Dense
	fmt.Stringer
}

// UnitNoise is the identity whitening transform, used as the default noise
// model when a factor specifies none.
type UnitNoise struct {
	n int
}

// NewUnitNoise returns a unit noise model of dimension n.
func NewUnitNoise(n int) UnitNoise { return UnitNoise{n: n} }

// Dim implements the NoiseModel interface.
func (u UnitNoise) Dim() int { return u.n }

// WhitenVec implements the NoiseModel interface.
func (u UnitNoise) WhitenVec(r *mat.VecDense) *mat.VecDense { return r }

// WhitenMat implements the NoiseModel interface.
func (u UnitNoise) WhitenMat(j *mat.Dense) *mat.Dense { return j }

// String implements the Stringer interface.
func (u UnitNoise) String() string { return fmt.Sprintf("UnitNoise(%d)", u.n) }

// GaussianNoise whitens by the square root of an information matrix.
type GaussianNoise struct {
	sqrtInf *mat.Dense
}

// Dim implements the NoiseModel interface.
func (g GaussianNoise) Dim() int {
	n, _ := g.sqrtInf.Dims()
	return n
}

// WhitenVec implements the NoiseModel interface.
func (g GaussianNoise) WhitenVec(r *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(r.Len(), nil)
	out.MulVec(g.sqrtInf, r)
	return out
}

// WhitenMat implements the NoiseModel interface.
func (g GaussianNoise) WhitenMat(j *mat.Dense) *mat.Dense {
	r, c := j.Dims()
	out := mat.NewDense(r, c, nil)
	out.Mul(g.sqrtInf, j)
	return out
}

// String implements the Stringer interface.
func (g GaussianNoise) String() string {
	return fmt.Sprintf("GaussianNoise(%d)", g.Dim())
}

// NewGaussianNoiseSigma returns an isotropic noise model of dimension n with
// standard deviation sigma on every component.
func NewGaussianNoiseSigma(n int, sigma float64) (GaussianNoise, error) {
	if sigma <= 0 {
		return GaussianNoise{}, fmt.Errorf("gosam: sigma must be positive, got %v", sigma)
	}
	sigmas := make([]float64, n)
	for i := range sigmas {
		sigmas[i] = sigma
	}
	return NewGaussianNoiseSigmas(sigmas...)
}

// NewGaussianNoiseSigmas returns a diagonal noise model from per-component
// standard deviations.
func NewGaussianNoiseSigmas(sigmas ...float64) (GaussianNoise, error) {
	sqrtInf := mat.NewDense(len(sigmas), len(sigmas), nil)
	for i, s := range sigmas {
		if s <= 0 {
			return GaussianNoise{}, fmt.Errorf("gosam: sigma must be positive, got %v at %d", s, i)
		}
		sqrtInf.Set(i, i, 1/s)
	}
	return GaussianNoise{sqrtInf: sqrtInf}, nil
}

// NewGaussianNoiseCovariances returns a diagonal noise model from
// per-component variances.
func NewGaussianNoiseCovariances(covs ...float64) (GaussianNoise, error) {
	sigmas := make([]float64, len(covs))
	for i, c := range covs {
		if c <= 0 {
			return GaussianNoise{}, fmt.Errorf("gosam: covariance must be positive, got %v at %d", c, i)
		}
		sigmas[i] = math.Sqrt(c)
	}
	return NewGaussianNoiseSigmas(sigmas...)
}

// NewGaussianNoiseInformation returns a noise model from a full information
// matrix, taking its upper Cholesky factor as the whitening transform.
func NewGaussianNoiseInformation(inf mat.Symmetric) (GaussianNoise, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(inf); !ok {
		return GaussianNoise{}, fmt.Errorf("%w: information matrix", ErrNotPositiveDefinite)
	}
	n := inf.SymmetricDim()
	var u mat.TriDense
	chol.UTo(&u)
	sqrtInf := mat.NewDense(n, n, nil)
	sqrtInf.Copy(&u)
	return GaussianNoise{sqrtInf: sqrtInf}, nil
}

// NewGaussianNoiseCovariance returns a noise model from a full covariance
// matrix by inverting it and Cholesky-factorizing the information.
func NewGaussianNoiseCovariance(cov mat.Symmetric) (GaussianNoise, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return GaussianNoise{}, fmt.Errorf("%w: covariance matrix", ErrNotPositiveDefinite)
	}
	var inf mat.SymDense
	if err := chol.InverseTo(&inf); err != nil {
		return GaussianNoise{}, fmt.Errorf("gosam: inverting covariance: %w", err)
	}
	return NewGaussianNoiseInformation(&inf)
}
