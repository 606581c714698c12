package gosam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertChainSolved(t *testing.T, result *Values) {
	t.Helper()
	want := []SE2{NewSE2(0, 0, 0), NewSE2(0, 2, 0), NewSE2(0, 4, 0)}
	for i, w := range want {
		got, err := result.SE2At(X(uint64(i)))
		require.NoError(t, err)
		assertSE2Equal(t, w, got, 1e-6)
	}
}

func TestGaussNewtonSolvesChain(t *testing.T) {
	g, v := chainProblem(t)
	opt := NewGaussNewton(g)
	result, err := opt.Optimize(v)
	require.NoError(t, err)
	assertChainSolved(t, result)
}

func TestGaussNewtonConvergesFast(t *testing.T) {
	// A two-pose problem with mild noise converges in a handful of steps.
	noise, err := NewGaussianNoiseSigma(3, 0.1)
	require.NoError(t, err)

	g := NewGraph()
	g.AddFactor(NewFactor(NewPriorResidual(NewSE2(0, 0, 0)), X(0)).Noise(noise).MustBuild())
	g.AddFactor(NewFactor(NewBetweenResidual(NewSE2(0.3, 1, 0)), X(0), X(1)).Noise(noise).MustBuild())

	v := NewValues()
	require.NoError(t, v.Insert(X(0), NewSE2(0.1, 0.2, -0.1)))
	require.NoError(t, v.Insert(X(1), NewSE2(0.5, 1.3, 0.4)))

	iters := 0
	opt := NewGaussNewton(g)
	opt.AddObserver(ObserverFunc(func(int, float64, *Values) { iters++ }))
	_, err = opt.Optimize(v)
	require.NoError(t, err)
	assert.LessOrEqual(t, iters, 5)
}

func TestGaussNewtonSolverChoices(t *testing.T) {
	for _, solver := range []LinearSolver{NewCholeskySolver(), NewQRSolver(), NewLUSolver()} {
		g, v := chainProblem(t)
		opt := NewGaussNewton(g)
		opt.SetSolver(solver)
		result, err := opt.Optimize(v)
		require.NoError(t, err, "%T", solver)
		assertChainSolved(t, result)
	}
}

func TestGaussNewtonParallelLinearization(t *testing.T) {
	g, v := chainProblem(t)
	opt := NewGaussNewton(g)
	opt.Params.Workers = 4
	result, err := opt.Optimize(v)
	require.NoError(t, err)
	assertChainSolved(t, result)
}

func TestOptimizeMaxIterations(t *testing.T) {
	g, v := chainProblem(t)
	opt := NewGaussNewton(g)
	opt.Params.MaxIterations = 1
	opt.Params.ErrorTolAbsolute = 0
	opt.Params.ErrorTolRelative = 0

	result, err := opt.Optimize(v)
	assert.ErrorIs(t, err, ErrMaxIterations)
	// The partially optimized values are still returned.
	require.NotNil(t, result)
	e, gerr := g.Error(result)
	require.NoError(t, gerr)
	initial := 0.0
	{
		_, fresh := chainProblem(t)
		initial, gerr = g.Error(fresh)
		require.NoError(t, gerr)
	}
	assert.Less(t, e, initial)
}

func TestObserverNotifiedEveryIteration(t *testing.T) {
	g, v := chainProblem(t)
	opt := NewGaussNewton(g)

	var iters []int
	var errs []float64
	opt.AddObserver(ObserverFunc(func(i int, e float64, _ *Values) {
		iters = append(iters, i)
		errs = append(errs, e)
	}))

	_, err := opt.Optimize(v)
	require.NoError(t, err)
	require.NotEmpty(t, iters)
	for i := range iters {
		assert.Equal(t, i+1, iters[i])
	}
	// Error never increases on this well-behaved problem.
	for i := 1; i < len(errs); i++ {
		assert.LessOrEqual(t, errs[i], errs[i-1])
	}
}

func TestObserverPanicIsolated(t *testing.T) {
	g, v := chainProblem(t)
	opt := NewGaussNewton(g)
	opt.AddObserver(ObserverFunc(func(int, float64, *Values) { panic("boom") }))

	result, err := opt.Optimize(v)
	require.NoError(t, err)
	assertChainSolved(t, result)
}

func TestOptimizeAlreadyConverged(t *testing.T) {
	g, _ := chainProblem(t)
	exact := NewValues()
	require.NoError(t, exact.Insert(X(0), NewSE2(0, 0, 0)))
	require.NoError(t, exact.Insert(X(1), NewSE2(0, 2, 0)))
	require.NoError(t, exact.Insert(X(2), NewSE2(0, 4, 0)))

	opt := NewGaussNewton(g)
	notified := false
	opt.AddObserver(ObserverFunc(func(int, float64, *Values) { notified = true }))

	result, err := opt.Optimize(exact)
	require.NoError(t, err)
	// Error is exactly zero, within ErrorTol, so no step runs.
	assert.False(t, notified)
	assertChainSolved(t, result)
}
