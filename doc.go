// Package gosam implements a nonlinear least-squares solver for state
// estimation over manifold-valued variables, built around the factor-graph
// formulation used in robotics and SLAM backends.
//
// A problem is posed as a Graph of Factors (residual + noise model + robust
// kernel over a set of variable Keys) together with an initial Values
// estimate. The GaussNewton and LevenbergMarquardt optimizers repeatedly
// linearize the graph, solve the resulting sparse least-squares system, and
// retract the estimate on its manifold until convergence.
//
// Jacobians are exact: residuals are differentiated with forward-mode
// automatic differentiation via dual numbers (see Dual and ForwardProp).
// Central-difference numerical differentiation (NumericalDiff) is available
// as a drop-in cross-check.
package gosam
