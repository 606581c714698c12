package gosam

import "math"

// RobustCost is an M-estimator kernel. Since most kernels use the squared
// residual norm, both methods take d² rather than d. Implementations satisfy
// Weight(d²) == loss'(d)/d for d > 0 and Loss(0) == 0; NumericalDerivative is
// handy for checking custom kernels.
type RobustCost interface {
	// Loss computes ρ(d²).
	Loss(d2 float64) float64
	// Weight computes ρ'(d)/d.
	Weight(d2 float64) float64
}

// Default kernel tuning constants, chosen for 95% asymptotic efficiency on
// the normal distribution.
const (
	DefaultHuberK        = 1.345
	DefaultFairC         = 1.3998
	DefaultCauchyC       = 2.3849
	DefaultGemanMcClureC = 1.3998
	DefaultWelschC       = 2.9846
	DefaultTukeyC        = 4.6851
)

// L2 is the plain quadratic loss: no reweighting. It is the default kernel.
type L2 struct{}

// Loss implements the RobustCost interface.
func (L2) Loss(d2 float64) float64 { return d2 / 2 }

// Weight implements the RobustCost interface.
func (L2) Weight(float64) float64 { return 1 }

// L1 is the absolute loss, linear in the residual norm.
type L1 struct{}

// Loss implements the RobustCost interface.
func (L1) Loss(d2 float64) float64 { return math.Sqrt(d2) }

// Weight implements the RobustCost interface.
func (L1) Weight(d2 float64) float64 {
	if d2 <= 1e-3 {
		return 1
	}
	return 1 / math.Sqrt(d2)
}

// Huber is quadratic inside |d| <= k and linear outside.
type Huber struct {
	k float64
}

// NewHuber returns a Huber kernel with threshold k.
func NewHuber(k float64) Huber { return Huber{k: k} }

// Loss implements the RobustCost interface.
func (h Huber) Loss(d2 float64) float64 {
	if d2 <= h.k*h.k {
		return d2 / 2
	}
	d := math.Sqrt(d2)
	return h.k * (d - h.k/2)
}

// Weight implements the RobustCost interface.
func (h Huber) Weight(d2 float64) float64 {
	d := math.Sqrt(d2)
	if d <= h.k {
		return 1
	}
	return h.k / d
}

// Fair has continuous first derivatives and linear asymptotic behavior.
type Fair struct {
	c float64
}

// NewFair returns a Fair kernel with scale c.
func NewFair(c float64) Fair { return Fair{c: c} }

// Loss implements the RobustCost interface.
func (f Fair) Loss(d2 float64) float64 {
	d := math.Sqrt(d2)
	return f.c * f.c * (d/f.c - math.Log(1+d/f.c))
}

// Weight implements the RobustCost interface.
func (f Fair) Weight(d2 float64) float64 {
	return 1 / (1 + math.Sqrt(d2)/f.c)
}

// Cauchy has constant asymptotic behavior; strong outlier rejection but
// sensitive to initialization.
type Cauchy struct {
	c2 float64
}

// NewCauchy returns a Cauchy kernel with scale c.
func NewCauchy(c float64) Cauchy { return Cauchy{c2: c * c} }

// Loss implements the RobustCost interface.
func (c Cauchy) Loss(d2 float64) float64 {
	return c.c2 * math.Log(1+d2/c.c2) / 2
}

// Weight implements the RobustCost interface.
func (c Cauchy) Weight(d2 float64) float64 {
	return 1 / (1 + d2/c.c2)
}

// GemanMcClure saturates at c²/2 for large residuals.
type GemanMcClure struct {
	c2 float64
}

// NewGemanMcClure returns a Geman-McClure kernel with scale c.
func NewGemanMcClure(c float64) GemanMcClure { return GemanMcClure{c2: c * c} }

// Loss implements the RobustCost interface.
func (g GemanMcClure) Loss(d2 float64) float64 {
	return 0.5 * g.c2 * d2 / (g.c2 + d2)
}

// Weight implements the RobustCost interface.
func (g GemanMcClure) Weight(d2 float64) float64 {
	frac := g.c2 / (g.c2 + d2)
	return frac * frac
}

// Welsch down-weights exponentially in the squared residual.
type Welsch struct {
	c2 float64
}

// NewWelsch returns a Welsch kernel with scale c.
func NewWelsch(c float64) Welsch { return Welsch{c2: c * c} }

// Loss implements the RobustCost interface.
func (w Welsch) Loss(d2 float64) float64 {
	return w.c2 * (1 - math.Exp(-d2/w.c2)) / 2
}

// Weight implements the RobustCost interface.
func (w Welsch) Weight(d2 float64) float64 {
	return math.Exp(-d2 / w.c2)
}

// Tukey rejects residuals beyond c entirely.
type Tukey struct {
	c2 float64
}

// NewTukey returns a Tukey biweight kernel with scale c.
func NewTukey(c float64) Tukey { return Tukey{c2: c * c} }

// Loss implements the RobustCost interface.
func (t Tukey) Loss(d2 float64) float64 {
	if d2 <= t.c2 {
		u := 1 - d2/t.c2
		return t.c2 * (1 - u*u*u) / 6
	}
	return t.c2 / 6
}

// Weight implements the RobustCost interface.
func (t Tukey) Weight(d2 float64) float64 {
	if d2 <= t.c2 {
		u := 1 - d2/t.c2
		return u * u
	}
	return 0
}
