// Package lmfit implements a generic Levenberg–Marquardt nonlinear
// least-squares solver (spec §4.9). Problem-specific callers supply a
// model callback and, optionally, an analytic Jacobian; the solver itself
// has no knowledge of the problem domain, matching the teacher's pattern
// of passing callback pairs into a shared numerical driver rather than
// subclassing a solver base type.
package lmfit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularNormalEquations is returned when (JᵀWJ + λI) cannot be solved.
var ErrSingularNormalEquations = errors.New("lmfit: singular normal equations")

// ErrDampingExceeded is returned when the damping parameter λ exceeds
// LambdaMax without a step being accepted.
var ErrDampingExceeded = errors.New("lmfit: damping parameter exceeded maximum")

// ModelFunc evaluates the model at params, returning one value per
// observation.
type ModelFunc func(params []float64) []float64

// JacobianFunc evaluates the N×M Jacobian of ModelFunc at params. If nil,
// Solve uses a finite-difference approximation with per-parameter step
// sizes from Problem.StepSizes.
type JacobianFunc func(params []float64) *mat.Dense

// Problem bundles everything the solver needs: the model/Jacobian
// callbacks, the observed data, and its covariance.
type Problem struct {
	Model    ModelFunc
	Jacobian JacobianFunc

	// Observed holds the N observed values the model is fit against.
	Observed []float64

	// Weight is the N×N inverse data covariance (W in spec §4.9). If nil,
	// the identity is used (unweighted least squares).
	Weight *mat.Dense

	// StepSizes gives one finite-difference step per parameter, used only
	// when Jacobian is nil.
	StepSizes []float64

	// BoostFactor is b in spec §4.9's damping schedule. Zero selects the
	// spec's default of 10.
	BoostFactor float64

	// Tolerance is the relative χ² convergence tolerance. Zero selects
	// 1e-6.
	Tolerance float64

	// MaxIterations caps the number of accept/reject iterations. Zero
	// selects 500, per spec §4.5's LM refinement stopping condition.
	MaxIterations int

	// LambdaMax caps the damping parameter. Zero selects 1e12.
	LambdaMax float64

	// Renormalize is called after each accepted step, allowing the caller
	// to project params back onto a constraint manifold (e.g.
	// renormalizing a quaternion sub-block, per spec §4.5).
	Renormalize func(params []float64)
}

// Result carries the fitted parameters plus the post-fit diagnostics spec
// §4.9 requires: asymptotic standard errors and the parameter correlation
// matrix.
type Result struct {
	Params         []float64
	Iterations     int
	ChiSquare      float64
	DegreesOfFree  int
	StandardErrors []float64
	Correlation    *mat.Dense
	Converged      bool

	// ChiSquareHistory records χ² at the initial guess and after each
	// accepted step, for convergence-curve diagnostics.
	ChiSquareHistory []float64
}

// Solve runs the LM iteration described in spec §4.9 to convergence,
// rejection-cap abort, or iteration-limit exhaustion.
func Solve(initial []float64, p Problem) (Result, error) {
	m := len(initial)
	n := len(p.Observed)
	if m == 0 || n == 0 {
		return Result{}, fmt.Errorf("lmfit: empty parameter or observation vector")
	}
	if n < m {
		return Result{}, fmt.Errorf("lmfit: underdetermined problem (%d observations, %d parameters)", n, m)
	}

	boost := p.BoostFactor
	if boost == 0 {
		boost = 10
	}
	tol := p.Tolerance
	if tol == 0 {
		tol = 1e-6
	}
	maxIter := p.MaxIterations
	if maxIter == 0 {
		maxIter = 500
	}
	lambdaMax := p.LambdaMax
	if lambdaMax == 0 {
		lambdaMax = 1e12
	}

	weight := p.Weight
	if weight == nil {
		weight = identity(n)
	}

	theta := append([]float64(nil), initial...)
	observed := mat.NewVecDense(n, p.Observed)

	residualsVec := func(params []float64) *mat.VecDense {
		model := p.Model(params)
		r := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			r.SetVec(i, observed.AtVec(i)-model[i])
		}
		return r
	}

	jacobianAt := func(params []float64) *mat.Dense {
		if p.Jacobian != nil {
			return p.Jacobian(params)
		}
		return finiteDifferenceJacobian(p.Model, params, p.StepSizes, n)
	}

	chiSquare := func(r *mat.VecDense) float64 {
		var wr mat.VecDense
		wr.MulVec(weight, r)
		return mat.Dot(r, &wr)
	}

	r := residualsVec(theta)
	chiPrev := chiSquare(r)

	var lastJ *mat.Dense
	var lastNormal *mat.Dense
	lastJ = jacobianAt(theta)
	lastNormal = jtWJMat(lastJ, weight)
	lambda := mat.Trace(lastNormal) / (1000 * float64(m))

	result := Result{Params: theta, ChiSquare: chiPrev, ChiSquareHistory: []float64{chiPrev}}

	for iter := 0; iter < maxIter; iter++ {
		result.Iterations = iter + 1

		j := lastJ
		normal := lastNormal

		var jtWr mat.VecDense
		var wr mat.VecDense
		wr.MulVec(weight, r)
		jtWr.MulVec(j.T(), &wr)

		normalMatrix := mat.NewDense(m, m, nil)
		normalMatrix.Copy(normal)
		for i := 0; i < m; i++ {
			normalMatrix.Set(i, i, normalMatrix.At(i, i)+lambda)
		}

		var delta mat.VecDense
		if err := delta.SolveVec(normalMatrix, &jtWr); err != nil {
			return result, fmt.Errorf("%w: %v", ErrSingularNormalEquations, err)
		}

		candidate := make([]float64, m)
		for i := range candidate {
			candidate[i] = theta[i] + delta.AtVec(i)
		}
		if p.Renormalize != nil {
			p.Renormalize(candidate)
		}

		rCandidate := residualsVec(candidate)
		chiNew := chiSquare(rCandidate)

		// A candidate step landing on an exact zero residual is a perfect
		// fit, not a division by zero: treat it as "no meaningful change".
		var delta2 float64
		if chiNew == 0 {
			delta2 = 0
		} else {
			delta2 = (chiNew - chiPrev) / chiNew
		}

		switch {
		case delta2 < -tol:
			theta = candidate
			r = rCandidate
			chiPrev = chiNew
			lambda /= boost
			lastJ = jacobianAt(theta)
			lastNormal = jtWJMat(lastJ, weight)
			result.Params = theta
			result.ChiSquare = chiPrev
			result.ChiSquareHistory = append(result.ChiSquareHistory, chiPrev)
			continue
		case math.Abs(delta2) < tol:
			theta = candidate
			r = rCandidate
			chiPrev = chiNew
			result.Params = theta
			result.ChiSquare = chiPrev
			result.ChiSquareHistory = append(result.ChiSquareHistory, chiPrev)
			result.Converged = true
			return finishResult(result, lastJ, weight, n, m)
		default:
			lambda *= boost
			if lambda > lambdaMax {
				return result, ErrDampingExceeded
			}
		}
	}

	return finishResult(result, lastJ, weight, n, m)
}

func finishResult(result Result, j *mat.Dense, weight *mat.Dense, n, m int) (Result, error) {
	result.DegreesOfFree = n - m
	jtWJ := jtWJMat(j, weight)

	var inv mat.Dense
	if err := inv.Inverse(jtWJ); err != nil {
		// Singular covariance: report the fit without error bars rather
		// than failing the whole solve, since θ itself may still be
		// usable (matches spec §7's "fit terminates, previous retained on
		// failure" guidance only for failures *during* iteration, not
		// post-fit diagnostics).
		return result, nil
	}

	dofScale := 1.0
	if result.DegreesOfFree > 0 {
		dofScale = result.ChiSquare / float64(result.DegreesOfFree)
	}

	stderr := make([]float64, m)
	for i := 0; i < m; i++ {
		v := inv.At(i, i) * dofScale
		if v < 0 {
			v = 0
		}
		stderr[i] = math.Sqrt(v)
	}
	result.StandardErrors = stderr

	corr := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for k := 0; k < m; k++ {
			denom := stderr[i] * stderr[k]
			if denom == 0 {
				corr.Set(i, k, 0)
				continue
			}
			corr.Set(i, k, inv.At(i, k)*dofScale/denom)
		}
	}
	result.Correlation = corr

	return result, nil
}

func jtWJMat(j, weight *mat.Dense) *mat.Dense {
	var wj mat.Dense
	wj.Mul(weight, j)
	var out mat.Dense
	out.Mul(j.T(), &wj)
	return &out
}

func identity(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id
}

// finiteDifferenceJacobian evaluates ∂model_i/∂params_k via forward
// differences with per-parameter step sizes, used when the caller does
// not supply an analytic Jacobian.
func finiteDifferenceJacobian(model ModelFunc, params []float64, steps []float64, n int) *mat.Dense {
	m := len(params)
	base := model(params)
	j := mat.NewDense(n, m, nil)
	perturbed := append([]float64(nil), params...)
	for k := 0; k < m; k++ {
		step := 1e-6
		if k < len(steps) && steps[k] != 0 {
			step = steps[k]
		}
		perturbed[k] = params[k] + step
		moved := model(perturbed)
		perturbed[k] = params[k]
		for i := 0; i < n; i++ {
			j.Set(i, k, (moved[i]-base[i])/step)
		}
	}
	return j
}
