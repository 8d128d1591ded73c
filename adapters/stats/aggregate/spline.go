package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"qaebench/domain/core"
	"qaebench/domain/curve"
)

const (
	splineDegree = 3
	ridgeLambda  = 1e-10
)

// Spline is a clamped cubic B-spline in u = log(x).
type Spline struct {
	knots  []float64
	coeffs []float64
}

// FitSpline fits sqrt(y) against log(x) by least squares with a cubic
// B-spline whose interior knots sit at the internal bucket edges. Samples
// outside [edges[0], edges[n]] are ignored.
func FitSpline(samples []curve.Sample, edges []float64) (*Spline, error) {
	if len(edges) < 2 {
		return nil, core.NewConfigurationError("nbins", "spline needs at least one bucket")
	}
	a, b := math.Log(edges[0]), math.Log(edges[len(edges)-1])
	if !(b > a) {
		return nil, fmt.Errorf("%w: spline needs a non-degenerate x range", core.ErrInsufficientData)
	}

	knots := make([]float64, 0, len(edges)+2*splineDegree)
	for i := 0; i < splineDegree; i++ {
		knots = append(knots, a)
	}
	for _, e := range edges {
		knots = append(knots, math.Log(e))
	}
	for i := 0; i < splineDegree; i++ {
		knots = append(knots, b)
	}
	nbasis := len(knots) - splineDegree - 1

	var us, rs []float64
	for _, s := range samples {
		u := math.Log(s.X)
		if u < a || u > b {
			continue
		}
		us = append(us, u)
		rs = append(rs, math.Sqrt(s.Y))
	}
	if len(us) < nbasis {
		return nil, fmt.Errorf("%w: spline with %d coefficients got %d samples",
			core.ErrInsufficientData, nbasis, len(us))
	}

	design := mat.NewDense(len(us), nbasis, nil)
	for i, u := range us {
		span := findSpan(knots, nbasis, u)
		basis := basisFuncs(knots, span, u)
		for j, v := range basis {
			design.Set(i, span-splineDegree+j, v)
		}
	}
	rhs := mat.NewVecDense(len(rs), rs)

	coeffs, err := solveLeastSquares(design, rhs)
	if err != nil {
		return nil, err
	}
	return &Spline{knots: knots, coeffs: coeffs}, nil
}

// solveLeastSquares solves min |Ac - r| with QR, falling back to lightly
// regularised normal equations when A is rank deficient.
func solveLeastSquares(design *mat.Dense, rhs *mat.VecDense) ([]float64, error) {
	_, n := design.Dims()

	var qr mat.QR
	qr.Factorize(design)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, rhs); err == nil {
		return mat.Col(nil, 0, &c), nil
	}

	var ata mat.SymDense
	ata.SymOuterK(1, design.T())
	for i := 0; i < n; i++ {
		ata.SetSym(i, i, ata.At(i, i)+ridgeLambda)
	}
	var atr mat.VecDense
	atr.MulVec(design.T(), rhs)

	var chol mat.Cholesky
	if ok := chol.Factorize(&ata); !ok {
		return nil, fmt.Errorf("%w: spline system is singular", core.ErrNumericDegeneracy)
	}
	if err := chol.SolveVecTo(&c, &atr); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNumericDegeneracy, err)
	}
	return mat.Col(nil, 0, &c), nil
}

// Eval returns the spline value at u. Points outside the knot range are
// extrapolated from the boundary polynomial pieces.
func (s *Spline) Eval(u float64) float64 {
	nbasis := len(s.coeffs)
	span := findSpan(s.knots, nbasis, u)
	basis := basisFuncs(s.knots, span, u)
	var v float64
	for j, b := range basis {
		v += b * s.coeffs[span-splineDegree+j]
	}
	return v
}

// Knots returns the interior knots.
func (s *Spline) Knots() []float64 {
	out := make([]float64, len(s.knots)-2*(splineDegree+1))
	copy(out, s.knots[splineDegree+1:len(s.knots)-splineDegree-1])
	return out
}

// findSpan returns the knot span index i with knots[i] <= u < knots[i+1],
// clamped to the valid spans [degree, nbasis-1].
func findSpan(knots []float64, nbasis int, u float64) int {
	lo, hi := splineDegree, nbasis-1
	if u >= knots[hi+1] {
		return hi
	}
	if u <= knots[lo] {
		return lo
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if knots[mid] <= u {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// basisFuncs evaluates the degree+1 non-zero B-spline basis functions on
// span at u (Cox-de Boor recursion).
func basisFuncs(knots []float64, span int, u float64) []float64 {
	n := make([]float64, splineDegree+1)
	left := make([]float64, splineDegree+1)
	right := make([]float64, splineDegree+1)
	n[0] = 1
	for j := 1; j <= splineDegree; j++ {
		left[j] = u - knots[span+1-j]
		right[j] = knots[span+j] - u
		saved := 0.0
		for r := 0; r < j; r++ {
			denom := right[r+1] + left[j-r]
			var tmp float64
			if denom != 0 {
				tmp = n[r] / denom
			}
			n[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		n[j] = saved
	}
	return n
}
