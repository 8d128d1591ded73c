package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"qaebench/domain/core"
	"qaebench/domain/curve"
)

// initialExponent is the Heisenberg-limit-ish starting guess.
const initialExponent = -0.5

// FitPowerLaw finds the exponent s minimising the squared residuals of
// sqrt(y) against (x0*y0) * x^s over all samples, with (x0, y0) the fixed
// point in reported units.
func FitPowerLaw(samples []curve.Sample, fp curve.FixedPoint) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: power-law fit needs samples", core.ErrInsufficientData)
	}
	if err := fp.Validate(); err != nil {
		return 0, err
	}

	coef := fp.X * fp.Y
	xs := make([]float64, len(samples))
	logs := make([]float64, len(samples))
	rs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.X
		logs[i] = math.Log(s.X)
		rs[i] = math.Sqrt(s.Y)
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			var sum float64
			for i, x := range xs {
				d := coef*math.Pow(x, p[0]) - rs[i]
				sum += d * d
			}
			return sum
		},
		Grad: func(grad, p []float64) {
			var g float64
			for i, x := range xs {
				m := coef * math.Pow(x, p[0])
				g += 2 * (m - rs[i]) * m * logs[i]
			}
			grad[0] = g
		},
	}

	best, bestF := math.NaN(), math.Inf(1)
	for _, method := range []optimize.Method{&optimize.BFGS{}, &optimize.NelderMead{}} {
		result, err := optimize.Minimize(problem, []float64{initialExponent}, nil, method)
		if result == nil {
			continue
		}
		s, f := result.X[0], result.F
		if math.IsNaN(s) || math.IsInf(s, 0) || math.IsNaN(f) {
			continue
		}
		if f < bestF {
			best, bestF = s, f
		}
		if err == nil {
			break
		}
	}
	if math.IsNaN(best) {
		return 0, fmt.Errorf("%w: power-law fit did not converge", core.ErrNumericDegeneracy)
	}
	return best, nil
}
