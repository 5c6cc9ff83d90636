package indicators

import (
	"math"

	"channel-backend/internal/domain"
)

// Transform maps a price into the space the regression is fitted in.
// Exponential regressions work on ln(price); a non-positive price has no
// logarithm and comes back as NaN, which the fit skips.
func Transform(price float64, t domain.RegressionType) float64 {
	if t == domain.RegressionExponential {
		if price <= 0 {
			return math.NaN()
		}
		return math.Log(price)
	}
	return price
}

// Untransform is the inverse of Transform.
func Untransform(value float64, t domain.RegressionType) float64 {
	if t == domain.RegressionExponential {
		return math.Exp(value)
	}
	return value
}

// TransformSeries applies Transform to every price.
func TransformSeries(prices []float64, t domain.RegressionType) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = Transform(p, t)
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
