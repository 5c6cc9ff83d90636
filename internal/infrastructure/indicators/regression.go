package indicators

import "math"

// Line is a least-squares fit of value against bar index.
type Line struct {
	Slope     float64
	Intercept float64 // value at bar index 0
}

// At evaluates the line at bar index i.
func (l Line) At(i int) float64 {
	return l.Intercept + l.Slope*float64(i)
}

// FitLine regresses values[w.Start..w.End] on bar index with ordinary least
// squares: slope = cov(x, y) / var(x), intercept = mean(y) - slope*mean(x).
// Non-finite values are left out. It reports false when fewer than two
// points remain or the sums overflow.
func FitLine(values []float64, w Window) (Line, bool) {
	if w.Len() < 2 || w.Start < 0 || w.End >= len(values) {
		return Line{}, false
	}

	var n, sumX, sumY float64
	for i := w.Start; i <= w.End; i++ {
		if !isFinite(values[i]) {
			continue
		}
		n++
		sumX += float64(i)
		sumY += values[i]
	}
	if n < 2 {
		return Line{}, false
	}

	meanX, meanY := sumX/n, sumY/n
	var sxx, sxy float64
	for i := w.Start; i <= w.End; i++ {
		if !isFinite(values[i]) {
			continue
		}
		dx := float64(i) - meanX
		sxx += dx * dx
		sxy += dx * (values[i] - meanY)
	}
	if sxx == 0 {
		return Line{}, false
	}

	slope := sxy / sxx
	line := Line{Slope: slope, Intercept: meanY - slope*meanX}
	if !isFinite(line.Slope) || !isFinite(line.Intercept) {
		return Line{}, false
	}
	return line, true
}

// RegressionLine fits values over w and evaluates the line across the
// window's coverage, including the left extension and the first expansion
// bars past the series end. Element k of the result is bar index from+k.
// Bars inside the series whose own value is not finite come back as NaN.
func RegressionLine(values []float64, w Window, expansion int) (line []float64, from int, fit Line, ok bool) {
	fit, ok = FitLine(values, w)
	if !ok {
		return nil, 0, Line{}, false
	}

	from, to := coverage(w, expansion)
	line = make([]float64, to-from+1)
	for i := from; i <= to; i++ {
		if i < len(values) && !isFinite(values[i]) {
			line[i-from] = math.NaN()
			continue
		}
		line[i-from] = fit.At(i)
	}
	return line, from, fit, true
}

// ResidualStdDev is the population standard deviation of prices about their
// own least-squares line over w. It reports false when the residuals
// overflow. The dispersion is a whole-window figure, so
// the returned series repeats one value across the window's coverage.
func ResidualStdDev(prices []float64, w Window, expansion int) (dev []float64, from int, sigma float64, ok bool) {
	fit, ok := FitLine(prices, w)
	if !ok {
		return nil, 0, 0, false
	}

	var n, sumSq float64
	for i := w.Start; i <= w.End; i++ {
		if !isFinite(prices[i]) {
			continue
		}
		r := prices[i] - fit.At(i)
		sumSq += r * r
		n++
	}
	sigma = math.Sqrt(sumSq / n)
	if !isFinite(sigma) {
		return nil, 0, 0, false
	}

	from, to := coverage(w, expansion)
	dev = make([]float64, to-from+1)
	for i := range dev {
		dev[i] = sigma
	}
	return dev, from, sigma, true
}
