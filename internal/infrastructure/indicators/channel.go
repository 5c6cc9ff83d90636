package indicators

import (
	"time"

	"channel-backend/internal/domain"
)

// ComposeBands turns a regression line and its deviation into the three
// channel lines. Middle is the untransformed regression; Upper and Lower sit
// deviations*deviation away from it. deviations is used as given, so a
// negative multiplier swaps the bands. The slices are aligned to the shorter
// input.
func ComposeBands(regression, deviation []float64, deviations float64, t domain.RegressionType) (upper, middle, lower []float64) {
	n := len(regression)
	if len(deviation) < n {
		n = len(deviation)
	}

	upper = make([]float64, n)
	middle = make([]float64, n)
	lower = make([]float64, n)
	for i := 0; i < n; i++ {
		m := Untransform(regression[i], t)
		middle[i] = m
		upper[i] = m + deviations*deviation[i]
		lower[i] = m - deviations*deviation[i]
	}
	return upper, middle, lower
}

// CalculateRegressionChannel runs a full channel pass over bars. The window
// is fitted in transformed space while the band width comes from raw
// prices. An empty result means nothing is drawn: the window was empty,
// held fewer than two usable bars, or the start date was invalid. Bars whose
// value is undefined (non-positive price on an exponential fit) are left out
// of the lines.
func CalculateRegressionChannel(bars []domain.Bar, cfg domain.ChannelConfig) domain.ChannelBands {
	result := domain.ChannelBands{Color: cfg.Color}

	times := make([]time.Time, len(bars))
	prices := make([]float64, len(bars))
	for i, b := range bars {
		times[i] = b.Time
		prices[i] = b.Price(cfg.Price)
	}

	w := SelectWindow(times, cfg)
	if w.Len() < 2 {
		return result
	}

	values := TransformSeries(prices, cfg.RegressionType)
	regression, regFrom, fit, ok := RegressionLine(values, w, cfg.ExpansionBars)
	if !ok {
		return result
	}
	deviation, devFrom, sigma, ok := ResidualStdDev(prices, w, cfg.ExpansionBars)
	if !ok {
		return result
	}

	// Both series share the window, but intersect their coverage anyway.
	from := max(regFrom, devFrom)
	to := min(regFrom+len(regression), devFrom+len(deviation)) - 1
	if to < from {
		return result
	}
	upper, middle, lower := ComposeBands(
		regression[from-regFrom:to-regFrom+1],
		deviation[from-devFrom:to-devFrom+1],
		cfg.Deviations,
		cfg.RegressionType,
	)

	res := DetectResolution(times)
	gap := barGap(times)
	n := len(bars)
	for k := range middle {
		if !isFinite(middle[k]) || !isFinite(upper[k]) || !isFinite(lower[k]) {
			continue
		}
		idx := from + k
		var ts time.Time
		if idx < n {
			ts = times[idx]
		} else {
			ts = stepTime(times[n-1], idx-n+1, res, gap)
		}
		result.Upper = append(result.Upper, domain.ChannelPoint{Index: idx, Time: ts, Value: upper[k]})
		result.Middle = append(result.Middle, domain.ChannelPoint{Index: idx, Time: ts, Value: middle[k]})
		result.Lower = append(result.Lower, domain.ChannelPoint{Index: idx, Time: ts, Value: lower[k]})
	}

	result.Fit = domain.ChannelFit{
		Slope:       fit.Slope,
		Intercept:   fit.Intercept,
		StdDev:      sigma,
		WindowStart: w.Start,
		WindowEnd:   w.End,
	}
	return result
}
