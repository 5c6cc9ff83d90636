package indicators

import "time"

// Resolution is the bar size of a series, coarse enough to decide how a
// calendar date snaps onto it.
type Resolution int

const (
	ResolutionIntraday Resolution = iota
	ResolutionDay
	ResolutionWeek
	ResolutionMonth
	ResolutionQuarter
	ResolutionYear
)

const day = 24 * time.Hour

func (r Resolution) String() string {
	switch r {
	case ResolutionIntraday:
		return "intraday"
	case ResolutionDay:
		return "day"
	case ResolutionWeek:
		return "week"
	case ResolutionMonth:
		return "month"
	case ResolutionQuarter:
		return "quarter"
	case ResolutionYear:
		return "year"
	}
	return "unknown"
}

// barGap returns the smallest positive spacing between consecutive bars.
// Weekend and holiday holes are larger than the real bar size, so the
// minimum is used rather than an average.
func barGap(times []time.Time) time.Duration {
	var gap time.Duration
	for i := 1; i < len(times); i++ {
		d := times[i].Sub(times[i-1])
		if d <= 0 {
			continue
		}
		if gap == 0 || d < gap {
			gap = d
		}
	}
	return gap
}

// DetectResolution classifies the bar size of a series. Series with fewer
// than two distinct timestamps are treated as daily.
func DetectResolution(times []time.Time) Resolution {
	gap := barGap(times)
	switch {
	case gap == 0:
		return ResolutionDay
	case gap < day:
		return ResolutionIntraday
	case gap < 7*day:
		return ResolutionDay
	case gap < 28*day:
		return ResolutionWeek
	case gap < 89*day:
		return ResolutionMonth
	case gap < 365*day:
		return ResolutionQuarter
	default:
		return ResolutionYear
	}
}

// TruncateToResolution snaps t down to the start of the period that
// contains it. It never rounds up.
func TruncateToResolution(t time.Time, r Resolution) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch r {
	case ResolutionWeek:
		offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case ResolutionMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case ResolutionQuarter:
		return time.Date(y, m-(m-1)%3, 1, 0, 0, 0, 0, loc)
	case ResolutionYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// ParseStartDate decodes a YYYYMMDD integer as midnight UTC. Dates that do
// not exist on the calendar (20240231) are rejected.
func ParseStartDate(v int) (time.Time, bool) {
	return ParseStartDateIn(v, time.UTC)
}

// ParseStartDateIn is ParseStartDate at midnight in loc.
func ParseStartDateIn(v int, loc *time.Location) (time.Time, bool) {
	if v <= 0 {
		return time.Time{}, false
	}
	y, m, d := v/10000, (v/100)%100, v%100
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// stepTime advances t by n bars of the series' resolution. Calendar
// resolutions step by calendar units, the rest by the observed bar gap.
func stepTime(t time.Time, n int, r Resolution, gap time.Duration) time.Time {
	switch r {
	case ResolutionMonth:
		return t.AddDate(0, n, 0)
	case ResolutionQuarter:
		return t.AddDate(0, 3*n, 0)
	case ResolutionYear:
		return t.AddDate(n, 0, 0)
	}
	if gap == 0 {
		gap = day
	}
	return t.Add(time.Duration(n) * gap)
}
