package indicators

import (
	"sort"
	"time"

	"channel-backend/internal/domain"
)

// Window is the inclusive bar range a channel is fitted over, plus whether
// the fitted line is carried past it.
type Window struct {
	Start       int
	End         int
	ExtendLeft  bool
	ExtendRight bool
}

// Len returns the number of bars in the window.
func (w Window) Len() int {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

func emptyWindow(n int) Window {
	return Window{Start: n, End: n - 1}
}

// SelectWindow resolves the fitting window for a series with the given bar
// timestamps.
//
// FullRange uses every bar. Otherwise RangeLength takes the trailing Length
// bars and RangeStartDate starts at the bar containing StartDate, read at
// midnight in the series' time zone and snapped down to its resolution. A
// start date that is not a calendar date or that lies after the last bar
// gives an empty window.
//
// Left extension is always on for FullRange, where it has nothing to cover.
// Bounded ranges extend left only when ExtendLeft is set.
func SelectWindow(times []time.Time, cfg domain.ChannelConfig) Window {
	n := len(times)
	if n == 0 {
		return emptyWindow(0)
	}

	if cfg.FullRange {
		return Window{Start: 0, End: n - 1, ExtendLeft: true, ExtendRight: cfg.ExtendRight}
	}

	w := Window{End: n - 1, ExtendLeft: cfg.ExtendLeft, ExtendRight: cfg.ExtendRight}
	switch cfg.RangeType {
	case domain.RangeStartDate:
		start, ok := ParseStartDateIn(cfg.StartDate, times[0].Location())
		if !ok {
			return emptyWindow(n)
		}
		start = TruncateToResolution(start, DetectResolution(times))
		w.Start = startIndex(times, start)
	default:
		if cfg.Length <= 0 {
			return emptyWindow(n)
		}
		w.Start = max(n-cfg.Length, 0)
	}
	return w
}

// startIndex returns the bar that contains start: the bar stamped at start,
// or the last bar before it when start falls between two bars. A start
// before the first bar selects bar 0 and one after the last bar selects
// nothing.
func startIndex(times []time.Time, start time.Time) int {
	n := len(times)
	if start.After(times[n-1]) {
		return n
	}
	i := sort.Search(n, func(i int) bool {
		return !times[i].Before(start)
	})
	if i > 0 && times[i].After(start) {
		i--
	}
	return i
}

// coverage returns the first and last bar index a window's line is drawn
// over. The right bound may run past the series into the expansion area.
func coverage(w Window, expansion int) (from, to int) {
	from, to = w.Start, w.End
	if w.ExtendLeft {
		from = 0
	}
	if w.ExtendRight && expansion > 0 {
		to = w.End + expansion
	}
	return from, to
}
