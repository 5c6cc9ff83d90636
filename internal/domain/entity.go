package domain

import (
	"fmt"
	"math"
	"time"
)

// Bar is a single OHLCV sample of a price series.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceField selects which per-bar value feeds the channel.
type PriceField string

const (
	PriceClose PriceField = "close"
	PriceOpen  PriceField = "open"
	PriceHigh  PriceField = "high"
	PriceLow   PriceField = "low"
	PriceHL2   PriceField = "hl2"
	PriceHLC3  PriceField = "hlc3"
	PriceOHLC4 PriceField = "ohlc4"
)

func (f PriceField) Valid() bool {
	switch f {
	case PriceClose, PriceOpen, PriceHigh, PriceLow, PriceHL2, PriceHLC3, PriceOHLC4:
		return true
	}
	return false
}

// Price returns the bar value selected by f. Unknown fields fall back to close.
func (b Bar) Price(f PriceField) float64 {
	switch f {
	case PriceOpen:
		return b.Open
	case PriceHigh:
		return b.High
	case PriceLow:
		return b.Low
	case PriceHL2:
		return (b.High + b.Low) / 2
	case PriceHLC3:
		return (b.High + b.Low + b.Close) / 3
	case PriceOHLC4:
		return (b.Open + b.High + b.Low + b.Close) / 4
	default:
		return b.Close
	}
}

// RegressionType picks the value space the regression is fitted in.
type RegressionType string

const (
	RegressionExponential RegressionType = "exponential" // fit ln(price)
	RegressionLinear      RegressionType = "linear"
)

// RangeType picks how the fitting window is sized when FullRange is off.
type RangeType string

const (
	RangeLength    RangeType = "length"
	RangeStartDate RangeType = "start date"
)

// ChannelConfig holds the inputs of one channel evaluation.
type ChannelConfig struct {
	Price          PriceField     `json:"price" mapstructure:"price"`
	Deviations     float64        `json:"deviations" mapstructure:"deviations"`
	FullRange      bool           `json:"fullRange" mapstructure:"full_range"`
	ExtendRight    bool           `json:"extendRight" mapstructure:"extend_right"`
	ExtendLeft     bool           `json:"extendLeft" mapstructure:"extend_left"` // only honoured for bounded ranges
	RegressionType RegressionType `json:"regressionType" mapstructure:"regression_type"`
	RangeType      RangeType      `json:"rangeType" mapstructure:"range_type"`
	Length         int            `json:"length" mapstructure:"length"`
	StartDate      int            `json:"startDate" mapstructure:"start_date"`          // YYYYMMDD
	ExpansionBars  int            `json:"expansionBars" mapstructure:"expansion_bars"` // right expansion area size
	Color          int            `json:"color" mapstructure:"color"`                  // palette index, passed through
}

// DefaultChannelConfig returns the stock channel settings.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Price:          PriceClose,
		Deviations:     2.0,
		FullRange:      true,
		ExtendRight:    true,
		ExtendLeft:     false,
		RegressionType: RegressionExponential,
		RangeType:      RangeLength,
		Length:         21,
		StartDate:      19700101,
		ExpansionBars:  0,
		Color:          8,
	}
}

// Validate reports malformed settings. An unparseable start date is not an
// error here: it yields an empty channel at evaluation time.
func (c ChannelConfig) Validate() error {
	if !c.Price.Valid() {
		return fmt.Errorf("%w: unknown price field %q", ErrInvalidConfig, c.Price)
	}
	if math.IsNaN(c.Deviations) || math.IsInf(c.Deviations, 0) {
		return fmt.Errorf("%w: deviations must be finite", ErrInvalidConfig)
	}
	switch c.RegressionType {
	case RegressionExponential, RegressionLinear:
	default:
		return fmt.Errorf("%w: unknown regression type %q", ErrInvalidConfig, c.RegressionType)
	}
	switch c.RangeType {
	case RangeLength, RangeStartDate:
	default:
		return fmt.Errorf("%w: unknown range type %q", ErrInvalidConfig, c.RangeType)
	}
	if c.Length <= 0 {
		return fmt.Errorf("%w: length must be positive, got %d", ErrInvalidConfig, c.Length)
	}
	if c.StartDate < 0 {
		return fmt.Errorf("%w: start date must be YYYYMMDD, got %d", ErrInvalidConfig, c.StartDate)
	}
	if c.ExpansionBars < 0 {
		return fmt.Errorf("%w: expansion bars must not be negative, got %d", ErrInvalidConfig, c.ExpansionBars)
	}
	return nil
}

// ChannelPoint is one plotted value. Index is the bar index in the input
// series; indices past the last bar belong to the expansion area.
type ChannelPoint struct {
	Index int       `json:"index"`
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ChannelFit summarises the regression behind a channel.
type ChannelFit struct {
	Slope       float64 `json:"slope"`     // transformed space, per bar
	Intercept   float64 `json:"intercept"` // transformed space, at bar 0
	StdDev      float64 `json:"stdDev"`    // raw price
	WindowStart int     `json:"windowStart"`
	WindowEnd   int     `json:"windowEnd"`
}

// ChannelBands is the output of a channel evaluation.
type ChannelBands struct {
	Upper  []ChannelPoint `json:"upperLine"`
	Middle []ChannelPoint `json:"middleLine"`
	Lower  []ChannelPoint `json:"lowerLine"`
	Fit    ChannelFit     `json:"fit"`
	Color  int            `json:"color"`
}

// Empty reports whether nothing is drawn.
func (b ChannelBands) Empty() bool {
	return len(b.Middle) == 0
}

// At returns the upper, middle and lower values at bar index i.
func (b ChannelBands) At(i int) (upper, middle, lower float64, ok bool) {
	for j := len(b.Middle) - 1; j >= 0; j-- {
		if b.Middle[j].Index == i {
			return b.Upper[j].Value, b.Middle[j].Value, b.Lower[j].Value, true
		}
	}
	return 0, 0, 0, false
}

// BandPosition describes where the last price sits relative to the channel.
type BandPosition string

const (
	PositionAboveUpper BandPosition = "ABOVE_UPPER"
	PositionBelowLower BandPosition = "BELOW_LOWER"
	PositionInside     BandPosition = "INSIDE"
	PositionUnknown    BandPosition = "UNKNOWN"
)

// ChannelSnapshot is a channel evaluated for one symbol and interval.
type ChannelSnapshot struct {
	Symbol     string        `json:"symbol"`
	Interval   string        `json:"interval"`
	Config     ChannelConfig `json:"config"`
	Bands      ChannelBands  `json:"bands"`
	LastPrice  float64       `json:"lastPrice"`
	Position   BandPosition  `json:"position"`
	ComputedAt time.Time     `json:"computedAt"`
}

// Key identifies a snapshot in storage.
func (s ChannelSnapshot) Key() string {
	return SnapshotKey(s.Symbol, s.Interval)
}

func SnapshotKey(symbol, interval string) string {
	return symbol + ":" + interval
}
