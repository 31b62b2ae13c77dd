// Package timeseries provides the monthly series type used across the pipeline.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrDataFormat reports malformed input: empty data, length mismatches,
// duplicate or non-monotonic timestamps, or gaps in the monthly grid.
var ErrDataFormat = errors.New("malformed time series data")

// Series is an ordered sequence of monthly observations. Timestamps are
// strictly increasing with exactly one point per calendar month. Derived
// series (differences, slices, transforms) are always new instances.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// NewMonthly creates a gap-free monthly series starting at the month of start.
func NewMonthly(start time.Time, values []float64) *Series {
	base := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = base.AddDate(0, i, 0)
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return &Series{Timestamps: timestamps, Values: vals}
}

// FromObservations builds a series from explicit timestamps, validating the
// monthly grid invariant. Timestamps must be strictly increasing with exactly
// one calendar month between consecutive observations.
func FromObservations(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps for %d values", ErrDataFormat, len(timestamps), len(values))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrDataFormat)
	}

	for i := 1; i < len(timestamps); i++ {
		prev, cur := timestamps[i-1], timestamps[i]
		if !cur.After(prev) {
			return nil, fmt.Errorf("%w: non-increasing timestamp at row %d (%s after %s)",
				ErrDataFormat, i, cur.Format("2006-01"), prev.Format("2006-01"))
		}
		want := prev.AddDate(0, 1, 0)
		if cur.Year() != want.Year() || cur.Month() != want.Month() {
			return nil, fmt.Errorf("%w: gap between %s and %s, expected %s",
				ErrDataFormat, prev.Format("2006-01"), cur.Format("2006-01"), want.Format("2006-01"))
		}
	}

	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	vals := make([]float64, len(values))
	copy(vals, values)
	return &Series{Timestamps: ts, Values: vals}, nil
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Values)
}

// Start returns the timestamp of the first observation.
func (s *Series) Start() time.Time {
	if len(s.Timestamps) == 0 {
		return time.Time{}
	}
	return s.Timestamps[0]
}

// End returns the timestamp of the last observation.
func (s *Series) End() time.Time {
	if len(s.Timestamps) == 0 {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// Mean returns the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance returns the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std returns the sample standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// Diff returns the first difference of the series (d=1).
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN returns the series differenced n times, of length Len()-n.
// DiffN(2) equals Diff().Diff() pointwise.
func (s *Series) DiffN(n int) *Series {
	if n <= 0 || len(s.Values) <= n {
		return &Series{Values: []float64{}}
	}

	result := make([]float64, len(s.Values))
	copy(result, s.Values)
	for k := 0; k < n; k++ {
		next := make([]float64, len(result)-1)
		for i := 1; i < len(result); i++ {
			next[i-1] = result[i] - result[i-1]
		}
		result = next
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) > n {
		copy(timestamps, s.Timestamps[n:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_diff",
	}
}

// SeasonalDiff returns the lag-m seasonal difference of the series.
func (s *Series) SeasonalDiff(m int) *Series {
	if m <= 0 || len(s.Values) <= m {
		return &Series{Values: []float64{}}
	}

	result := make([]float64, len(s.Values)-m)
	for i := m; i < len(s.Values); i++ {
		result[i-m] = s.Values[i] - s.Values[i-m]
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) > m {
		copy(timestamps, s.Timestamps[m:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_seasonal_diff",
	}
}

// Slice returns observations in [start, end).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) >= end {
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Split divides the series into a temporal prefix of round(frac*n)
// observations and the remaining suffix. Order is preserved; concatenating
// the halves reconstructs the original series.
func (s *Series) Split(frac float64) (train, test *Series) {
	n := len(s.Values)
	cut := int(math.Round(frac * float64(n)))
	if cut < 0 {
		cut = 0
	}
	if cut > n {
		cut = n
	}
	return s.Slice(0, cut), s.Slice(cut, n)
}

// MovingAverage returns the simple moving average with the given window,
// aligned to the last observation of each window.
func (s *Series) MovingAverage(window int) *Series {
	if window <= 0 || window > len(s.Values) {
		return &Series{Values: []float64{}}
	}

	result := make([]float64, len(s.Values)-window+1)
	sum := floats.Sum(s.Values[:window])
	result[0] = sum / float64(window)

	for i := window; i < len(s.Values); i++ {
		sum = sum - s.Values[i-window] + s.Values[i]
		result[i-window+1] = sum / float64(window)
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) >= window {
		copy(timestamps, s.Timestamps[window-1:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_ma",
	}
}

// Copy returns a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}
