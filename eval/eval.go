// Package eval implements out-of-sample forecast evaluation: a prefix
// train/test split, forecast generation over the test horizon, and the
// standard point-forecast accuracy measures.
package eval

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mbeckman/unrate/arima"
	"github.com/mbeckman/unrate/timeseries"
)

// ErrLengthMismatch reports that a forecast and its target series have
// different lengths.
var ErrLengthMismatch = errors.New("forecast and actual lengths differ")

// Split partitions a series into a training prefix and test suffix. The cut
// index is round(frac*n), so order is preserved and the two parts
// concatenate back to the original.
func Split(series *timeseries.Series, frac float64) (train, test *timeseries.Series, err error) {
	if frac <= 0 || frac >= 1 {
		return nil, nil, fmt.Errorf("split fraction %v outside (0,1)", frac)
	}
	train, test = series.Split(frac)
	if train.Len() == 0 || test.Len() == 0 {
		return nil, nil, fmt.Errorf("split fraction %v leaves an empty partition (n=%d)", frac, series.Len())
	}
	return train, test, nil
}

// Forecaster is anything that can produce interval forecasts: *arima.Model,
// *sarima.Model, and *autoarima.Candidate all satisfy it.
type Forecaster interface {
	Forecast(steps int, level float64) (*arima.Forecast, error)
}

// Row is one forecast horizon aligned with its test-set observation.
type Row struct {
	Timestamp time.Time
	Actual    float64
	Mean      float64
	Lower     float64
	Upper     float64
}

// Result pairs a test-horizon forecast with the observations it is judged
// against.
type Result struct {
	Level float64
	Rows  []Row
}

// Evaluate forecasts the full test horizon from a model fitted on the
// training set only, and aligns each horizon with the corresponding test
// observation.
func Evaluate(model Forecaster, test *timeseries.Series, level float64) (*Result, error) {
	fc, err := model.Forecast(test.Len(), level)
	if err != nil {
		return nil, err
	}
	if len(fc.Mean) != test.Len() {
		return nil, fmt.Errorf("forecast horizon %d, test length %d: %w",
			len(fc.Mean), test.Len(), ErrLengthMismatch)
	}

	rows := make([]Row, test.Len())
	for i := range rows {
		rows[i] = Row{
			Timestamp: test.Timestamps[i],
			Actual:    test.Values[i],
			Mean:      fc.Mean[i],
			Lower:     fc.Lower[i],
			Upper:     fc.Upper[i],
		}
	}
	return &Result{Level: fc.Level, Rows: rows}, nil
}

// Metrics holds point-forecast accuracy measures. MPE and MAPE are
// fractions, not percentages; both are NaN when any actual value is zero.
type Metrics struct {
	ME   float64 // Mean error
	RMSE float64 // Root mean squared error
	MAE  float64 // Mean absolute error
	MPE  float64 // Mean percentage error
	MAPE float64 // Mean absolute percentage error
}

// Accuracy computes forecast accuracy measures from aligned forecast and
// actual slices.
func Accuracy(forecast, actual []float64) (*Metrics, error) {
	if len(forecast) != len(actual) {
		return nil, fmt.Errorf("forecast length %d, actual length %d: %w",
			len(forecast), len(actual), ErrLengthMismatch)
	}
	if len(actual) == 0 {
		return nil, fmt.Errorf("empty evaluation window: %w", ErrLengthMismatch)
	}

	n := float64(len(actual))
	var sumErr, sumSq, sumAbs, sumPct, sumAbsPct float64
	pctOK := true
	for i := range actual {
		e := actual[i] - forecast[i]
		sumErr += e
		sumSq += e * e
		sumAbs += math.Abs(e)
		if actual[i] == 0 {
			pctOK = false
			continue
		}
		sumPct += e / actual[i]
		sumAbsPct += math.Abs(e / actual[i])
	}

	m := &Metrics{
		ME:   sumErr / n,
		RMSE: math.Sqrt(sumSq / n),
		MAE:  sumAbs / n,
		MPE:  math.NaN(),
		MAPE: math.NaN(),
	}
	if pctOK {
		m.MPE = sumPct / n
		m.MAPE = sumAbsPct / n
	}
	return m, nil
}

// Report collects accuracy metrics keyed by model name, for comparing
// candidates over the same test split.
type Report map[string]*Metrics

// Add records a model's metrics under its name.
func (r Report) Add(name string, m *Metrics) {
	r[name] = m
}

// BestRMSE returns the name of the model with the lowest RMSE, or "" for an
// empty report.
func (r Report) BestRMSE() string {
	best := ""
	bestRMSE := math.Inf(1)
	for name, m := range r {
		if m != nil && m.RMSE < bestRMSE {
			best = name
			bestRMSE = m.RMSE
		}
	}
	return best
}

// AccuracyOf computes accuracy measures directly from an evaluation result.
func AccuracyOf(r *Result) (*Metrics, error) {
	forecast := make([]float64, len(r.Rows))
	actual := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		forecast[i] = row.Mean
		actual[i] = row.Actual
	}
	return Accuracy(forecast, actual)
}
