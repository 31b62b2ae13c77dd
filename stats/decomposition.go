package stats

import (
	"math"

	"github.com/mbeckman/unrate/timeseries"
)

// Decomposition represents the classical decomposition of a series into
// trend, seasonal, and residual components.
type Decomposition struct {
	Original *timeseries.Series
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
	Type     string // "additive" or "multiplicative"
}

// Decompose performs classical seasonal decomposition using a centered
// moving average for the trend. Type is "additive" (Y = T + S + R) or
// "multiplicative" (Y = T * S * R). Returns nil when the series is shorter
// than two full periods.
func Decompose(series *timeseries.Series, period int, decompositionType string) *Decomposition {
	n := series.Len()
	if period < 2 || n < 2*period {
		return nil
	}

	if decompositionType != "additive" && decompositionType != "multiplicative" {
		decompositionType = "additive"
	}

	trend := centeredTrend(series, period)

	detrended := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(trend[i]):
			detrended[i] = math.NaN()
		case decompositionType == "multiplicative":
			if trend[i] == 0 {
				detrended[i] = math.NaN()
			} else {
				detrended[i] = series.Values[i] / trend[i]
			}
		default:
			detrended[i] = series.Values[i] - trend[i]
		}
	}

	// Average the detrended values within each position of the period.
	seasonalPattern := make([]float64, period)
	counts := make([]int, period)
	for i := 0; i < n; i++ {
		if !math.IsNaN(detrended[i]) {
			idx := i % period
			seasonalPattern[idx] += detrended[i]
			counts[idx]++
		}
	}
	for i := 0; i < period; i++ {
		if counts[i] > 0 {
			seasonalPattern[i] /= float64(counts[i])
		}
	}

	// Center the seasonal component.
	sum := 0.0
	for _, v := range seasonalPattern {
		sum += v
	}
	mean := sum / float64(period)
	for i := range seasonalPattern {
		if decompositionType == "multiplicative" {
			seasonalPattern[i] /= mean
		} else {
			seasonalPattern[i] -= mean
		}
	}

	seasonal := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = seasonalPattern[i%period]
	}

	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(trend[i]):
			residual[i] = math.NaN()
		case decompositionType == "multiplicative":
			if trend[i] == 0 || seasonal[i] == 0 {
				residual[i] = math.NaN()
			} else {
				residual[i] = series.Values[i] / (trend[i] * seasonal[i])
			}
		default:
			residual[i] = series.Values[i] - trend[i] - seasonal[i]
		}
	}

	component := func(values []float64, name string) *timeseries.Series {
		return &timeseries.Series{
			Timestamps: series.Timestamps,
			Values:     values,
			Name:       name,
		}
	}

	return &Decomposition{
		Original: series,
		Trend:    component(trend, "trend"),
		Seasonal: component(seasonal, "seasonal"),
		Residual: component(residual, "residual"),
		Period:   period,
		Type:     decompositionType,
	}
}

// centeredTrend computes the centered moving-average trend. For even periods
// a 2xm average is used so the window stays centered. Edges are NaN.
func centeredTrend(series *timeseries.Series, period int) []float64 {
	n := series.Len()
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	if period%2 == 0 {
		// 2xm: average adjacent m-windows so the result stays centered.
		ma := series.MovingAverage(period).MovingAverage(2)
		for i := half; i < n-half; i++ {
			trend[i] = ma.Values[i-half]
		}
	} else {
		ma := series.MovingAverage(period)
		for i := half; i < n-half; i++ {
			trend[i] = ma.Values[i-half]
		}
	}

	return trend
}

// SeasonalStrength measures the strength of seasonality at the given period
// as max(0, 1 - Var(R)/Var(S+R)) over the classical decomposition.
// Returns 0 when the series is too short to decompose.
func SeasonalStrength(series *timeseries.Series, period int) float64 {
	decomp := Decompose(series, period, "additive")
	if decomp == nil {
		return 0
	}

	varR := nanVariance(decomp.Residual.Values)

	seasonalPlusResid := make([]float64, len(decomp.Seasonal.Values))
	for i := range seasonalPlusResid {
		s, r := decomp.Seasonal.Values[i], decomp.Residual.Values[i]
		if math.IsNaN(s) || math.IsNaN(r) {
			seasonalPlusResid[i] = math.NaN()
		} else {
			seasonalPlusResid[i] = s + r
		}
	}
	varSR := nanVariance(seasonalPlusResid)
	if varSR == 0 {
		return 0
	}

	strength := 1 - varR/varSR
	if strength < 0 {
		return 0
	}
	return strength
}

// nanVariance is the sample variance ignoring NaN entries.
func nanVariance(data []float64) float64 {
	valid := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	n := len(valid)
	if n < 2 {
		return 0
	}

	sum := 0.0
	for _, v := range valid {
		sum += v
	}
	mean := sum / float64(n)

	sumSq := 0.0
	for _, v := range valid {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(n-1)
}
