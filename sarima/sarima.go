// Package sarima implements seasonal ARIMA models fitted by conditional sum
// of squares.
package sarima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mbeckman/unrate/arima"
	"github.com/mbeckman/unrate/stats"
	"github.com/mbeckman/unrate/timeseries"
)

// Order represents SARIMA model order (p, d, q)(P, D, Q)[m].
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order

	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period (12 for monthly data with yearly seasonality)
}

// NumParams returns the number of estimated parameters including the
// intercept.
func (o Order) NumParams() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// Model represents a SARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64

	fitted     bool
	data       *timeseries.Series
	diffData   *timeseries.Series
	residuals  []float64
	fittedVals []float64
}

// New creates a SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return &Model{
		Order: Order{
			P: p, D: d, Q: q,
			SP: sp, SD: sd, SQ: sq, M: m,
		},
		ARCoeffs:  make([]float64, p),
		MACoeffs:  make([]float64, q),
		SARCoeffs: make([]float64, sp),
		SMACoeffs: make([]float64, sq),
	}
}

// Fit estimates the model on the given series by conditional sum of squares.
// Returns arima.ErrNonConvergence when the optimizer diverges.
func (m *Model) Fit(series *timeseries.Series) error {
	minLen := m.Order.P + m.Order.Q + m.Order.D +
		(m.Order.SP+m.Order.SD+m.Order.SQ)*m.Order.M + 20
	if series.Len() < minLen {
		return fmt.Errorf("sarima%s: insufficient data points (%d, need %d)", m.Order, series.Len(), minLen)
	}

	m.data = series

	diffSeries := series
	for i := 0; i < m.Order.D; i++ {
		diffSeries = diffSeries.Diff()
		if diffSeries.Len() == 0 {
			return fmt.Errorf("sarima%s: differencing emptied the series", m.Order)
		}
	}
	for i := 0; i < m.Order.SD; i++ {
		diffSeries = diffSeries.SeasonalDiff(m.Order.M)
		if diffSeries.Len() == 0 {
			return fmt.Errorf("sarima%s: seasonal differencing emptied the series", m.Order)
		}
	}
	m.diffData = diffSeries

	if err := m.fitCSS(); err != nil {
		return err
	}

	m.calculateIC()
	m.fitted = true
	return nil
}

// Fitted reports whether Fit has completed successfully.
func (m *Model) Fitted() bool {
	return m.fitted
}

// StationarityOK reports whether both AR polynomials satisfy the
// stationarity constraint.
func (m *Model) StationarityOK() bool {
	return stats.RootsStable(m.ARCoeffs) && stats.RootsStable(m.SARCoeffs)
}

// InvertibilityOK reports whether both MA polynomials satisfy the
// invertibility constraint.
func (m *Model) InvertibilityOK() bool {
	return stats.RootsStable(m.MACoeffs) && stats.RootsStable(m.SMACoeffs)
}

func (m *Model) fitCSS() error {
	y := m.diffData.Values
	n := len(y)
	p := m.Order.P
	sp := m.Order.SP
	period := m.Order.M

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	m.Intercept = mean / float64(n)

	if p > 0 {
		if acf := stats.ACF(m.diffData, p); acf != nil {
			for i := 0; i < p && i+1 < len(acf); i++ {
				m.ARCoeffs[i] = acf[i+1] * 0.5
			}
		}
	}
	if sp > 0 {
		if acf := stats.ACF(m.diffData, sp*period); acf != nil {
			for i := 0; i < sp; i++ {
				idx := (i + 1) * period
				if idx < len(acf) {
					m.SARCoeffs[i] = acf[idx] * 0.5
				}
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}

	return m.optimizeCSS(y)
}

// optimizeCSS refines parameters by gradient descent with momentum on the
// conditional sum of squares, tracking the best solution seen.
func (m *Model) optimizeCSS(y []float64) error {
	n := len(y)
	p := m.Order.P
	q := m.Order.Q
	sp := m.Order.SP
	sq := m.Order.SQ
	period := m.Order.M

	const (
		maxIter   = 200
		tolerance = 1e-8
		momentum  = 0.9
		decay     = 0.99
	)
	lr := 0.005

	arMom := make([]float64, p)
	maMom := make([]float64, q)
	sarMom := make([]float64, sp)
	smaMom := make([]float64, sq)

	startIdx := max(max(p, q), max(sp*period, sq*period))
	if startIdx >= n-10 {
		startIdx = 0
	}

	bestSSE := math.Inf(1)
	bestAR := make([]float64, p)
	bestMA := make([]float64, q)
	bestSAR := make([]float64, sp)
	bestSMA := make([]float64, sq)
	noImprove := 0

	for iter := 0; iter < maxIter; iter++ {
		residuals := make([]float64, n)
		sse := 0.0
		for t := startIdx; t < n; t++ {
			pred := m.predictOne(y, residuals, t)
			residuals[t] = y[t] - pred
			sse += residuals[t] * residuals[t]
		}

		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return fmt.Errorf("sarima%s: %w: sum of squares diverged", m.Order, arima.ErrNonConvergence)
		}

		if sse < bestSSE {
			if math.Abs(bestSSE-sse) < tolerance*(1+sse) {
				bestSSE = sse
				copy(bestAR, m.ARCoeffs)
				copy(bestMA, m.MACoeffs)
				copy(bestSAR, m.SARCoeffs)
				copy(bestSMA, m.SMACoeffs)
				break
			}
			bestSSE = sse
			copy(bestAR, m.ARCoeffs)
			copy(bestMA, m.MACoeffs)
			copy(bestSAR, m.SARCoeffs)
			copy(bestSMA, m.SMACoeffs)
			noImprove = 0
		} else {
			noImprove++
		}

		if noImprove > 20 {
			break
		}

		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		sarGrad := make([]float64, sp)
		smaGrad := make([]float64, sq)

		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < sp; i++ {
				lag := (i + 1) * period
				if t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < sq; i++ {
				lag := (i + 1) * period
				if t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		for i := 0; i < p; i++ {
			arMom[i] = momentum*arMom[i] + lr*arGrad[i]/float64(n)
			m.ARCoeffs[i] = clamp(m.ARCoeffs[i]-arMom[i], -0.99, 0.99)
		}
		for i := 0; i < sp; i++ {
			sarMom[i] = momentum*sarMom[i] + lr*sarGrad[i]/float64(n)
			m.SARCoeffs[i] = clamp(m.SARCoeffs[i]-sarMom[i], -0.99, 0.99)
		}
		for i := 0; i < q; i++ {
			maMom[i] = momentum*maMom[i] + lr*maGrad[i]/float64(n)
			m.MACoeffs[i] = clamp(m.MACoeffs[i]-maMom[i], -0.99, 0.99)
		}
		for i := 0; i < sq; i++ {
			smaMom[i] = momentum*smaMom[i] + lr*smaGrad[i]/float64(n)
			m.SMACoeffs[i] = clamp(m.SMACoeffs[i]-smaMom[i], -0.99, 0.99)
		}

		lr *= decay
	}

	if math.IsInf(bestSSE, 0) {
		return fmt.Errorf("sarima%s: %w after %d iterations", m.Order, arima.ErrNonConvergence, maxIter)
	}

	copy(m.ARCoeffs, bestAR)
	copy(m.MACoeffs, bestMA)
	copy(m.SARCoeffs, bestSAR)
	copy(m.SMACoeffs, bestSMA)

	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	for t := 0; t < n; t++ {
		pred := m.predictOne(y, m.residuals, t)
		m.fittedVals[t] = pred
		m.residuals[t] = y[t] - pred
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	numParams := m.Order.NumParams()
	if count > numParams {
		m.Variance = sse / float64(count-numParams)
	} else if count > 0 {
		m.Variance = sse / float64(count)
	}

	return nil
}

// predictOne evaluates the one-step CSS prediction at index t.
func (m *Model) predictOne(y, residuals []float64, t int) float64 {
	period := m.Order.M
	pred := m.Intercept

	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.SP; i++ {
		lag := (i + 1) * period
		if t-lag >= 0 {
			pred += m.SARCoeffs[i] * (y[t-lag] - m.Intercept)
		}
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
	}
	for i := 0; i < m.Order.SQ; i++ {
		lag := (i + 1) * period
		if t-lag >= 0 {
			pred += m.SMACoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

func (m *Model) calculateIC() {
	n := len(m.residuals)
	k := m.Order.NumParams()

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.Variance > 0 {
		m.LogLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(-1)
	}

	ic := stats.CalculateIC(m.LogLik, n, k)
	m.AIC = ic.AIC
	m.AICc = ic.AICc
	m.BIC = ic.BIC
}

// Predict generates point forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	f, err := m.Forecast(steps, 0.80)
	if err != nil {
		return nil, err
	}
	return f.Mean, nil
}

// Forecast generates recursive multi-step forecasts with confidence
// intervals at the given level.
func (m *Model) Forecast(steps int, level float64) (*arima.Forecast, error) {
	if !m.fitted {
		return nil, errors.New("sarima: model must be fitted before forecasting")
	}
	if steps < 1 {
		return nil, fmt.Errorf("sarima: steps must be at least 1, got %d", steps)
	}
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("sarima: confidence level must be in (0,1), got %g", level)
	}

	d := m.Order.D
	sd := m.Order.SD
	period := m.Order.M

	y := m.diffData.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept

		for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		for i := 0; i < m.Order.SP; i++ {
			lag := (i + 1) * period
			if t-lag >= 0 {
				pred += m.SARCoeffs[i] * (extY[t-lag] - m.Intercept)
			}
		}
		// Future innovations are zero; only observed residuals contribute.
		for i := 0; i < m.Order.Q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MACoeffs[i] * extResiduals[t-i-1]
		}
		for i := 0; i < m.Order.SQ; i++ {
			lag := (i + 1) * period
			if t-lag >= 0 && t-lag < n {
				pred += m.SMACoeffs[i] * extResiduals[t-lag]
			}
		}

		extY[t] = pred
		extResiduals[t] = 0
	}

	mean := make([]float64, steps)
	copy(mean, extY[n:])
	mean = m.integrate(mean)

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile((1 + level) / 2)
	lower := make([]float64, steps)
	upper := make([]float64, steps)
	for h := 0; h < steps; h++ {
		se := math.Sqrt(m.Variance)
		if d > 0 {
			se *= math.Sqrt(float64(h + 1))
		}
		if sd > 0 && period > 0 {
			se *= math.Sqrt(float64(h/period + 1))
		}
		lower[h] = mean[h] - z*se
		upper[h] = mean[h] + z*se
	}

	return &arima.Forecast{Mean: mean, Lower: lower, Upper: upper, Level: level}, nil
}

// integrate undoes differencing to return forecasts on the original scale.
// Fit differences non-seasonally first, then seasonally; integration runs in
// reverse: undo seasonal differencing, then the non-seasonal differences
// innermost first, each pass seeded by the tail of the matching difference
// level of the history.
func (m *Model) integrate(forecasts []float64) []float64 {
	d := m.Order.D
	sd := m.Order.SD
	period := m.Order.M

	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	// Non-seasonal difference levels of the original: levels[k] is the
	// k-times differenced series.
	levels := make([][]float64, d+1)
	levels[0] = m.data.Values
	for k := 1; k <= d; k++ {
		prev := levels[k-1]
		next := make([]float64, len(prev)-1)
		for j := 1; j < len(prev); j++ {
			next[j-1] = prev[j] - prev[j-1]
		}
		levels[k] = next
	}

	if sd > 0 && period > 0 {
		// Seasonal difference levels on top of the fully non-seasonally
		// differenced series, undone innermost first.
		sLevels := make([][]float64, sd)
		sLevels[0] = levels[d]
		for k := 1; k < sd; k++ {
			prev := sLevels[k-1]
			next := make([]float64, len(prev)-period)
			for j := period; j < len(prev); j++ {
				next[j-period] = prev[j] - prev[j-period]
			}
			sLevels[k] = next
		}
		for k := sd - 1; k >= 0; k-- {
			tail := sLevels[k]
			nTail := len(tail)
			for j := range result {
				if j < period {
					idx := nTail - period + j
					if idx >= 0 && idx < nTail {
						result[j] += tail[idx]
					}
				} else {
					result[j] += result[j-period]
				}
			}
		}
	}

	for k := d - 1; k >= 0; k-- {
		tail := levels[k]
		last := tail[len(tail)-1]
		for j := range result {
			if j == 0 {
				result[j] += last
			} else {
				result[j] += result[j-1]
			}
		}
	}

	return result
}

// Residuals returns a copy of the model residuals.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.residuals))
	copy(result, m.residuals)
	return result
}

// FittedValues returns a copy of the in-sample fitted values.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.fittedVals))
	copy(result, m.fittedVals)
	return result
}

// Summary bundles the fitted model's estimates and diagnostics.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	fitdf := m.Order.P + m.Order.Q + m.Order.SP + m.Order.SQ
	lb, _ := stats.LjungBox(m.residuals, 10, fitdf)

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
		SARCoeffs: m.SARCoeffs,
		SMACoeffs: m.SMACoeffs,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.data.Len(),
		LjungBox:  lb,
	}
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
