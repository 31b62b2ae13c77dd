// Package arima implements non-seasonal ARIMA (AutoRegressive Integrated
// Moving Average) models fitted by conditional sum of squares.
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mbeckman/unrate/stats"
	"github.com/mbeckman/unrate/timeseries"
)

// ErrNonConvergence reports that the CSS optimizer failed to reach a finite
// optimum within its iteration limit.
var ErrNonConvergence = errors.New("optimizer failed to converge")

// Order represents ARIMA model order (p, d, q). Immutable once the model is
// constructed.
type Order struct {
	P int // AR order
	D int // Differencing order
	Q int // MA order
}

// NumParams returns the number of estimated parameters including the
// intercept.
func (o Order) NumParams() int {
	return o.P + o.Q + 1
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// Model represents an ARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // AR coefficients (phi)
	MACoeffs  []float64 // MA coefficients (theta)
	Intercept float64
	Variance  float64 // Residual variance (sigma^2)
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

// New creates an ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return &Model{
		Order:    Order{P: p, D: d, Q: q},
		ARCoeffs: make([]float64, p),
		MACoeffs: make([]float64, q),
	}
}

// Fit estimates the model on the given series by conditional sum of squares.
// Returns ErrNonConvergence when the optimizer diverges.
func (m *Model) Fit(series *timeseries.Series) error {
	if series.Len() < m.Order.P+m.Order.Q+m.Order.D+10 {
		return fmt.Errorf("arima%s: insufficient data points (%d)", m.Order, series.Len())
	}

	m.data = series

	diffSeries := series
	for i := 0; i < m.Order.D; i++ {
		diffSeries = diffSeries.Diff()
		if diffSeries.Len() == 0 {
			return fmt.Errorf("arima%s: differencing emptied the series", m.Order)
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

// StationarityOK reports whether the fitted AR polynomial satisfies the
// stationarity constraint (all characteristic roots outside the unit circle).
func (m *Model) StationarityOK() bool {
	return stats.RootsStable(m.ARCoeffs)
}

// InvertibilityOK reports whether the fitted MA polynomial satisfies the
// invertibility constraint.
func (m *Model) InvertibilityOK() bool {
	return stats.RootsStable(m.MACoeffs)
}

func (m *Model) fitCSS() error {
	y := m.diffData.Values
	n := len(y)
	p := m.Order.P
	q := m.Order.Q

	if p == 0 && q == 0 {
		// White noise around the mean.
		mean := 0.0
		for _, v := range y {
			mean += v
		}
		m.Intercept = mean / float64(n)
		m.Variance = 0
		for _, v := range y {
			diff := v - m.Intercept
			m.Variance += diff * diff
		}
		if n > 1 {
			m.Variance /= float64(n - 1)
		}
		m.residuals = make([]float64, n)
		m.fittedVals = make([]float64, n)
		for i, v := range y {
			m.residuals[i] = v - m.Intercept
			m.fittedVals[i] = m.Intercept
		}
		return nil
	}

	// Yule-Walker initial AR estimates.
	if p > 0 {
		if acf := stats.ACF(m.diffData, p); acf != nil {
			m.ARCoeffs = yuleWalker(acf, p)
			if m.ARCoeffs == nil {
				m.ARCoeffs = make([]float64, p)
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}

	return m.optimizeCSS(y)
}

// optimizeCSS refines coefficients by gradient descent on the conditional
// sum of squares.
func (m *Model) optimizeCSS(y []float64) error {
	n := len(y)
	p := m.Order.P
	q := m.Order.Q

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	m.Intercept = mean / float64(n)

	const (
		maxIter      = 200
		tolerance    = 1e-8
		learningRate = 0.01
	)

	lr := learningRate
	startIdx := max(p, q)
	converged := false
	prevSSE := math.Inf(1)

	for iter := 0; iter < maxIter; iter++ {
		residuals := make([]float64, n)
		sse := 0.0

		for t := startIdx; t < n; t++ {
			pred := m.predictOne(y, residuals, t)
			residuals[t] = y[t] - pred
			sse += residuals[t] * residuals[t]
		}

		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return fmt.Errorf("arima%s: %w: sum of squares diverged", m.Order, ErrNonConvergence)
		}

		if math.Abs(prevSSE-sse) < tolerance*(1+sse) {
			converged = true
			break
		}
		prevSSE = sse

		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
		}

		for i := 0; i < p; i++ {
			m.ARCoeffs[i] -= lr * arGrad[i] / float64(n)
			m.ARCoeffs[i] = clamp(m.ARCoeffs[i], -0.99, 0.99)
		}
		for i := 0; i < q; i++ {
			m.MACoeffs[i] -= lr * maGrad[i] / float64(n)
			m.MACoeffs[i] = clamp(m.MACoeffs[i], -0.99, 0.99)
		}

		lr *= 0.995
	}

	// A stalled gradient with a finite optimum is accepted; only a sum of
	// squares that never settled counts as non-convergence.
	if !converged && math.IsInf(prevSSE, 0) {
		return fmt.Errorf("arima%s: %w after %d iterations", m.Order, ErrNonConvergence, maxIter)
	}

	// Final residuals and fitted values over the full differenced series.
	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	for t := 0; t < n; t++ {
		if t < startIdx {
			m.fittedVals[t] = m.Intercept
			m.residuals[t] = y[t] - m.Intercept
			continue
		}
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
	if count > p+q+1 {
		m.Variance = sse / float64(count-p-q-1)
	} else if count > 0 {
		m.Variance = sse / float64(count)
	}

	return nil
}

// predictOne evaluates the one-step CSS prediction at index t.
func (m *Model) predictOne(y, residuals []float64, t int) float64 {
	pred := m.Intercept
	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
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

// Forecast holds point forecasts with a symmetric confidence interval.
type Forecast struct {
	Mean  []float64
	Lower []float64
	Upper []float64
	Level float64 // Confidence level in (0,1), e.g. 0.80
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
// intervals at the given level. Each step conditions on previously forecast
// values; future innovations are taken as zero.
func (m *Model) Forecast(steps int, level float64) (*Forecast, error) {
	if !m.fitted {
		return nil, errors.New("arima: model must be fitted before forecasting")
	}
	if steps < 1 {
		return nil, fmt.Errorf("arima: steps must be at least 1, got %d", steps)
	}
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("arima: confidence level must be in (0,1), got %g", level)
	}

	p := m.Order.P
	q := m.Order.Q
	d := m.Order.D

	y := m.diffData.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		for i := 0; i < q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MACoeffs[i] * extResiduals[t-i-1]
		}
		extY[t] = pred
		extResiduals[t] = 0
	}

	mean := make([]float64, steps)
	copy(mean, extY[n:])
	if d > 0 {
		mean = m.integrate(mean)
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile((1 + level) / 2)
	lower := make([]float64, steps)
	upper := make([]float64, steps)
	for h := 0; h < steps; h++ {
		se := math.Sqrt(m.Variance)
		if d > 0 {
			se *= math.Sqrt(float64(h + 1))
		}
		lower[h] = mean[h] - z*se
		upper[h] = mean[h] + z*se
	}

	return &Forecast{Mean: mean, Lower: lower, Upper: upper, Level: level}, nil
}

// integrate undoes differencing to return forecasts on the original scale.
// The innermost difference is undone first; each pass cumulatively sums the
// forecasts seeded by the last value of the corresponding difference level.
func (m *Model) integrate(forecasts []float64) []float64 {
	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	for _, level := range differenceLevels(m.data.Values, m.Order.D) {
		last := level[len(level)-1]
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

// differenceLevels returns the successively differenced copies of values,
// deepest first: the (d-1)-times differenced series down to the original.
func differenceLevels(values []float64, d int) [][]float64 {
	levels := make([][]float64, 0, d)
	cur := values
	for k := 0; k < d; k++ {
		levels = append(levels, cur)
		next := make([]float64, len(cur)-1)
		for j := 1; j < len(cur); j++ {
			next[j-1] = cur[j] - cur[j-1]
		}
		cur = next
	}
	// Reverse so integration starts from the deepest level.
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	return levels
}

// Residuals returns a copy of the model residuals, aligned to the
// differenced series.
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
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model, including a Ljung-Box test
// of the residuals at lag 10 with p+q degrees-of-freedom adjustment.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	lb, _ := stats.LjungBox(m.residuals, 10, m.Order.P+m.Order.Q)

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
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

// yuleWalker estimates AR coefficients from the ACF via Levinson-Durbin.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	if order == 1 {
		phi[0] = acf[1]
		return phi
	}

	phi[0] = acf[1]
	v := 1 - phi[0]*phi[0]

	for i := 1; i < order; i++ {
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		newPhi := make([]float64, i+1)
		for j := 0; j < i; j++ {
			newPhi[j] = phi[j] - lambda*phi[i-1-j]
		}
		newPhi[i] = lambda
		copy(phi, newPhi)

		v *= 1 - lambda*lambda
		if v <= 0 {
			break
		}
	}

	return phi
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
