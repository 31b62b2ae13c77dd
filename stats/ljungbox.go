package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// LjungBox performs the Ljung-Box portmanteau test on a residual sequence.
// The null hypothesis is that autocorrelations up to lag lags are jointly
// zero; a p-value above 0.05 supports the white-noise hypothesis. fitdf is
// the number of parameters estimated by the model (p+q for ARIMA) and is
// subtracted from the chi-squared degrees of freedom.
func LjungBox(residuals []float64, lags, fitdf int) (*LjungBoxResult, error) {
	n := len(residuals)
	if n < 10 {
		return nil, fmt.Errorf("ljung-box: %w: n=%d", ErrInsufficientData, n)
	}
	if lags < 1 {
		return nil, fmt.Errorf("ljung-box: lags must be at least 1, got %d", lags)
	}
	if lags >= n {
		lags = n - 1
	}

	acf := sliceACF(residuals, lags)
	if acf == nil {
		return nil, fmt.Errorf("ljung-box: %w: zero-variance residuals", ErrInsufficientData)
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi2 := distuv.ChiSquared{K: float64(dof)}
	pValue := chi2.Survival(q)

	return &LjungBoxResult{
		Statistic: q,
		PValue:    pValue,
		Lags:      lags,
		DOF:       dof,
	}, nil
}

// BoxPierceResult represents the result of a Box-Pierce test.
type BoxPierceResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// BoxPierce performs the Box-Pierce test, the uncorrected predecessor of
// Ljung-Box. Kept for side-by-side reporting.
func BoxPierce(residuals []float64, lags, fitdf int) (*BoxPierceResult, error) {
	n := len(residuals)
	if n < 10 {
		return nil, fmt.Errorf("box-pierce: %w: n=%d", ErrInsufficientData, n)
	}
	if lags < 1 {
		return nil, fmt.Errorf("box-pierce: lags must be at least 1, got %d", lags)
	}
	if lags >= n {
		lags = n - 1
	}

	acf := sliceACF(residuals, lags)
	if acf == nil {
		return nil, fmt.Errorf("box-pierce: %w: zero-variance residuals", ErrInsufficientData)
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k]
	}
	q *= float64(n)

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi2 := distuv.ChiSquared{K: float64(dof)}
	pValue := chi2.Survival(q)

	return &BoxPierceResult{
		Statistic: q,
		PValue:    pValue,
		Lags:      lags,
		DOF:       dof,
	}, nil
}

// DurbinWatson calculates the Durbin-Watson statistic for first-order
// autocorrelation. Values near 2 indicate no autocorrelation.
func DurbinWatson(residuals []float64) (float64, error) {
	n := len(residuals)
	if n < 2 {
		return 0, fmt.Errorf("durbin-watson: %w: n=%d", ErrInsufficientData, n)
	}

	numerator := 0.0
	denominator := 0.0
	for i := 1; i < n; i++ {
		diff := residuals[i] - residuals[i-1]
		numerator += diff * diff
	}
	for _, r := range residuals {
		denominator += r * r
	}
	if denominator == 0 {
		return 0, fmt.Errorf("durbin-watson: %w: zero-variance residuals", ErrInsufficientData)
	}

	return numerator / denominator, nil
}

// sliceACF computes the ACF of a raw slice for lags 0..maxLag.
func sliceACF(values []float64, maxLag int) []float64 {
	n := len(values)
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		acf[k] = sum / variance
	}
	return acf
}
