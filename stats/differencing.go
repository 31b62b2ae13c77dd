package stats

import (
	"math"

	"github.com/mbeckman/unrate/timeseries"
)

// NDiffs suggests the number of first differences required for stationarity,
// between 0 and maxD. testType is "kpss" (default) or "adf". This is
// advisory: the pipeline treats the differencing order as an explicit policy
// decision reviewed against both tests' p-values.
func NDiffs(series *timeseries.Series, maxD int, testType string) int {
	if maxD <= 0 {
		maxD = 2
	}
	if testType == "" {
		testType = "kpss"
	}

	current := series
	for d := 0; d < maxD; d++ {
		isStationary := false

		if testType == "adf" {
			if result, err := ADF(current, 0); err == nil && result.IsStationary {
				isStationary = true
			}
		} else {
			if result, err := KPSS(current, "c", 0); err == nil && result.IsStationary {
				isStationary = true
			}
		}

		if isStationary {
			return d
		}

		current = current.Diff()
		if current.Len() < 10 {
			return d
		}
	}

	return maxD
}

// NSDiffs suggests the number of seasonal differences required, between 0 and
// maxD, using the seasonal-strength threshold of 0.64.
func NSDiffs(series *timeseries.Series, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	current := series
	for d := 0; d < maxD; d++ {
		if SeasonalStrength(current, period) < 0.64 {
			return d
		}

		current = current.SeasonalDiff(period)
		if current.Len() < 2*period {
			return d
		}
	}

	return maxD
}

// InformationCriteria bundles the fit metrics derived from a model's
// log-likelihood.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC derives AIC, AICc, and BIC from a log-likelihood, the number of
// observations, and the number of estimated parameters.
func CalculateIC(logLik float64, nObs, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	bic := -2*logLik + k*math.Log(n)

	aicc := math.Inf(1)
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	}

	return &InformationCriteria{
		AIC:    aic,
		AICc:   aicc,
		BIC:    bic,
		LogLik: logLik,
	}
}
