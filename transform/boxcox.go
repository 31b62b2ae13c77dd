// Package transform implements the Box-Cox power transform and Guerrero
// lambda estimation for variance stabilization.
package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/mbeckman/unrate/timeseries"
)

// ErrInvalidInput reports values that violate the transform preconditions,
// such as non-positive observations when a logarithm is required.
var ErrInvalidInput = errors.New("invalid input for transform")

// Lambda search bounds for Guerrero estimation.
const (
	lambdaMin  = -1.0
	lambdaMax  = 2.0
	lambdaStep = 0.01
)

// BoxCox applies the Box-Cox power transform with the given lambda.
// For lambda = 0 the transform is the natural logarithm; otherwise it is
// (y^lambda - 1) / lambda. Returns a new series; the input is untouched.
func BoxCox(s *timeseries.Series, lambda float64) (*timeseries.Series, error) {
	out := s.Copy()
	out.Name = s.Name + "_boxcox"

	for i, v := range s.Values {
		switch {
		case lambda == 0:
			if v <= 0 {
				return nil, fmt.Errorf("%w: log transform requires positive values, got %g at index %d",
					ErrInvalidInput, v, i)
			}
			out.Values[i] = math.Log(v)
		default:
			if v < 0 && lambda != math.Trunc(lambda) {
				return nil, fmt.Errorf("%w: fractional power of negative value %g at index %d",
					ErrInvalidInput, v, i)
			}
			out.Values[i] = (math.Pow(v, lambda) - 1) / lambda
		}
	}

	return out, nil
}

// InvBoxCox inverts the Box-Cox transform, mapping transformed values back
// to the original scale. Values where the inverse is undefined (negative
// argument to a fractional root) come back as NaN.
func InvBoxCox(values []float64, lambda float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if lambda == 0 {
			out[i] = math.Exp(v)
			continue
		}
		arg := lambda*v + 1
		if arg <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Pow(arg, 1/lambda)
	}
	return out
}

// GuerreroLambda estimates the Box-Cox lambda that best stabilizes variance
// using Guerrero's method: the series is split into non-overlapping groups of
// length period, and lambda is chosen over [-1, 2] to minimize the
// coefficient of variation of groupStd / groupMean^(1-lambda).
// Deterministic for a given series. Requires strictly positive values.
func GuerreroLambda(s *timeseries.Series, period int) (float64, error) {
	if period < 2 {
		period = 2
	}
	n := s.Len()
	if n < 2*period {
		return 0, fmt.Errorf("%w: need at least %d observations for group length %d, got %d",
			ErrInvalidInput, 2*period, period, n)
	}
	for i, v := range s.Values {
		if v <= 0 {
			return 0, fmt.Errorf("%w: Guerrero search requires positive values, got %g at index %d",
				ErrInvalidInput, v, i)
		}
	}

	// Group means and standard deviations, trailing partial group dropped.
	groups := n / period
	means := make([]float64, groups)
	stds := make([]float64, groups)
	for g := 0; g < groups; g++ {
		window := s.Values[g*period : (g+1)*period]
		means[g] = stat.Mean(window, nil)
		stds[g] = math.Sqrt(stat.Variance(window, nil))
	}

	bestLambda := lambdaMin
	bestCV := math.Inf(1)

	ratios := make([]float64, groups)
	for lambda := lambdaMin; lambda <= lambdaMax+lambdaStep/2; lambda += lambdaStep {
		for g := 0; g < groups; g++ {
			ratios[g] = stds[g] / math.Pow(means[g], 1-lambda)
		}
		mean := stat.Mean(ratios, nil)
		if mean == 0 {
			continue
		}
		cv := math.Sqrt(stat.Variance(ratios, nil)) / mean
		if cv < bestCV {
			bestCV = cv
			bestLambda = lambda
		}
	}

	// Snap to the grid to keep the estimate reproducible across platforms.
	return math.Round(bestLambda/lambdaStep) * lambdaStep, nil
}
