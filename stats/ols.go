package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientData reports a series too short for the requested statistic.
var ErrInsufficientData = errors.New("insufficient observations")

// olsFit solves y = X*beta by least squares and returns the coefficient
// estimates with their standard errors.
func olsFit(x *mat.Dense, y []float64) (coeffs, stdErrs []float64, err error) {
	n, k := x.Dims()
	if n != len(y) {
		return nil, nil, fmt.Errorf("ols: %d rows for %d responses", n, len(y))
	}
	if n <= k {
		return nil, nil, fmt.Errorf("ols: %w: %d rows for %d regressors", ErrInsufficientData, n, k)
	}

	yVec := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(x)

	beta := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(beta, false, yVec); err != nil {
		return nil, nil, fmt.Errorf("ols: solve: %w", err)
	}

	// Residual variance.
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, beta)
	sse := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		sse += r * r
	}
	s2 := sse / float64(n-k)

	// Standard errors from the diagonal of s2 * (X'X)^-1.
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil, fmt.Errorf("ols: singular design matrix: %w", err)
	}

	coeffs = make([]float64, k)
	stdErrs = make([]float64, k)
	for j := 0; j < k; j++ {
		coeffs[j] = beta.AtVec(j)
		stdErrs[j] = math.Sqrt(s2 * xtxInv.At(j, j))
	}
	return coeffs, stdErrs, nil
}
