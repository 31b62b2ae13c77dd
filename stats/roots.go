package stats

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// RootsStable reports whether every root of the characteristic polynomial
// 1 - c[0]z - c[1]z^2 - ... - c[k-1]z^k lies strictly outside the unit
// circle. Applied to AR coefficients this is the stationarity condition;
// applied to MA coefficients, invertibility. The roots are recovered as the
// eigenvalue reciprocals of the companion matrix of the lag polynomial.
func RootsStable(coeffs []float64) bool {
	// Trailing zero coefficients do not change the effective polynomial.
	k := len(coeffs)
	for k > 0 && coeffs[k-1] == 0 {
		k--
	}
	if k == 0 {
		return true
	}
	if k == 1 {
		// Root at 1/c: outside the unit circle iff |c| < 1.
		c := coeffs[0]
		return c > -1 && c < 1
	}

	companion := mat.NewDense(k, k, nil)
	for j := 0; j < k; j++ {
		companion.Set(0, j, coeffs[j])
	}
	for i := 1; i < k; i++ {
		companion.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if !eig.Factorize(companion, mat.EigenNone) {
		return false
	}

	const margin = 1e-8
	for _, v := range eig.Values(nil) {
		// Eigenvalues are the reciprocal roots; stability needs them inside
		// the unit circle.
		if cmplx.Abs(v) >= 1-margin {
			return false
		}
	}
	return true
}
