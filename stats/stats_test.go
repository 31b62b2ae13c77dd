package stats

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/mbeckman/unrate/timeseries"
)

func newSeries(values []float64) *timeseries.Series {
	start := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	return timeseries.NewMonthly(start, values)
}

// Fixed seed keeps the synthetic data identical across runs.
func gaussianNoise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func ar1Series(n int, phi float64) *timeseries.Series {
	eps := gaussianNoise(n, 42)
	values := make([]float64, n)
	values[0] = eps[0]
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + eps[i]
	}
	return newSeries(values)
}

func randomWalk(n int) *timeseries.Series {
	eps := gaussianNoise(n, 7)
	values := make([]float64, n)
	values[0] = 100
	for i := 1; i < n; i++ {
		values[i] = values[i-1] + eps[i]
	}
	return newSeries(values)
}

func TestADFStationarySeries(t *testing.T) {
	result, err := ADF(ar1Series(200, 0.5), 0)
	if err != nil {
		t.Fatalf("ADF failed: %v", err)
	}
	t.Logf("ADF stat=%.4f p=%.4f lags=%d", result.Statistic, result.PValue, result.Lags)
	if !result.IsStationary {
		t.Errorf("Expected AR(0.5) series to test stationary, p=%v", result.PValue)
	}
}

func TestADFRandomWalk(t *testing.T) {
	result, err := ADF(randomWalk(200), 0)
	if err != nil {
		t.Fatalf("ADF failed: %v", err)
	}
	t.Logf("ADF stat=%.4f p=%.4f", result.Statistic, result.PValue)
	if result.IsStationary {
		t.Errorf("Expected random walk to test non-stationary, p=%v", result.PValue)
	}
}

func TestADFTooShort(t *testing.T) {
	_, err := ADF(newSeries([]float64{1, 2, 3}), 0)
	if err == nil {
		t.Fatal("Expected error for short series, got nil")
	}
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestKPSSStationarySeries(t *testing.T) {
	result, err := KPSS(ar1Series(200, 0.3), "c", 0)
	if err != nil {
		t.Fatalf("KPSS failed: %v", err)
	}
	t.Logf("KPSS stat=%.4f p=%.4f", result.Statistic, result.PValue)
	if !result.IsStationary {
		t.Errorf("Expected stationary series to pass KPSS, p=%v", result.PValue)
	}
}

func TestKPSSRandomWalk(t *testing.T) {
	result, err := KPSS(randomWalk(300), "c", 0)
	if err != nil {
		t.Fatalf("KPSS failed: %v", err)
	}
	t.Logf("KPSS stat=%.4f p=%.4f", result.Statistic, result.PValue)
	if result.IsStationary {
		t.Errorf("Expected random walk to fail KPSS, p=%v", result.PValue)
	}
}

func TestPhillipsPerron(t *testing.T) {
	result, err := PhillipsPerron(ar1Series(200, 0.5), 0)
	if err != nil {
		t.Fatalf("PP failed: %v", err)
	}
	if !result.IsStationary {
		t.Errorf("Expected AR(0.5) series to test stationary under PP, p=%v", result.PValue)
	}
}

func TestACFLagZero(t *testing.T) {
	acf := ACF(ar1Series(100, 0.5), 10)
	if len(acf) != 11 {
		t.Fatalf("Expected 11 values, got %d", len(acf))
	}
	if math.Abs(acf[0]-1) > 1e-12 {
		t.Errorf("Expected ACF[0]=1, got %v", acf[0])
	}
}

func TestACFDecay(t *testing.T) {
	acf := ACF(ar1Series(500, 0.8), 5)
	if acf[1] < 0.4 {
		t.Errorf("Expected strong lag-1 autocorrelation for AR(0.8), got %v", acf[1])
	}
	if math.Abs(acf[3]) >= math.Abs(acf[1]) {
		t.Errorf("Expected decaying ACF: lag1=%v lag3=%v", acf[1], acf[3])
	}
}

func TestPACFCutoff(t *testing.T) {
	pacf := PACF(ar1Series(500, 0.8), 6)
	if pacf[1] < 0.4 {
		t.Errorf("Expected strong lag-1 PACF for AR(1), got %v", pacf[1])
	}
	// Beyond lag 1 the partial autocorrelations should be small.
	for lag := 3; lag <= 6; lag++ {
		if math.Abs(pacf[lag]) > 0.3 {
			t.Errorf("Expected near-zero PACF at lag %d, got %v", lag, pacf[lag])
		}
	}
}

func TestCorrelogramBounds(t *testing.T) {
	c := ACFWithConfidence(ar1Series(100, 0.5), 10)
	want := 1.96 / math.Sqrt(100)
	if math.Abs(c.ConfBounds-want) > 1e-9 {
		t.Errorf("Expected bounds %v, got %v", want, c.ConfBounds)
	}
	if len(c.Lags) != len(c.Values) {
		t.Errorf("Lags and values lengths differ: %d vs %d", len(c.Lags), len(c.Values))
	}
}

func TestLjungBoxWhiteNoise(t *testing.T) {
	// Under the null the p-value is uniform, so across many independent
	// white-noise sequences the test should reject at roughly the nominal
	// 5% rate.
	const trials = 200
	rejected := 0
	for trial := 0; trial < trials; trial++ {
		residuals := gaussianNoise(300, int64(trial))
		result, err := LjungBox(residuals, 10, 0)
		if err != nil {
			t.Fatalf("LjungBox failed on trial %d: %v", trial, err)
		}
		if result.PValue < 0.05 {
			rejected++
		}
	}
	rate := float64(rejected) / float64(trials)
	t.Logf("rejection rate at 5%%: %.3f (%d/%d)", rate, rejected, trials)
	if rate < 0.01 || rate > 0.12 {
		t.Errorf("Expected rejection rate near 0.05, got %.3f", rate)
	}
}

func TestLjungBoxAutocorrelated(t *testing.T) {
	s := ar1Series(300, 0.8)
	result, err := LjungBox(s.Values, 10, 0)
	if err != nil {
		t.Fatalf("LjungBox failed: %v", err)
	}
	t.Logf("Q=%.4f p=%.4f", result.Statistic, result.PValue)
	if result.PValue >= 0.05 {
		t.Errorf("Expected autocorrelated series to fail Ljung-Box, p=%v", result.PValue)
	}
}

func TestLjungBoxDOF(t *testing.T) {
	residuals := gaussianNoise(100, 3)
	result, err := LjungBox(residuals, 10, 3)
	if err != nil {
		t.Fatalf("LjungBox failed: %v", err)
	}
	if result.DOF != 7 {
		t.Errorf("Expected dof 7, got %d", result.DOF)
	}

	// fitdf >= lags floors the dof at 1.
	result, err = LjungBox(residuals, 2, 5)
	if err != nil {
		t.Fatalf("LjungBox failed: %v", err)
	}
	if result.DOF != 1 {
		t.Errorf("Expected dof floor 1, got %d", result.DOF)
	}
}

func TestDurbinWatson(t *testing.T) {
	dw, err := DurbinWatson(gaussianNoise(200, 11))
	if err != nil {
		t.Fatalf("DurbinWatson failed: %v", err)
	}
	t.Logf("DW=%.4f", dw)
	if dw < 1.5 || dw > 2.5 {
		t.Errorf("Expected DW near 2 for uncorrelated residuals, got %v", dw)
	}
}

func TestRootsStable(t *testing.T) {
	cases := []struct {
		coeffs []float64
		want   bool
	}{
		{[]float64{0.5}, true},
		{[]float64{0.99}, true},
		{[]float64{1.0}, false},
		{[]float64{1.2}, false},
		{[]float64{0.5, 0.3}, true},
		{[]float64{0.9, 0.5}, false},
		{nil, true},
		{[]float64{0}, true},
	}
	for _, tc := range cases {
		if got := RootsStable(tc.coeffs); got != tc.want {
			t.Errorf("RootsStable(%v): expected %v, got %v", tc.coeffs, tc.want, got)
		}
	}
}

func TestSeasonalStrength(t *testing.T) {
	n := 120
	eps := gaussianNoise(n, 5)
	values := make([]float64, n)
	for i := range values {
		values[i] = 10 + 5*math.Sin(2*math.Pi*float64(i)/12) + 0.1*eps[i]
	}
	strength := SeasonalStrength(newSeries(values), 12)
	t.Logf("Seasonal strength: %.4f", strength)
	if strength < 0.64 {
		t.Errorf("Expected strong seasonality, got strength %v", strength)
	}

	flat := ar1Series(120, 0.2)
	weak := SeasonalStrength(flat, 12)
	t.Logf("Non-seasonal strength: %.4f", weak)
	if weak >= 0.64 {
		t.Errorf("Expected weak seasonality, got strength %v", weak)
	}
}

func TestDecompose(t *testing.T) {
	n := 72
	values := make([]float64, n)
	for i := range values {
		values[i] = 50 + 0.2*float64(i) + 8*math.Sin(2*math.Pi*float64(i)/12)
	}
	d := Decompose(newSeries(values), 12, "additive")
	if d == nil {
		t.Fatal("Expected decomposition, got nil")
	}
	if d.Trend.Len() != n || d.Seasonal.Len() != n || d.Residual.Len() != n {
		t.Errorf("Component lengths wrong: trend=%d seasonal=%d residual=%d",
			d.Trend.Len(), d.Seasonal.Len(), d.Residual.Len())
	}

	// The 2x12 centered average removes the sinusoid exactly, so interior
	// trend values should recover the linear trend.
	for i := 6; i < n-6; i++ {
		want := 50 + 0.2*float64(i)
		if math.IsNaN(d.Trend.Values[i]) {
			t.Fatalf("Interior trend is NaN at %d", i)
		}
		if math.Abs(d.Trend.Values[i]-want) > 0.2 {
			t.Errorf("Trend[%d]: expected %.3f, got %.3f", i, want, d.Trend.Values[i])
		}
	}
	for _, i := range []int{0, 5, n - 6, n - 1} {
		if !math.IsNaN(d.Trend.Values[i]) {
			t.Errorf("Edge trend should be NaN at %d, got %v", i, d.Trend.Values[i])
		}
	}
}
