package eval

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mbeckman/unrate/arima"
	"github.com/mbeckman/unrate/timeseries"
)

func newSeries(n int) *timeseries.Series {
	start := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return timeseries.NewMonthly(start, values)
}

func TestSplit(t *testing.T) {
	train, test, err := Split(newSeries(100), 0.8)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if train.Len() != 80 || test.Len() != 20 {
		t.Errorf("Expected 80/20 split, got %d/%d", train.Len(), test.Len())
	}
	if train.Values[79] != 79 || test.Values[0] != 80 {
		t.Errorf("Split boundary wrong: %v, %v", train.Values[79], test.Values[0])
	}
}

func TestSplitBadFraction(t *testing.T) {
	for _, frac := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := Split(newSeries(100), frac); err == nil {
			t.Errorf("Expected error for fraction %v, got nil", frac)
		}
	}
}

func TestSplitEmptyPartition(t *testing.T) {
	if _, _, err := Split(newSeries(3), 0.01); err == nil {
		t.Error("Expected error when the training partition is empty")
	}
}

func TestAccuracy(t *testing.T) {
	forecast := []float64{5, 5, 5}
	actual := []float64{5, 5, 6}

	m, err := Accuracy(forecast, actual)
	if err != nil {
		t.Fatalf("Accuracy failed: %v", err)
	}

	if math.Abs(m.ME-1.0/3) > 1e-12 {
		t.Errorf("Expected ME 1/3, got %v", m.ME)
	}
	if math.Abs(m.MAE-1.0/3) > 1e-12 {
		t.Errorf("Expected MAE 1/3, got %v", m.MAE)
	}
	if math.Abs(m.RMSE-math.Sqrt(1.0/3)) > 1e-12 {
		t.Errorf("Expected RMSE sqrt(1/3), got %v", m.RMSE)
	}
	wantMAPE := (0 + 0 + 1.0/6) / 3
	if math.Abs(m.MAPE-wantMAPE) > 1e-12 {
		t.Errorf("Expected MAPE %v, got %v", wantMAPE, m.MAPE)
	}
	if math.Abs(m.MAPE-0.0556) > 1e-3 {
		t.Errorf("Expected MAPE near 0.0556, got %v", m.MAPE)
	}
	if m.MPE != m.MAPE {
		t.Errorf("All errors positive, MPE should equal MAPE: %v vs %v", m.MPE, m.MAPE)
	}
}

func TestAccuracyPerfect(t *testing.T) {
	m, err := Accuracy([]float64{1, 2, 3}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Accuracy failed: %v", err)
	}
	if m.ME != 0 || m.RMSE != 0 || m.MAE != 0 || m.MAPE != 0 {
		t.Errorf("Expected zero metrics for perfect forecast: %+v", m)
	}
}

func TestAccuracyLengthMismatch(t *testing.T) {
	_, err := Accuracy([]float64{1, 2}, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("Expected error for mismatched lengths, got nil")
	}
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}

func TestAccuracyEmpty(t *testing.T) {
	if _, err := Accuracy(nil, nil); err == nil {
		t.Error("Expected error for empty inputs, got nil")
	}
}

func TestAccuracyZeroActual(t *testing.T) {
	m, err := Accuracy([]float64{1, 2}, []float64{0, 2})
	if err != nil {
		t.Fatalf("Accuracy failed: %v", err)
	}
	if !math.IsNaN(m.MAPE) || !math.IsNaN(m.MPE) {
		t.Errorf("Expected NaN percentage errors with zero actuals: %+v", m)
	}
	if math.IsNaN(m.RMSE) {
		t.Error("Scale-dependent metrics should still be defined")
	}
}

func TestReportBestRMSE(t *testing.T) {
	r := Report{}
	r.Add("a", &Metrics{RMSE: 0.5})
	r.Add("b", &Metrics{RMSE: 0.2})
	r.Add("c", &Metrics{RMSE: 0.9})

	if got := r.BestRMSE(); got != "b" {
		t.Errorf("Expected b, got %q", got)
	}
	if got := (Report{}).BestRMSE(); got != "" {
		t.Errorf("Expected empty name for empty report, got %q", got)
	}
}

// stubForecaster returns a fixed forecast regardless of the input.
type stubForecaster struct {
	fc  *arima.Forecast
	err error
}

func (s *stubForecaster) Forecast(steps int, level float64) (*arima.Forecast, error) {
	return s.fc, s.err
}

func TestEvaluate(t *testing.T) {
	test := newSeries(103).Slice(100, 103)
	stub := &stubForecaster{fc: &arima.Forecast{
		Mean:  []float64{99, 100, 101},
		Lower: []float64{95, 96, 97},
		Upper: []float64{103, 104, 105},
		Level: 0.80,
	}}

	r, err := Evaluate(stub, test, 0.80)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(r.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(r.Rows))
	}
	if r.Rows[0].Actual != 100 || r.Rows[0].Mean != 99 {
		t.Errorf("Row misaligned: %+v", r.Rows[0])
	}
	if r.Level != 0.80 {
		t.Errorf("Expected level 0.80, got %v", r.Level)
	}

	m, err := AccuracyOf(r)
	if err != nil {
		t.Fatalf("AccuracyOf failed: %v", err)
	}
	if math.Abs(m.ME-1) > 1e-12 {
		t.Errorf("Expected ME 1, got %v", m.ME)
	}
}

func TestEvaluateHorizonMismatch(t *testing.T) {
	test := newSeries(103).Slice(100, 103)
	stub := &stubForecaster{fc: &arima.Forecast{
		Mean:  []float64{99},
		Lower: []float64{95},
		Upper: []float64{103},
	}}

	_, err := Evaluate(stub, test, 0.80)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}

func TestEvaluatePropagatesError(t *testing.T) {
	stub := &stubForecaster{err: errors.New("boom")}
	if _, err := Evaluate(stub, newSeries(5), 0.80); err == nil {
		t.Error("Expected forecast error to propagate")
	}
}
