package timeseries

import (
	"errors"
	"math"
	"time"

	"testing"
)

func monthlyStart() time.Time {
	return time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestNewMonthly(t *testing.T) {
	values := []float64{4.5, 4.6, 4.8, 5.0}
	s := NewMonthly(monthlyStart(), values)

	if s.Len() != 4 {
		t.Fatalf("Expected length 4, got %d", s.Len())
	}
	if !s.Start().Equal(monthlyStart()) {
		t.Errorf("Expected start %v, got %v", monthlyStart(), s.Start())
	}
	want := time.Date(2010, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !s.End().Equal(want) {
		t.Errorf("Expected end %v, got %v", want, s.End())
	}
}

func TestNewMonthlyTruncatesToMonthStart(t *testing.T) {
	mid := time.Date(2010, time.January, 15, 9, 30, 0, 0, time.UTC)
	s := NewMonthly(mid, []float64{1, 2})

	if !s.Start().Equal(monthlyStart()) {
		t.Errorf("Expected truncation to month start, got %v", s.Start())
	}
}

func TestFromObservationsValid(t *testing.T) {
	timestamps := []time.Time{
		time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2010, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2010, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s, err := FromObservations(timestamps, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("Expected length 3, got %d", s.Len())
	}
}

func TestFromObservationsRejectsBadInput(t *testing.T) {
	jan := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2010, 2, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2010, 4, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		timestamps []time.Time
		values     []float64
	}{
		{"length mismatch", []time.Time{jan, feb}, []float64{1}},
		{"empty", nil, nil},
		{"gap", []time.Time{jan, feb, apr}, []float64{1, 2, 3}},
		{"duplicate", []time.Time{jan, jan}, []float64{1, 2}},
		{"out of order", []time.Time{feb, jan}, []float64{1, 2}},
	}

	for _, tc := range cases {
		_, err := FromObservations(tc.timestamps, tc.values)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
			continue
		}
		if !errors.Is(err, ErrDataFormat) {
			t.Errorf("%s: expected ErrDataFormat, got %v", tc.name, err)
		}
	}
}

func TestDiff(t *testing.T) {
	s := NewMonthly(monthlyStart(), []float64{1, 3, 6, 10})
	d := s.Diff()

	if d.Len() != 3 {
		t.Fatalf("Expected length 3, got %d", d.Len())
	}
	want := []float64{2, 3, 4}
	for i, v := range want {
		if d.Values[i] != v {
			t.Errorf("Diff[%d]: expected %v, got %v", i, v, d.Values[i])
		}
	}
}

func TestDiffNComposition(t *testing.T) {
	values := []float64{2, 5, 3, 8, 13, 7, 21, 16, 30, 25}
	s := NewMonthly(monthlyStart(), values)

	twice := s.Diff().Diff()
	direct := s.DiffN(2)

	if twice.Len() != direct.Len() {
		t.Fatalf("Length mismatch: %d vs %d", twice.Len(), direct.Len())
	}
	for i := range direct.Values {
		if math.Abs(direct.Values[i]-twice.Values[i]) > 1e-12 {
			t.Errorf("DiffN(2)[%d]=%v, Diff().Diff()[%d]=%v",
				i, direct.Values[i], i, twice.Values[i])
		}
	}
}

func TestSeasonalDiff(t *testing.T) {
	n := 36
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i%12) + float64(i)/12
	}
	s := NewMonthly(monthlyStart(), values)
	d := s.SeasonalDiff(12)

	if d.Len() != n-12 {
		t.Fatalf("Expected length %d, got %d", n-12, d.Len())
	}
	for i, v := range d.Values {
		if math.Abs(v-1) > 1e-12 {
			t.Errorf("SeasonalDiff[%d]: expected 1, got %v", i, v)
		}
	}
}

func TestSplitReconstruction(t *testing.T) {
	n := 100
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	s := NewMonthly(monthlyStart(), values)

	train, test := s.Split(0.8)
	if train.Len() != 80 {
		t.Errorf("Expected train length 80, got %d", train.Len())
	}
	if test.Len() != 20 {
		t.Errorf("Expected test length 20, got %d", test.Len())
	}

	for i := 0; i < train.Len(); i++ {
		if train.Values[i] != s.Values[i] {
			t.Fatalf("Train[%d]: expected %v, got %v", i, s.Values[i], train.Values[i])
		}
	}
	for i := 0; i < test.Len(); i++ {
		if test.Values[i] != s.Values[train.Len()+i] {
			t.Fatalf("Test[%d]: expected %v, got %v", i, s.Values[train.Len()+i], test.Values[i])
		}
	}
	if !test.Start().Equal(s.Timestamps[80]) {
		t.Errorf("Test start timestamp misaligned: %v", test.Start())
	}
}

func TestMovingAverage(t *testing.T) {
	s := NewMonthly(monthlyStart(), []float64{1, 2, 3, 4, 5})
	ma := s.MovingAverage(3)
	want := []float64{2, 3, 4}
	if ma.Len() != len(want) {
		t.Fatalf("Expected length %d, got %d", len(want), ma.Len())
	}
	for i, v := range want {
		if math.Abs(ma.Values[i]-v) > 1e-12 {
			t.Errorf("MA[%d]: expected %v, got %v", i, v, ma.Values[i])
		}
	}
}

func TestStatistics(t *testing.T) {
	s := NewMonthly(monthlyStart(), []float64{2, 4, 6, 8})
	if s.Mean() != 5 {
		t.Errorf("Expected mean 5, got %v", s.Mean())
	}
	if s.Min() != 2 || s.Max() != 8 {
		t.Errorf("Expected min 2, max 8, got %v, %v", s.Min(), s.Max())
	}
}
