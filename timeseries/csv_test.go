package timeseries

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCSVFromReader(t *testing.T) {
	data := `date,unrate
2010-01-01,9.8
2010-02-01,9.8
2010-03-01,9.9
2010-04-01,9.9
`
	opts := DefaultCSVOptions()
	opts.ValueColumn = "unrate"

	s, err := LoadCSVFromReader(strings.NewReader(data), opts)
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}
	if s.Len() != 4 {
		t.Errorf("Expected 4 observations, got %d", s.Len())
	}
	if s.Values[2] != 9.9 {
		t.Errorf("Expected value 9.9, got %v", s.Values[2])
	}
}

func TestLoadCSVMalformedValue(t *testing.T) {
	data := `date,value
2010-01-01,9.8
2010-02-01,not-a-number
2010-03-01,9.9
`
	_, err := LoadCSVFromReader(strings.NewReader(data), DefaultCSVOptions())
	if err == nil {
		t.Fatal("Expected error for malformed value, got nil")
	}
	if !errors.Is(err, ErrDataFormat) {
		t.Errorf("Expected ErrDataFormat, got %v", err)
	}
}

func TestLoadCSVMalformedDate(t *testing.T) {
	data := `date,value
2010-01-01,9.8
garbage,9.9
`
	_, err := LoadCSVFromReader(strings.NewReader(data), DefaultCSVOptions())
	if err == nil {
		t.Fatal("Expected error for malformed date, got nil")
	}
	if !errors.Is(err, ErrDataFormat) {
		t.Errorf("Expected ErrDataFormat, got %v", err)
	}
}

func TestLoadCSVNonMonthly(t *testing.T) {
	data := `date,value
2010-01-01,9.8
2010-03-01,9.9
`
	_, err := LoadCSVFromReader(strings.NewReader(data), DefaultCSVOptions())
	if err == nil {
		t.Fatal("Expected error for non-monthly spacing, got nil")
	}
	if !errors.Is(err, ErrDataFormat) {
		t.Errorf("Expected ErrDataFormat, got %v", err)
	}
}

func TestLoadCSVMonthOnlyDates(t *testing.T) {
	data := `date,value
2010-01,9.8
2010-02,9.7
`
	s, err := LoadCSVFromReader(strings.NewReader(data), DefaultCSVOptions())
	if err != nil {
		t.Fatalf("Failed to parse month-only dates: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 observations, got %d", s.Len())
	}
}

func TestSaveCSVRoundTrip(t *testing.T) {
	start := time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)
	original := NewMonthly(start, []float64{9.8, 9.8, 9.9})

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := SaveCSV(original, path); err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}

	loaded, err := LoadCSV(path, DefaultCSVOptions())
	if err != nil {
		t.Fatalf("Failed to reload saved CSV: %v", err)
	}
	if loaded.Len() != original.Len() {
		t.Fatalf("Expected %d observations, got %d", original.Len(), loaded.Len())
	}
	for i := range original.Values {
		if loaded.Values[i] != original.Values[i] {
			t.Errorf("Value %d: expected %v, got %v", i, original.Values[i], loaded.Values[i])
		}
		if !loaded.Timestamps[i].Equal(original.Timestamps[i]) {
			t.Errorf("Timestamp %d: expected %v, got %v", i, original.Timestamps[i], loaded.Timestamps[i])
		}
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	data := `date,value
2010-01-01,9.8
`
	opts := DefaultCSVOptions()
	opts.ValueColumn = "unrate"
	_, err := LoadCSVFromReader(strings.NewReader(data), opts)
	if err == nil {
		t.Fatal("Expected error for missing column, got nil")
	}
}
