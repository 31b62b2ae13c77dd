package timeseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn  string // Column name for dates (default: first column)
	ValueColumn string // Column name for values (default: second column)
	DateFormat  string // Date format (default: "2006-01-02")
	HasHeader   bool   // Whether the first row is a header (default: true)
	Delimiter   rune   // Field delimiter (default: ',')
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateFormat: "2006-01-02",
		HasHeader:  true,
		Delimiter:  ',',
	}
}

// LoadCSV loads a monthly series from a CSV file. The file must contain a
// date column (ISO-8601) and a numeric value column, one row per month in
// chronological order. Any malformed row fails the load with ErrDataFormat;
// rows are never silently skipped.
func LoadCSV(filename string, opts *CSVOptions) (*Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	series, err := LoadCSVFromReader(file, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return series, nil
}

// LoadCSVFromReader loads a monthly series from an io.Reader.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	if opts.DateFormat == "" {
		opts.DateFormat = "2006-01-02"
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true

	dateIdx, valueIdx := 0, 1
	if opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("%w: missing header row", ErrDataFormat)
		}
		if len(header) < 2 {
			return nil, fmt.Errorf("%w: expected at least 2 columns, got %d", ErrDataFormat, len(header))
		}
		dateIdx, valueIdx = -1, -1
		for i, h := range header {
			h = strings.TrimSpace(strings.Trim(h, "\""))
			switch {
			case opts.DateColumn != "" && h == opts.DateColumn:
				dateIdx = i
			case opts.ValueColumn != "" && h == opts.ValueColumn:
				valueIdx = i
			}
		}
		if opts.DateColumn == "" {
			dateIdx = 0
		}
		if opts.ValueColumn == "" {
			valueIdx = 1
		}
		if dateIdx < 0 {
			return nil, fmt.Errorf("%w: date column %q not found", ErrDataFormat, opts.DateColumn)
		}
		if valueIdx < 0 {
			return nil, fmt.Errorf("%w: value column %q not found", ErrDataFormat, opts.ValueColumn)
		}
	}

	var timestamps []time.Time
	var values []float64

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrDataFormat, row, err)
		}
		row++

		if dateIdx >= len(record) || valueIdx >= len(record) {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrDataFormat, row, len(record))
		}

		dateStr := strings.TrimSpace(strings.Trim(record[dateIdx], "\""))
		ts, err := parseDate(dateStr, opts.DateFormat)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: unparseable date %q", ErrDataFormat, row, dateStr)
		}

		valStr := strings.TrimSpace(strings.Trim(record[valueIdx], "\""))
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: unparseable value %q", ErrDataFormat, row, valStr)
		}

		timestamps = append(timestamps, ts)
		values = append(values, val)
	}

	// FromObservations enforces the strictly increasing gap-free monthly grid.
	return FromObservations(timestamps, values)
}

// parseDate accepts the configured format plus common ISO variants.
func parseDate(s, format string) (time.Time, error) {
	formats := []string{format, "2006-01-02", "2006-01", "2006-01-02T15:04:05"}
	var ts time.Time
	var err error
	for _, f := range formats {
		ts, err = time.Parse(f, s)
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, err
}

// SaveCSV writes a series to a CSV file as date,value rows.
func SaveCSV(series *Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for i, v := range series.Values {
		rec := []string{
			series.Timestamps[i].Format("2006-01-02"),
			strconv.FormatFloat(v, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
