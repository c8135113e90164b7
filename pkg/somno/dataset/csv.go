package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/somnolab/somno/pkg/somno/types"
)

// DateLayout is the date format used in CSV files.
const DateLayout = "2006-01-02"

// csvHeader is the fixed column order for sleep record CSV files.
var csvHeader = []string{
	"date", "sleep_duration", "quality_score", "bedtime", "wake_time",
	"activity_level", "stress_level", "heart_rate",
	"deep_sleep_pct", "rem_sleep_pct", "light_sleep_pct",
}

// ErrBadHeader indicates a CSV file whose header does not match the
// expected sleep record columns.
var ErrBadHeader = errors.New("unexpected CSV header")

// RowError wraps a parse failure with the 1-based row number it occurred on.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadCSV parses sleep records from r. The first row must be the canonical
// header. Parse failures abort with a RowError naming the offending row.
func ReadCSV(r io.Reader) ([]types.SleepRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrBadHeader)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], col)
		}
	}

	var records []types.SleepRecord
	row := 1
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}

		rec, err := parseRow(fields)
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		records = append(records, rec)
	}

	return records, nil
}

// LoadCSV reads sleep records from a CSV file on disk.
func LoadCSV(path string) ([]types.SleepRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return records, nil
}

// WriteCSV writes records to w with the canonical header.
func WriteCSV(w io.Writer, records []types.SleepRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Date.Format(DateLayout),
			formatFloat(rec.Duration),
			formatFloat(rec.Quality),
			formatFloat(rec.Bedtime),
			formatFloat(rec.WakeTime),
			formatFloat(rec.Activity),
			formatFloat(rec.Stress),
			formatFloat(rec.HeartRate),
			formatFloat(rec.DeepPct),
			formatFloat(rec.RemPct),
			formatFloat(rec.LightPct),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes records to a CSV file, creating or truncating it.
func SaveCSV(path string, records []types.SleepRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return fmt.Errorf("saving %s: %w", path, err)
	}

	return f.Close()
}

func parseRow(fields []string) (types.SleepRecord, error) {
	var rec types.SleepRecord

	date, err := time.Parse(DateLayout, fields[0])
	if err != nil {
		return rec, fmt.Errorf("parsing date %q: %w", fields[0], err)
	}
	rec.Date = date
	rec.Weekday = date.Weekday()

	targets := []*float64{
		&rec.Duration, &rec.Quality, &rec.Bedtime, &rec.WakeTime,
		&rec.Activity, &rec.Stress, &rec.HeartRate,
		&rec.DeepPct, &rec.RemPct, &rec.LightPct,
	}
	for i, target := range targets {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return rec, fmt.Errorf("parsing %s %q: %w", csvHeader[i+1], fields[i+1], err)
		}
		*target = v
	}

	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
