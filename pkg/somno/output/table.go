package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/somnolab/somno/pkg/somno/assess"
)

// recordHeader is the column set emitted by the tabular record formatters.
var recordHeader = []string{
	"date", "sleep_duration", "quality_score", "bedtime", "wake_time",
	"stress_level", "heart_rate", "deep_sleep_pct", "rem_sleep_pct",
}

// historyHeader is the column set emitted for assessment history.
var historyHeader = []string{"created_at", "risk_score", "risk_band", "life_impact_years", "id"}

// TSVFormatter formats records or history as tab-separated values.
// It produces a header row followed by data rows.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, row := range tabularRows(r) {
		for i, field := range row {
			if i > 0 {
				w.WriteByte('\t')
			}
			w.WriteString(field)
		}
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats records or history as comma-separated values with
// proper quoting. It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)
	for _, row := range tabularRows(r) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// TableFormatter formats records or history as an aligned text table with
// uppercase column headings, suitable for terminal display.
type TableFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TableFormatter) Format(w *bytes.Buffer, r *Result) error {
	rows := tabularRows(r)
	if len(rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, row := range rows {
		if i == 0 {
			fmt.Fprintln(tw, strings.ToUpper(strings.Join(row, "\t")))
			continue
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func init() {
	Register("table", func() Formatter {
		return &TableFormatter{}
	})
}

// Ensure TableFormatter implements Formatter.
var _ Formatter = (*TableFormatter)(nil)

// tabularRows flattens the result into header+data rows. Records win over
// history when both are present, since mixing the two makes no table.
func tabularRows(r *Result) [][]string {
	if len(r.Records) > 0 {
		rows := make([][]string, 0, len(r.Records)+1)
		rows = append(rows, recordHeader)
		for _, rec := range r.Records {
			rows = append(rows, []string{
				rec.Date.Format("2006-01-02"),
				formatFloat(rec.Duration),
				formatFloat(rec.Quality),
				formatFloat(rec.Bedtime),
				formatFloat(rec.WakeTime),
				formatFloat(rec.Stress),
				formatFloat(rec.HeartRate),
				formatFloat(rec.DeepPct),
				formatFloat(rec.RemPct),
			})
		}
		return rows
	}

	var history []assess.Assessment
	if r.Assessment != nil {
		history = append(history, *r.Assessment)
	}
	history = append(history, r.History...)
	if len(history) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(history)+1)
	rows = append(rows, historyHeader)
	for _, a := range history {
		rows = append(rows, []string{
			a.CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(a.RiskScore),
			string(a.RiskBand),
			fmt.Sprintf("%.1f", a.LifeImpact),
			a.ID,
		})
	}
	return rows
}

// formatFloat renders a metric with two decimal places.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
