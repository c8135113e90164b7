package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter formats output as simple aligned text.
// It produces plain output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.Assessment != nil {
		a := r.Assessment
		fmt.Fprintf(w, "risk_score: %d\n", a.RiskScore)
		fmt.Fprintf(w, "risk_band: %s\n", a.RiskBand)
		fmt.Fprintf(w, "life_impact_years: %.1f\n", a.LifeImpact)
		for _, c := range a.Conditions {
			fmt.Fprintf(w, "condition: %s\n", c)
		}
		for _, rec := range a.Recommendations {
			fmt.Fprintf(w, "recommendation: %s\n", rec)
		}
	}

	if len(r.History) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tSCORE\tBAND\tID")
		for _, a := range r.History {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
				a.CreatedAt.Format("2006-01-02 15:04"), a.RiskScore, a.RiskBand, a.ID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if r.Report != nil {
		rep := r.Report
		fmt.Fprintf(w, "records: %d\n", rep.Records)
		fmt.Fprintf(w, "avg_sleep_duration: %.2f\n", rep.Insights.AvgSleepDuration)
		fmt.Fprintf(w, "quality_trend: %s\n", rep.Insights.QualityTrend)
		fmt.Fprintf(w, "best_quality_day: %s\n", rep.Insights.BestQualityDay)
		fmt.Fprintf(w, "worst_quality_day: %s\n", rep.Insights.WorstQualityDay)
		fmt.Fprintf(w, "anomalies: %d\n", len(rep.Anomalies))
	}

	if len(r.Records) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		fmt.Fprintln(tw, "DATE\tDURATION\tQUALITY\tBEDTIME\tWAKE")
		for _, rec := range r.Records {
			fmt.Fprintf(tw, "%s\t%.2f\t%.1f\t%s\t%s\n",
				rec.Date.Format("2006-01-02"), rec.Duration, rec.Quality,
				formatHour(rec.Bedtime), formatHour(rec.WakeTime))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
