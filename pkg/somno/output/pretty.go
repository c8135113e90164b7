package output

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/somnolab/somno/pkg/somno/analysis"
	"github.com/somnolab/somno/pkg/somno/assess"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	var sections []string

	if r.Assessment != nil {
		sections = append(sections, f.formatAssessment(r.Assessment))
	}

	if len(r.History) > 0 {
		sections = append(sections, f.formatHistory(r.History))
	}

	if r.Report != nil {
		sections = append(sections, f.formatReport(r.Report))
	}

	if r.Quality != nil {
		sections = append(sections, f.formatQuality(r))
	}

	if len(r.Records) > 0 {
		sections = append(sections, f.formatRecords(r))
	}

	w.WriteString(strings.Join(sections, "\n"))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatAssessment builds the assessment box: score, band, impact,
// conditions, and recommendations.
func (f *PrettyFormatter) formatAssessment(a *assess.Assessment) string {
	var lines []string

	title := TitleStyle.Render("Sleep Health Assessment")
	lines = append(lines, title)

	scoreLabel := LabelStyle.Render("Risk score:")
	scoreValue := ScoreStyle.Render(fmt.Sprintf("%d/100", a.RiskScore))
	bandValue := BandStyle(a.RiskBand).Render(string(a.RiskBand))
	lines = append(lines, fmt.Sprintf("%s %s  %s", scoreLabel, scoreValue, bandValue))

	impactLabel := LabelStyle.Render("Life expectancy impact:")
	impactValue := ValueStyle.Render(fmt.Sprintf("%+.1f years", a.LifeImpact))
	if a.LifeImpact < 0 {
		impactValue = WarningStyle.Render(fmt.Sprintf("%+.1f years", a.LifeImpact))
	}
	lines = append(lines, fmt.Sprintf("%s %s", impactLabel, impactValue))

	box := HeaderBox.Render(strings.Join(lines, "\n"))

	var sb strings.Builder
	sb.WriteString(box)
	sb.WriteString("\n")

	if len(a.Conditions) > 0 {
		sb.WriteString(WarningStyle.Bold(true).Render("Potential conditions:"))
		sb.WriteString("\n")
		for _, c := range a.Conditions {
			sb.WriteString(WarningStyle.Render("  - " + c))
			sb.WriteString("\n")
		}
	}

	if len(a.Recommendations) > 0 {
		sb.WriteString(TitleStyle.Render("Recommendations:"))
		sb.WriteString("\n")
		for _, rec := range a.Recommendations {
			sb.WriteString(ValueStyle.Render("  - " + rec))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// formatHistory builds the stored-assessment table, newest first.
func (f *PrettyFormatter) formatHistory(history []assess.Assessment) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
		TableHeaderStyle.Render("WHEN"),
		TableHeaderStyle.Render("SCORE"),
		TableHeaderStyle.Render("BAND"),
		TableHeaderStyle.Render("ID")))

	for _, a := range history {
		when := MutedStyle.Render(padRight(humanize.Time(a.CreatedAt), 16))
		score := ScoreStyle.Render(padLeft(fmt.Sprintf("%d", a.RiskScore), 5))
		band := BandStyle(a.RiskBand).Render(padRight(string(a.RiskBand), 8))
		id := MutedStyle.Render(shortID(a.ID))
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n", when, score, band, id))
	}

	return sb.String()
}

// formatReport builds the analysis report view: headline insights, the
// per-metric summary table, and any anomalies.
func (f *PrettyFormatter) formatReport(rep *analysis.Report) string {
	var lines []string

	title := TitleStyle.Render("Sleep Analysis")
	nights := LabelStyle.Render("Nights:") + " " +
		ValueStyle.Render(humanize.Comma(int64(rep.Records)))
	lines = append(lines, title, nights)

	avg := LabelStyle.Render("Avg duration:") + " " +
		ValueStyle.Render(fmt.Sprintf("%.2f h", rep.Insights.AvgSleepDuration))
	trend := LabelStyle.Render("Quality trend:") + " " +
		f.formatTrend(rep.Insights.QualityTrend)
	lines = append(lines, avg+"  "+trend)

	days := LabelStyle.Render("Best quality:") + " " +
		SuccessStyle.Render(rep.Insights.BestQualityDay.String()) + "  " +
		LabelStyle.Render("Worst:") + " " +
		WarningStyle.Render(rep.Insights.WorstQualityDay.String())
	lines = append(lines, days)

	var sb strings.Builder
	sb.WriteString(HeaderBox.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n")
	sb.WriteString(f.formatStatsTable(rep.BasicStats))

	if len(rep.Anomalies) > 0 {
		sb.WriteString("\n")
		sb.WriteString(WarningStyle.Bold(true).Render(
			fmt.Sprintf("Anomalous nights (%d):", len(rep.Anomalies))))
		sb.WriteString("\n")
		for _, a := range rep.Anomalies {
			line := fmt.Sprintf("  %s  %.1f h  (z=%+.2f)",
				a.Record.Date.Format("2006-01-02"), a.Record.Duration, a.ZScore)
			sb.WriteString(WarningStyle.Render(line))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// formatTrend styles the quality trend direction.
func (f *PrettyFormatter) formatTrend(trend string) string {
	if trend == analysis.TrendImproving {
		return SuccessStyle.Render(trend)
	}
	return MutedStyle.Render(trend)
}

// formatStatsTable builds the per-metric summary table.
func (f *PrettyFormatter) formatStatsTable(stats map[string]analysis.Stats) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("METRIC", 16)),
		TableHeaderStyle.Render("  MEAN"),
		TableHeaderStyle.Render("MEDIAN"),
		TableHeaderStyle.Render("   MIN"),
		TableHeaderStyle.Render("   MAX")))

	for _, metric := range statsOrder {
		s, ok := stats[metric]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
			ValueStyle.Render(padRight(metric, 16)),
			ScoreStyle.Render(padLeft(fmt.Sprintf("%.2f", s.Mean), 6)),
			ValueStyle.Render(padLeft(fmt.Sprintf("%.2f", s.Median), 6)),
			MutedStyle.Render(padLeft(fmt.Sprintf("%.2f", s.Min), 6)),
			MutedStyle.Render(padLeft(fmt.Sprintf("%.2f", s.Max), 6))))
	}

	return sb.String()
}

// statsOrder fixes the metric row order in the summary table.
var statsOrder = []string{
	analysis.MetricDuration,
	analysis.MetricQuality,
	analysis.MetricDeepPct,
	analysis.MetricRemPct,
	analysis.MetricLightPct,
}

// formatQuality builds the data quality footer.
func (f *PrettyFormatter) formatQuality(r *Result) string {
	q := r.Quality

	missing := 0
	for _, n := range q.MissingValues {
		missing += n
	}

	parts := []string{
		LabelStyle.Render("Records:") + " " +
			ValueStyle.Render(humanize.Comma(int64(q.RecordCount))),
	}
	if missing > 0 {
		parts = append(parts, WarningStyle.Render(
			fmt.Sprintf("%d missing values", missing)))
	} else {
		parts = append(parts, SuccessStyle.Render("no missing values"))
	}
	parts = append(parts, f.formatDaemonStatus(r.DaemonUp))

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatRecords builds the record listing.
func (f *PrettyFormatter) formatRecords(r *Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
		TableHeaderStyle.Render("DATE      "),
		TableHeaderStyle.Render("SLEEP"),
		TableHeaderStyle.Render("QUALITY"),
		TableHeaderStyle.Render("BED  "),
		TableHeaderStyle.Render("WAKE ")))

	for _, rec := range r.Records {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
			ValueStyle.Render(rec.Date.Format("2006-01-02")),
			ScoreStyle.Render(padLeft(fmt.Sprintf("%.1fh", rec.Duration), 5)),
			ValueStyle.Render(padLeft(fmt.Sprintf("%.0f", rec.Quality), 7)),
			MutedStyle.Render(formatHour(rec.Bedtime)),
			MutedStyle.Render(formatHour(rec.WakeTime))))
	}

	sb.WriteString(FooterBox.Render(
		LabelStyle.Render("Nights:") + " " +
			ValueStyle.Render(humanize.Comma(int64(len(r.Records)))) + "  " +
			f.formatDaemonStatus(r.DaemonUp)))
	sb.WriteString("\n")

	return sb.String()
}

// formatDaemonStatus returns a styled string indicating daemon status.
func (f *PrettyFormatter) formatDaemonStatus(daemonUp bool) string {
	if !daemonUp {
		return MutedStyle.Render("daemon: off")
	}
	return SuccessStyle.Render("daemon: up")
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatHour renders a fractional hour of day as HH:MM.
func formatHour(h float64) string {
	h = math.Mod(math.Mod(h, 24)+24, 24)
	hh := int(h)
	mm := int(math.Round((h - float64(hh)) * 60))
	if mm == 60 {
		hh = (hh + 1) % 24
		mm = 0
	}
	return fmt.Sprintf("%02d:%02d", hh, mm)
}

// shortID truncates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
