package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somnolab/somno/pkg/client"
	"github.com/somnolab/somno/pkg/somno/analysis"
	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/dataset"
	"github.com/somnolab/somno/pkg/somno/etl"
	"github.com/somnolab/somno/pkg/somno/output"
)

var (
	analyzeWindow    int
	analyzeMetric    string
	analyzeThreshold float64
	analyzeRaw       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [in.csv]",
	Short: "Build a statistical sleep report",
	Long: `Compute basic statistics, weekly patterns, metric correlations, trend
moving averages, and z-score anomalies over a sleep dataset.

With a CSV argument the analysis runs locally over that file (cleaned and
feature-engineered first unless --raw). Without an argument the daemon is
queried for a report over its stored records.

Examples:
  somno analyze clean.csv
  somno analyze clean.csv --window 14 --metric quality_score
  somno analyze                      # analysis of daemon-stored records`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeWindow, "window", "w", 0, "trend moving-average window in nights (default from config)")
	analyzeCmd.Flags().StringVarP(&analyzeMetric, "metric", "m", "", "metric inspected for anomalies (default sleep_duration)")
	analyzeCmd.Flags().Float64VarP(&analyzeThreshold, "threshold", "t", 0, "anomaly z-score threshold (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeRaw, "raw", false, "analyze the file as-is, skipping the ETL clean step")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runDaemonAnalyze()
	}

	records, err := dataset.LoadCSV(args[0])
	if err != nil {
		return err
	}
	if !analyzeRaw {
		records = etl.New(records).Clean().EngineerFeatures().Records()
	}
	if len(records) == 0 {
		return fmt.Errorf("no usable records in %s", args[0])
	}

	opts := analysis.Options{
		TrendWindow:      viper.GetInt("analysis.trend_window"),
		AnomalyThreshold: viper.GetFloat64("analysis.anomaly_threshold"),
		AnomalyMetric:    analyzeMetric,
	}
	if analyzeWindow > 0 {
		opts.TrendWindow = analyzeWindow
	}
	if analyzeThreshold > 0 {
		opts.AnomalyThreshold = analyzeThreshold
	}

	report, err := analysis.BuildReport(records, opts)
	if err != nil {
		return err
	}

	return renderResult(&output.Result{Report: report})
}

// runDaemonAnalyze fetches the analysis report from the daemon.
func runDaemonAnalyze() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if !viper.GetBool("no_daemon") {
		if err := maybeStartDaemon(cfg); err != nil {
			return fmt.Errorf("daemon unavailable: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := client.New(daemonAddr(cfg)).Analysis(ctx, analyzeWindow, analyzeMetric)
	if err != nil {
		return err
	}

	return renderResult(&output.Result{Report: report, DaemonUp: true})
}
