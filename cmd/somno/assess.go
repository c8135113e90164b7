package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somnolab/somno/pkg/client"
	"github.com/somnolab/somno/pkg/somno/assess"
	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/output"
	"github.com/somnolab/somno/pkg/somno/types"
)

var (
	assessInput types.AssessmentInput
	assessTrack bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess sleep-health risk for a sleep profile",
	Long: `Score a sleep profile against the rule-based health risk model.

The model produces a 0-100 risk score with a band (low, moderate, elevated,
high), predicted health conditions, an estimated life-expectancy impact in
years, and recommendations.

By default the assessment runs locally. With --track it is sent to the
somnod daemon and stored in the assessment history.

Examples:
  somno assess --age 42 --duration 6.5 --quality 70 --stress 6 \
    --deep 16 --rem 21 --heart-rate 68
  somno assess --age 42 --duration 6.5 --quality 70 --track -f json`,
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().IntVar(&assessInput.Age, "age", 0, "age in years (18-100)")
	assessCmd.Flags().Float64Var(&assessInput.Duration, "duration", 0, "average sleep duration in hours (4-12)")
	assessCmd.Flags().Float64Var(&assessInput.Quality, "quality", 0, "sleep quality score (0-100)")
	assessCmd.Flags().Float64Var(&assessInput.Stress, "stress", 0, "stress level (0-10)")
	assessCmd.Flags().Float64Var(&assessInput.DeepPct, "deep", 0, "deep sleep percentage (0-40)")
	assessCmd.Flags().Float64Var(&assessInput.RemPct, "rem", 0, "REM sleep percentage (0-40)")
	assessCmd.Flags().Float64Var(&assessInput.HeartRate, "heart-rate", 0, "resting heart rate in bpm (40-100)")
	assessCmd.Flags().BoolVar(&assessTrack, "track", false, "store the assessment in the daemon's history")

	_ = assessCmd.MarkFlagRequired("age")
	_ = assessCmd.MarkFlagRequired("duration")
	_ = assessCmd.MarkFlagRequired("quality")
	_ = assessCmd.MarkFlagRequired("stress")
	_ = assessCmd.MarkFlagRequired("deep")
	_ = assessCmd.MarkFlagRequired("rem")
	_ = assessCmd.MarkFlagRequired("heart-rate")

	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	if assessTrack {
		return runTrackedAssess()
	}

	a, err := assess.Assess(assessInput)
	if err != nil {
		return err
	}

	return renderResult(&output.Result{Assessment: a})
}

// runTrackedAssess sends the input to the daemon so the assessment lands in
// the stored history.
func runTrackedAssess() error {
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

	a, err := client.New(daemonAddr(cfg)).Assess(ctx, assessInput)
	if err != nil {
		return err
	}

	printVerbose("assessment %s stored", a.ID)
	return renderResult(&output.Result{Assessment: a, DaemonUp: true})
}
