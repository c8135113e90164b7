package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somnolab/somno/pkg/client"
	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/output"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored assessments",
	Long: `List past assessments stored by the somnod daemon, newest first.

Assessments are stored when 'somno assess --track' is used or when clients
post to the daemon API directly.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored assessment",
	Long:  `Display the full stored assessment with the given ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one stored assessment",
	Long:  `Remove the stored assessment with the given ID from the history.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", config.DefaultHistoryLimit, "maximum number of entries to show (0 = all)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// historyClient connects to the daemon, auto-starting it if configured.
func historyClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if !viper.GetBool("no_daemon") {
		if err := maybeStartDaemon(cfg); err != nil {
			return nil, fmt.Errorf("daemon unavailable: %w", err)
		}
	}

	return client.New(daemonAddr(cfg)), nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := historyClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	list, err := c.ListAssessments(ctx, historyLimit)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		printInfo("No assessments stored yet.")
		printInfo("Run 'somno assess --track ...' to record one.")
		return nil
	}

	return renderResult(&output.Result{History: list, DaemonUp: true})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	c, err := historyClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := c.GetAssessment(ctx, args[0])
	if err != nil {
		return err
	}

	return renderResult(&output.Result{Assessment: a, DaemonUp: true})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	c, err := historyClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.DeleteAssessment(ctx, args[0]); err != nil {
		return err
	}

	printInfo("Deleted assessment %s", args[0])
	return nil
}
