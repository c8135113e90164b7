package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/somnolab/somno/pkg/somno/dataset"
	"github.com/somnolab/somno/pkg/somno/etl"
	"github.com/somnolab/somno/pkg/somno/output"
)

var (
	recordsLimit int
	recordsFrom  string
	recordsTo    string
	recordsRaw   bool
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage sleep records stored by the daemon",
	Long: `Push sleep records into the somnod daemon and inspect what it holds.

Stored records feed 'somno analyze' (without a file argument) and the
daemon's /api/v1/analysis endpoint.`,
}

var recordsAddCmd = &cobra.Command{
	Use:   "add <in.csv>",
	Short: "Store records from a CSV file",
	Long: `Parse a CSV file of sleep records, run the ETL clean step, and store
the result in the daemon. Use --raw to store the rows as-is.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecordsAdd,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
	Long:  `List the daemon's stored sleep records in chronological order.`,
	RunE:  runRecordsList,
}

func init() {
	recordsAddCmd.Flags().BoolVar(&recordsRaw, "raw", false, "store rows without the ETL clean step")

	recordsListCmd.Flags().IntVarP(&recordsLimit, "limit", "l", 0, "maximum number of records to show (0 = all)")
	recordsListCmd.Flags().StringVar(&recordsFrom, "from", "", "start date (YYYY-MM-DD)")
	recordsListCmd.Flags().StringVar(&recordsTo, "to", "", "end date (YYYY-MM-DD)")

	recordsCmd.AddCommand(recordsAddCmd)
	recordsCmd.AddCommand(recordsListCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runRecordsAdd(cmd *cobra.Command, args []string) error {
	records, err := dataset.LoadCSV(args[0])
	if err != nil {
		return err
	}
	if !recordsRaw {
		records = etl.New(records).Clean().EngineerFeatures().Records()
	}
	if len(records) == 0 {
		return fmt.Errorf("no usable records in %s", args[0])
	}

	c, err := historyClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stored, err := c.AddRecords(ctx, records)
	if err != nil {
		return err
	}

	printInfo("Stored %d records", stored)
	return nil
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	from, err := parseOptionalDate(recordsFrom, "from")
	if err != nil {
		return err
	}
	to, err := parseOptionalDate(recordsTo, "to")
	if err != nil {
		return err
	}

	c, err := historyClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := c.ListRecords(ctx, from, to, recordsLimit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		printInfo("No records stored yet.")
		printInfo("Run 'somno records add <file.csv>' to store some.")
		return nil
	}

	return renderResult(&output.Result{Records: records, DaemonUp: true})
}

// parseOptionalDate parses a YYYY-MM-DD flag value, treating empty as open.
func parseOptionalDate(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q, want YYYY-MM-DD", name, value)
	}
	return t, nil
}
