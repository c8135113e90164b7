package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/somnolab/somno/pkg/somno/config"
	"github.com/somnolab/somno/pkg/somno/dataset"
	"github.com/somnolab/somno/pkg/somno/etl"
	"github.com/somnolab/somno/pkg/somno/output"
	"github.com/somnolab/somno/pkg/somno/types"
)

var (
	etlOut           string
	etlSkipNormalize bool
	etlShowQuality   bool
	etlFromDB        bool
	etlQuery         string
)

var etlCmd = &cobra.Command{
	Use:   "etl [in.csv]",
	Short: "Run the ETL pipeline over a sleep dataset",
	Long: `Run the full ETL pipeline: clean (drop invalid rows, dedupe, sort),
engineer features (sleep efficiency, bedtime shift, sleep debt), and
normalize numeric metrics.

Reads from a CSV file, or from the configured Postgres database with
--from-db. Writes the transformed dataset with -o; without -o the records
are rendered in the selected output format.

Examples:
  somno etl sleep.csv -o clean.csv
  somno etl sleep.csv --quality
  somno etl --from-db --query "SELECT * FROM sleep_records" -o clean.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runETL,
}

func init() {
	etlCmd.Flags().StringVarP(&etlOut, "output", "o", "", "write transformed CSV to this path")
	etlCmd.Flags().BoolVar(&etlSkipNormalize, "skip-normalize", false, "skip z-score normalization")
	etlCmd.Flags().BoolVar(&etlShowQuality, "quality", false, "show the data quality report")
	etlCmd.Flags().BoolVar(&etlFromDB, "from-db", false, "load records from the configured database")
	etlCmd.Flags().StringVar(&etlQuery, "query", "", "SQL query for --from-db (default: configured query)")
	rootCmd.AddCommand(etlCmd)
}

func runETL(cmd *cobra.Command, args []string) error {
	records, err := loadRecords(args)
	if err != nil {
		return err
	}
	printVerbose("loaded %d records", len(records))

	t := etl.New(records).Clean().EngineerFeatures()
	if !etlSkipNormalize {
		t = t.Normalize()
	}
	t = t.QualityChecks()

	transformed := t.Records()
	printVerbose("pipeline kept %d records", len(transformed))

	if etlOut != "" {
		if err := dataset.SaveCSV(etlOut, transformed); err != nil {
			return err
		}
		printInfo("Wrote %d records to %s", len(transformed), etlOut)
		if !etlShowQuality {
			return nil
		}
	}

	result := &output.Result{}
	if etlShowQuality {
		result.Quality = t.Quality()
	}
	if etlOut == "" {
		result.Records = transformed
	}

	return renderResult(result)
}

// loadRecords reads records from the CSV argument or the database.
func loadRecords(args []string) ([]types.SleepRecord, error) {
	if etlFromDB {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("loading configuration: %w", err)
		}
		if cfg.Database.DSN == "" {
			return nil, fmt.Errorf("--from-db requires database.dsn in configuration")
		}

		query := etlQuery
		if query == "" {
			query = cfg.Database.Query
		}
		if query == "" {
			return nil, fmt.Errorf("--from-db requires --query or database.query in configuration")
		}

		return dataset.LoadDatabase(cfg.Database.DSN, query)
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("an input CSV path is required (or use --from-db)")
	}
	return dataset.LoadCSV(args[0])
}
