package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/gridhours/internal/pipeline"
	"github.com/jgoulah/gridhours/internal/publisher"
	"github.com/spf13/cobra"
)

var (
	runData        string
	runOutput      string
	runDelimiter   string
	runWriteIndex  bool
	runSave        bool
	runPublishFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline and write the hourly summary",
	Long: `Loads the data file, drops test rows and ambiguous duplicates, converts types,
parses timestamps, fills missing values, and writes grid purchase and feed-in summed
by hour of day with the peak feed-in hour flagged.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runData, "data", "", "input file (overrides data_file)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "summary file (overrides output_file)")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "input field delimiter (overrides delimiter)")
	runCmd.Flags().BoolVar(&runWriteIndex, "write-index", false, "write a leading row index column")
	runCmd.Flags().BoolVar(&runSave, "save", false, "save the run to the database (implied by database in config or --db)")
	runCmd.Flags().BoolVar(&runPublishFlag, "publish", false, "publish the run over MQTT (implied by mqtt.enabled)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if runData != "" {
		cfg.DataFile = runData
	}
	if runOutput != "" {
		cfg.OutputFile = runOutput
	}
	if runDelimiter != "" {
		cfg.Delimiter = runDelimiter
	}
	if runWriteIndex {
		cfg.WriteIndex = true
	}
	if runPublishFlag {
		cfg.MQTT.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	out := newConsole(cmd)

	var opts []pipeline.Option
	if runSave || dbPath != "" || cfg.Database != "" {
		db, err := openDB(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		opts = append(opts, pipeline.WithStore(db))
	}
	if cfg.MQTT.Enabled {
		pub, err := publisher.New(cfg.MQTT, logger)
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}
		defer pub.Close()
		opts = append(opts, pipeline.WithPublisher(pub))
	}

	res, err := pipeline.NewRunner(cfg, logger, opts...).Run(cmd.Context())
	if err != nil {
		return err
	}

	run := res.Run
	out.Success("Loaded %s rows, dropped %s test rows, removed %s duplicate rows",
		humanize.Comma(int64(run.RowsLoaded)),
		humanize.Comma(int64(run.RowsDropped)),
		humanize.Comma(int64(run.RowsDeduplicated)))
	if len(run.Hours) == 0 {
		out.Warning("No rows left after cleaning; wrote an empty summary")
	} else if err := out.Hours(run.Hours); err != nil {
		return err
	}
	if run.HasPeak() {
		out.Success("Hourly grid usage saved to %s (peak feed-in at %02d:00)", run.OutputFile, run.MaxFeedinHour)
	} else {
		out.Success("Hourly grid usage saved to %s", run.OutputFile)
	}
	for _, e := range cfg.Exports {
		out.Success("Exported %s to %s", e.Format, e.Path)
	}
	if run.Published {
		out.Success("Published run %s", run.ID)
	}
	return nil
}
