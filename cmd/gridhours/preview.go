package main

import (
	"fmt"

	"github.com/jgoulah/gridhours/internal/loader"
	"github.com/jgoulah/gridhours/internal/pipeline"
	"github.com/jgoulah/gridhours/internal/table"
	"github.com/spf13/cobra"
)

var (
	previewData    string
	previewRows    int
	previewCleaned bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the first rows and a column summary of the data file",
	Long:  `Loads the data file and prints its first rows and, per column, the non-null count and value kinds. With --cleaned the rows are shown after every cleaning step.`,
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewData, "data", "", "input file (overrides data_file)")
	previewCmd.Flags().IntVar(&previewRows, "rows", 5, "number of rows to show")
	previewCmd.Flags().BoolVar(&previewCleaned, "cleaned", false, "preview after cleaning and feature extraction")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if previewData != "" {
		cfg.DataFile = previewData
	}
	logger := newLogger(cfg)

	var t *table.Table
	if previewCleaned {
		prepared, err := pipeline.NewRunner(cfg, logger).Prepare(cmd.Context())
		if err != nil {
			return err
		}
		t = prepared.Table
	} else {
		t, err = loader.New(logger).Load(cfg.GetDataFile(), cfg.GetDelimiter())
		if err != nil {
			return err
		}
	}

	out := newConsole(cmd)
	out.Heading(fmt.Sprintf("First %d rows of %s", previewRows, cfg.GetDataFile()))
	if err := out.Preview(t, previewRows); err != nil {
		return err
	}
	out.Heading("Columns")
	return out.Info(t)
}
