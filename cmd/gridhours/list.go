package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	Long:  `Displays runs stored in the database, newest first.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of runs to show (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open database
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), listLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := newConsole(cmd)
	if len(runs) == 0 {
		out.Warning("No runs found in %s", getDBPath(cfg))
		return nil
	}
	return out.Runs(runs)
}
