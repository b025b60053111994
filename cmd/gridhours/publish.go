package main

import (
	"fmt"

	"github.com/jgoulah/gridhours/internal/publisher"
	"github.com/jgoulah/gridhours/pkg/models"
	"github.com/spf13/cobra"
)

var (
	publishRunID   string
	publishPending bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored hourly summaries over MQTT",
	Long:  `Reads a stored run from the database and publishes its hourly rows and summary to the configured MQTT broker. Without flags the latest run is published.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishRunID, "run", "", "run ID to publish (default: latest run)")
	publishCmd.Flags().BoolVar(&publishPending, "pending", false, "publish every run not yet published")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	// Determine which runs to publish
	var runs []*models.Run
	switch {
	case publishPending:
		pending, err := db.ListUnpublishedRuns(ctx)
		if err != nil {
			return fmt.Errorf("listing unpublished runs: %w", err)
		}
		for _, r := range pending {
			run, err := db.GetRun(ctx, r.ID)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
	case publishRunID != "":
		run, err := db.GetRun(ctx, publishRunID)
		if err != nil {
			return err
		}
		runs = append(runs, run)
	default:
		run, err := db.LatestRun(ctx)
		if err != nil {
			return err
		}
		runs = append(runs, run)
	}

	out := newConsole(cmd)
	if len(runs) == 0 {
		out.Warning("No unpublished runs found")
		return nil
	}

	pub, err := publisher.New(cfg.MQTT, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	published := 0
	for i, run := range runs {
		if err := pub.PublishRun(ctx, run); err != nil {
			out.Warning("[%d/%d] Publishing run %s failed: %v", i+1, len(runs), run.ID, err)
			continue
		}

		// Mark run as published in database
		if err := db.MarkPublished(ctx, run.ID); err != nil {
			out.Warning("[%d/%d] Published run %s (failed to mark as published: %v)", i+1, len(runs), run.ID, err)
		} else {
			out.Success("[%d/%d] Published run %s (%d hours)", i+1, len(runs), run.ID, len(run.Hours))
		}
		published++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nTotal runs published: %d/%d\n", published, len(runs))
	return nil
}
