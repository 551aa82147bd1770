package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/hijack-notifier/internal/repo"
	"github.com/tbourn/hijack-notifier/internal/services"
)

// NewPurgeCmd creates the purge command, a one-shot run of the retention
// sweep.
func NewPurgeCmd(app *App) *cobra.Command {
	var horizon time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete tracking entries older than the retention horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.bootstrap()
			if err != nil {
				return err
			}
			if horizon > 0 {
				cfg.Retention.Horizon = horizon
			}

			db, err := repo.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			sw, err := services.NewSweeper(db, cfg.Retention)
			if err != nil {
				return err
			}
			n, err := sw.Purge(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries older than %s\n", n, cfg.Retention.Horizon)
			return nil
		},
	}
	cmd.Flags().DurationVar(&horizon, "older-than", 0, "Override RETENTION for this run")
	return cmd
}
