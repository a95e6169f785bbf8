// README: sweep: one-shot retention pass over the persisted orders.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dishbee/internal/config"
	"dishbee/internal/kv"
	"dishbee/internal/modules/order"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete orders older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			return sweep(cmd.Context(), cmd.OutOrStdout(), days, time.Now())
		},
	}
	cmd.Flags().Int("days", -1, "Days kept besides today (default RETENTION_DAYS)")
	return cmd
}

func sweep(ctx context.Context, out io.Writer, days int, now time.Time) error {
	pcfg, rcfg, loc, err := config.LoadPersistence()
	if err != nil {
		return err
	}
	if days < 0 {
		days = rcfg.Days
	}
	log := cliLogger()
	defer func() { _ = log.Sync() }()

	backend, err := kv.Open(ctx, pcfg.URL, pcfg.Password)
	if err != nil {
		return err
	}
	defer backend.Close()
	return sweepStore(ctx, out, order.NewStore(backend, pcfg.TTL, loc, log), days, now, log)
}

func sweepStore(ctx context.Context, out io.Writer, store *order.Store, days int, now time.Time, log *zap.Logger) error {
	n, err := store.Sweep(ctx, now, days)
	if err != nil {
		log.Error("sweep failed", zap.Int("removed", n), zap.Error(err))
		return err
	}
	log.Info("sweep done", zap.Int("removed", n), zap.Int("days", days))
	fmt.Fprintf(out, "removed %d orders\n", n)
	return nil
}
