package main

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/glowdist/commission-manager/config"
	"github.com/glowdist/commission-manager/internal/entity"
	"github.com/glowdist/commission-manager/internal/rollup"
	"github.com/glowdist/commission-manager/internal/store"
	"github.com/glowdist/commission-manager/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const recomputeConcurrency = 4

var recomputeCmd = &cobra.Command{
	Use:   "recompute <year-month>",
	Short: "Recompute every KOL monthly summary for the given month",
	Args:  cobra.ExactArgs(1),
	RunE:  recompute,
}

// recompute re-derives the summary row of every KOL with ledger data in
// the month. Distinct KOLs touch distinct rows, so the fan-out is safe.
func recompute(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("cannot load a config %v", err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Setup(cfg.Logger)

	ym, err := entity.ParseYearMonth(args[0])
	if err != nil {
		return err
	}

	db, err := store.New(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("couldn't connect to mysql: %w", err)
	}
	defer db.Close()

	svc := rollup.New(db)

	kolIds, err := db.Ledger().ListActiveKols(ctx, ym)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)
	for _, kolId := range kolIds {
		kolId := kolId
		g.Go(func() error {
			return svc.RefreshSummary(ctx, kolId, ym)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("recompute failed: %w", err)
	}

	slog.Default().InfoContext(ctx, "recompute finished",
		slog.String("month", ym.String()),
		slog.Int("kols", len(kolIds)),
	)
	return nil
}
