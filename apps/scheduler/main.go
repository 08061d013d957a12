package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/scailup/creditcore/internal/client"
	"github.com/scailup/creditcore/internal/clock"
	"github.com/scailup/creditcore/internal/config"
	"github.com/scailup/creditcore/internal/credit"
	"github.com/scailup/creditcore/internal/migration"
	"github.com/scailup/creditcore/internal/observability"
	"github.com/scailup/creditcore/internal/sweep"
	"github.com/scailup/creditcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domain services required by the sweep
		client.Module,
		credit.Module,
		sweep.Module,

		// No server module
		fx.Invoke(StartSweepCron),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func StartSweepCron(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, clk clock.Clock, sweeper *sweep.Sweeper) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.SweepCronSpec, func() {
		report, err := sweeper.RunDailySweep(context.Background(), clk.Now())
		if err != nil {
			log.Error("daily sweep failed", zap.Error(err))
			return
		}
		if !report.Succeeded() {
			log.Error("daily sweep finished without renewing any client",
				zap.Int("eligible", report.Eligible),
				zap.Int("failed", report.Failed),
			)
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-scheduler.Stop().Done()
			return nil
		},
	})
	return nil
}
