package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskward/internal/app"
	"taskward/internal/bot"
	"taskward/internal/service"
)

const (
	sweepJobTimeout   = 5 * time.Minute
	summaryJobTimeout = 2 * time.Minute
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot with the periodic sweep and daily summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Config.RequireBot(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			telegramBot, err := bot.New(a.Config.TelegramToken, bot.Services{
				Users:   a.Users,
				Tasks:   a.Tasks,
				Events:  a.Events,
				Rewards: a.Rewards,
				Ledger:  a.Ledger,
				Summary: a.Summary,
			}, a.Clock, a.Location, a.Log)
			if err != nil {
				return err
			}

			scheduler := service.NewSchedulerService(a.Location, a.Log)
			if _, err := scheduler.ScheduleInterval(a.Config.SweepInterval, func() {
				runSweep(ctx, a)
			}); err != nil {
				return err
			}
			if _, err := scheduler.ScheduleDaily(a.Config.SummaryTime, func() {
				jobCtx, cancel := context.WithTimeout(ctx, summaryJobTimeout)
				defer cancel()
				if err := telegramBot.SendDailySummaries(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
					a.Log.Error().Err(err).Msg("daily summaries")
				}
			}); err != nil {
				return err
			}

			// Expire whatever went overdue while the process was down.
			runSweep(ctx, a)

			scheduler.Start()
			defer scheduler.Stop()

			a.Log.Info().Dur("sweep_interval", a.Config.SweepInterval).Str("summary_time", a.Config.SummaryTime).Msg("taskward started")
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.Log.Info().Msg("shutdown complete")
			return nil
		},
	}
}

func runSweep(ctx context.Context, a *app.App) {
	jobCtx, cancel := context.WithTimeout(ctx, sweepJobTimeout)
	defer cancel()
	if _, err := a.Sweeper.Sweep(jobCtx, a.Clock.Now()); err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Error().Err(err).Msg("sweep")
	}
}
