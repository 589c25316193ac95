package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"dostyq-support/internal/bot"
	"dostyq-support/internal/config"
	"dostyq-support/internal/knowledge"
	"dostyq-support/internal/logger"
	"dostyq-support/internal/repository"
	"dostyq-support/internal/service"
)

const aggregateTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dostyqbot",
		Short:         "DostyqTV customer support Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
	root.AddCommand(newRunCmd(), newStatsCmd(), newAggregateCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start polling Telegram updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print user and ticket counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(false, func(cfg config.Config, log *logger.Logger, db *gorm.DB) error {
				stats := newStatsService(db)
				report, err := stats.Report(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
}

func newAggregateCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Write the daily stats row for a day (default today)",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				day = parsed
			}
			return withStore(false, func(cfg config.Config, log *logger.Logger, db *gorm.DB) error {
				stat, err := newStatsService(db).AggregateDay(cmd.Context(), day)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s users=%d messages=%d tickets=%d\n",
					stat.Date, stat.UsersCount, stat.MessagesCount, stat.TicketsCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to aggregate, YYYY-MM-DD")
	return cmd
}

func runBot(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withStore(true, func(cfg config.Config, log *logger.Logger, db *gorm.DB) error {
		kb, err := knowledge.Load(cfg.KnowledgePath)
		if err != nil {
			return fmt.Errorf("knowledge: %w", err)
		}

		fallback := service.NewFallbackResponder(kb)
		generator, err := service.NewGenerationService(cfg.Gemini, kb, fallback, nil, log.With("component", "generation"))
		if err != nil {
			return fmt.Errorf("generation: %w", err)
		}

		userRepo := repository.NewUserRepository(db)
		ticketRepo := repository.NewTicketRepository(db)
		stats := newStatsService(db)

		telegramBot, err := bot.New(cfg.BotToken, bot.Deps{
			Users:     userRepo,
			Tickets:   service.NewTicketService(ticketRepo),
			Stats:     stats,
			Generator: generator,
			Knowledge: kb,
			Log:       log.With("component", "bot"),
		}, &cfg)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		if err := telegramBot.RegisterCommands(); err != nil {
			log.Warn("register commands", "error", err)
		}

		if cfg.StatsAggregateAt != "" {
			scheduler := service.NewSchedulerService(time.Local, log.With("component", "scheduler"))
			if _, err := scheduler.ScheduleDaily("aggregate-stats", cfg.StatsAggregateAt, aggregateTimeout, stats.AggregateToday); err != nil {
				return fmt.Errorf("schedule stats aggregation: %w", err)
			}
			scheduler.Start()
			defer scheduler.Stop()
		}

		log.Info("DostyqTV support bot started")
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bot stopped with error: %w", err)
		}
		log.Info("shutdown complete")
		return nil
	})
}

// withStore loads config, builds the logger and opens the database for fn.
// With requireCredentials set, missing bot or generation credentials stop it
// before anything is opened.
func withStore(requireCredentials bool, fn func(cfg config.Config, log *logger.Logger, db *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	if requireCredentials {
		if err := cfg.Validate(); err != nil {
			log.Error("invalid configuration", "error", err)
			return fmt.Errorf("config: %w", err)
		}
	}

	db, err := repository.NewDB(cfg.DatabasePath, log.With("component", "db"))
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	return fn(cfg, log, db)
}

func newStatsService(db *gorm.DB) *service.StatsService {
	return service.NewStatsService(
		repository.NewUserRepository(db),
		repository.NewTicketRepository(db),
		repository.NewStatRepository(db),
		time.Now,
	)
}
