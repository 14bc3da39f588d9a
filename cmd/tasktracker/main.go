package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tasktracker/internal/bot"
	"tasktracker/internal/config"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	pointsRepo := repository.NewPointsRepository(db)

	taskSvc := service.NewTaskService(taskRepo, pointsRepo)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, taskSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	reminderSvc := service.NewReminderService(taskRepo, telegramBot, time.Now, log)
	telegramBot.SetReminderService(reminderSvc)

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval(cfg.RemindInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		reminderSvc.RunCycle(jobCtx)
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule reminders")
	}
	if cfg.DailySummaryTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.DailySummaryTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := telegramBot.SendDailySummaries(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("daily summaries")
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("schedule summaries")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Msg("task tracker bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
