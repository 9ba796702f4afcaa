// Package main is the entry point for the fund scoring engine. The server
// computes composite fund scores, ranks peer groups, validates historical
// scores against realized returns, and serves everything over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/fundscore/internal/config"
	"github.com/aristath/fundscore/internal/database"
	"github.com/aristath/fundscore/internal/events"
	"github.com/aristath/fundscore/internal/modules/backtest"
	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/internal/modules/ranking"
	"github.com/aristath/fundscore/internal/modules/registry"
	"github.com/aristath/fundscore/internal/modules/scoring"
	"github.com/aristath/fundscore/internal/reliability"
	"github.com/aristath/fundscore/internal/scheduler"
	"github.com/aristath/fundscore/internal/server"
	"github.com/aristath/fundscore/internal/services"
	"github.com/aristath/fundscore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting fund scoring engine")

	// funds.db belongs to the ingestion collaborator; opened read-only.
	navRepo, err := navdata.Open(cfg.FundsDBPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open funds database")
	}
	defer navRepo.Close()

	registryRepo := registry.NewRepository(navRepo.Conn(), log)

	scoresDB, err := database.New(database.Config{
		Path:    cfg.ScoresDBPath,
		Profile: database.ProfileScores,
		Name:    "scores",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open scores database")
	}
	defer scoresDB.Close()

	if err := scoresDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate scores database")
	}

	eventManager := events.NewManager(log)
	scorer := scoring.NewCompositeScorer(log)
	scoreRepo := scoring.NewScoreRepository(scoresDB.Conn(), log)
	rankingRepo := ranking.NewRepository(scoresDB.Conn(), log)
	backtestRepo := backtest.NewRepository(scoresDB.Conn(), log)

	cycleService := services.NewCycleService(
		registryRepo,
		navRepo,
		scorer,
		scoreRepo,
		rankingRepo,
		scoresDB.Conn(),
		eventManager,
		cfg.ScoringConcurrency,
		cfg.ScoringChunkSize,
		log,
	)

	backtestEngine := backtest.NewEngine(
		registryRepo,
		navRepo,
		scorer,
		backtestRepo,
		eventManager,
		log,
	)

	var backupService *reliability.BackupService
	if cfg.BackupsEnabled() {
		r2Client, err := reliability.NewR2Client(
			cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Bucket, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize R2 client, backups disabled")
		} else {
			backupService = reliability.NewBackupService(
				scoresDB.Conn(), r2Client, cfg.DataDir, cfg.BackupRetention, log)
			log.Info().Msg("R2 backups enabled")
		}
	} else {
		log.Debug().Msg("R2 credentials not configured, backups disabled")
	}

	// Background jobs run until shutdown cancels this context.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	sched := scheduler.New(jobCtx, log)
	if err := sched.AddJob(cfg.ScoringSchedule, scheduler.NewScoringCycleJob(cycleService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register scoring job")
	}
	if err := sched.AddJob(cfg.BacktestSchedule, scheduler.NewBacktestSweepJob(backtestEngine, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register backtest job")
	}
	if backupService != nil {
		if err := sched.AddJob(cfg.BackupSchedule, scheduler.NewBackupJob(backupService, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:            log,
		Cfg:            cfg,
		ScoresDB:       scoresDB,
		NavRepo:        navRepo,
		Registry:       registryRepo,
		ScoreRepo:      scoreRepo,
		RankingRepo:    rankingRepo,
		BacktestRepo:   backtestRepo,
		BacktestEngine: backtestEngine,
		CycleService:   cycleService,
		BackupService:  backupService,
		EventManager:   eventManager,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	cancelJobs()
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := scoresDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}

	log.Info().Msg("Server stopped")
}
