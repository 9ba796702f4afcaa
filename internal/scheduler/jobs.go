package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/modules/backtest"
	"github.com/aristath/fundscore/internal/services"
)

// ScoringCycleJob runs the nightly scoring cycle for the current date.
type ScoringCycleJob struct {
	cycles *services.CycleService
	log    zerolog.Logger
}

// NewScoringCycleJob creates the nightly scoring job.
func NewScoringCycleJob(cycles *services.CycleService, log zerolog.Logger) *ScoringCycleJob {
	return &ScoringCycleJob{
		cycles: cycles,
		log:    log.With().Str("job", "scoring_cycle").Logger(),
	}
}

func (j *ScoringCycleJob) Name() string { return "scoring_cycle" }

func (j *ScoringCycleJob) Run(ctx context.Context) error {
	scoreDate := midnightUTC(time.Now())
	result, err := j.cycles.RunScoringCycle(ctx, scoreDate)
	if err != nil {
		return err
	}
	j.log.Info().
		Int("scored", result.FundsScored).
		Int("skipped", result.FundsSkipped).
		Msg("Nightly scoring cycle finished")
	return nil
}

// BacktestSweepJob runs a weekly validation sweep scored one year in the
// past, so the longest forward horizon is fully measurable.
type BacktestSweepJob struct {
	engine *backtest.Engine
	log    zerolog.Logger
}

// NewBacktestSweepJob creates the weekly backtest job.
func NewBacktestSweepJob(engine *backtest.Engine, log zerolog.Logger) *BacktestSweepJob {
	return &BacktestSweepJob{
		engine: engine,
		log:    log.With().Str("job", "backtest_sweep").Logger(),
	}
}

func (j *BacktestSweepJob) Name() string { return "backtest_sweep" }

func (j *BacktestSweepJob) Run(ctx context.Context) error {
	cfg := backtest.RunConfig{
		ScoringDate: midnightUTC(time.Now()).AddDate(-1, 0, 0),
	}
	summary, err := j.engine.Run(ctx, cfg)
	if err != nil {
		return err
	}
	j.log.Info().
		Str("run_id", summary.RunID).
		Int("scored", summary.Scored).
		Msg("Weekly backtest sweep finished")
	return nil
}

// BackupRunner is the slice of the backup service the scheduler needs.
type BackupRunner interface {
	RunBackup(ctx context.Context) error
}

// BackupJob pushes the scores database to remote storage.
type BackupJob struct {
	backups BackupRunner
	log     zerolog.Logger
}

// NewBackupJob creates the daily backup job.
func NewBackupJob(backups BackupRunner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

func (j *BackupJob) Name() string { return "backup" }

func (j *BackupJob) Run(ctx context.Context) error {
	return j.backups.RunBackup(ctx)
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
