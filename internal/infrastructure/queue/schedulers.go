package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"circulation-backend/internal/config"
	borrowModel "circulation-backend/internal/domains/borrow/model"
	reservationModel "circulation-backend/internal/domains/reservation/model"
	"circulation-backend/internal/shared"
	"circulation-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisAddress string, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

// RegisterSweeperJobs wires the cron entries for the expiry sweeper and the
// reminder run. The sweeps are conditional updates underneath, so an overlap
// with a manual return or cancel resolves in the manual operation's favor.
func (s *Scheduler) RegisterSweeperJobs() error {
	if err := s.registerSweepOverdueJob(); err != nil {
		return err
	}

	if err := s.registerSweepExpiredReservationsJob(); err != nil {
		return err
	}

	if err := s.registerDueSoonRemindersJob(); err != nil {
		return err
	}

	return nil
}

// Overdue sweep, every 15 minutes. Frequent enough that the overdue status
// lags the due date by minutes, cheap because the predicate only matches
// records that crossed the line since the last run.
func (s *Scheduler) registerSweepOverdueJob() error {
	payload, err := json.Marshal(borrowModel.SweepOverduePayload{
		Limit: s.jobConfig.SweepBatchLimit,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeSweepOverdueLoans, payload)

	_, err = s.scheduler.Register(
		"*/15 * * * *",
		task,
		asynq.Queue(shared.QueueCirculation),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register SweepOverdueLoans job", err)
		return err
	}

	logger.Info("Registered SweepOverdueLoans: every 15 minutes", map[string]interface{}{})
	return nil
}

// Reservation expiry sweep, every 15 minutes, offset from the overdue sweep
// so the two batches do not contend for the pool at the same instant.
func (s *Scheduler) registerSweepExpiredReservationsJob() error {
	payload, err := json.Marshal(reservationModel.SweepExpiredPayload{
		Limit: s.jobConfig.SweepBatchLimit,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeSweepExpiredReservations, payload)

	_, err = s.scheduler.Register(
		"7-59/15 * * * *",
		task,
		asynq.Queue(shared.QueueCirculation),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register SweepExpiredReservations job", err)
		return err
	}

	logger.Info("Registered SweepExpiredReservations: every 15 minutes", map[string]interface{}{})
	return nil
}

// Due-soon reminders, daily at 7 AM, when readers are likely to see them.
func (s *Scheduler) registerDueSoonRemindersJob() error {
	payload, err := json.Marshal(borrowModel.DueSoonRemindersPayload{
		WindowDays: s.jobConfig.ReminderWindowDays,
		Limit:      s.jobConfig.SweepBatchLimit,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeDueSoonReminders, payload)

	_, err = s.scheduler.Register(
		"0 7 * * *",
		task,
		asynq.Queue(shared.QueueCirculation),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register DueSoonReminders job", err)
		return err
	}

	logger.Info("Registered DueSoonReminders: daily at 7 AM", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
