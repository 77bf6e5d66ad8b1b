package main

import (
	"github.com/hibiken/asynq"

	borrowJob "circulation-backend/internal/domains/borrow/job"
	reservationJob "circulation-backend/internal/domains/reservation/job"
	"circulation-backend/internal/shared"
	"circulation-backend/pkg/container"
)

// HandlerRegistry holds the sweeper and reminder job handlers. Event tasks
// (fine ledger, notifications) are enqueued by the engine but consumed by
// the external collaborator services, not here.
type HandlerRegistry struct {
	sweepOverdue       *borrowJob.SweepOverdueHandler
	dueSoonReminder    *borrowJob.DueSoonReminderHandler
	expireReservations *reservationJob.ExpireReservationsHandler
}

// initializeHandlers creates the job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	jobCfg := c.Config.Job

	return &HandlerRegistry{
		sweepOverdue:       borrowJob.NewSweepOverdueHandler(c.BorrowService, jobCfg.SweepBatchLimit),
		dueSoonReminder:    borrowJob.NewDueSoonReminderHandler(c.BorrowService, jobCfg.ReminderWindowDays, jobCfg.SweepBatchLimit),
		expireReservations: reservationJob.NewExpireReservationsHandler(c.ReservationService, jobCfg.SweepBatchLimit),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeSweepOverdueLoans, h.sweepOverdue.ProcessTask)
	mux.HandleFunc(shared.TypeDueSoonReminders, h.dueSoonReminder.ProcessTask)
	mux.HandleFunc(shared.TypeSweepExpiredReservations, h.expireReservations.ProcessTask)
}
