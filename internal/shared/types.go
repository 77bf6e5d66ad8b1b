package shared

// Asynq task types. Namespaced by the domain that owns the handler.
const (
	// Sweeper jobs (scheduled)
	TypeSweepOverdueLoans        = "borrow:sweep_overdue"
	TypeSweepExpiredReservations = "reservation:sweep_expired"
	TypeDueSoonReminders         = "borrow:due_soon_reminders"

	// Events emitted by the engine, consumed by external collaborators
	TypeOverdueDetected                   = "fine:overdue_detected"
	TypeLoanApprovedNotification          = "notify:loan_approved"
	TypeDueSoonNotification               = "notify:due_soon"
	TypeReservationFulfilledNotification  = "notify:reservation_fulfilled"
	TypeReservationNextInLineNotification = "notify:reservation_next_in_line"
)

// Queue names. Priorities are assigned in the worker config: events carrying
// money-relevant facts (overdue) run above the routine sweeps, notifications
// run below.
const (
	QueueEvents       = "events"
	QueueCirculation  = "circulation"
	QueueNotification = "notification"
)
