package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	borrowModel "circulation-backend/internal/domains/borrow/model"
	reservationModel "circulation-backend/internal/domains/reservation/model"
	"circulation-backend/internal/shared"
)

// EventClient publishes engine events as asynq tasks. It implements both
// domain emitter interfaces so the services see only their own boundary.
type EventClient struct {
	client *asynq.Client
}

func NewEventClient(redisAddress string) *EventClient {
	return &EventClient{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddress}),
	}
}

// LoanApproved enqueues the notification task for a freshly approved loan.
func (c *EventClient) LoanApproved(ctx context.Context, payload borrowModel.LoanApprovedPayload) error {
	return c.enqueue(ctx, shared.TypeLoanApprovedNotification, payload, shared.QueueNotification)
}

// OverdueDetected enqueues the fine-ledger event. The engine states the fact;
// the consumer owns amounts and escalation.
func (c *EventClient) OverdueDetected(ctx context.Context, payload borrowModel.OverdueDetectedPayload) error {
	return c.enqueue(ctx, shared.TypeOverdueDetected, payload, shared.QueueEvents)
}

// DueSoonReminder enqueues a due-date reminder notification.
func (c *EventClient) DueSoonReminder(ctx context.Context, payload borrowModel.LoanApprovedPayload) error {
	return c.enqueue(ctx, shared.TypeDueSoonNotification, payload, shared.QueueNotification)
}

// ReservationFulfilled enqueues the notification for a fulfilled reservation.
func (c *EventClient) ReservationFulfilled(ctx context.Context, payload reservationModel.ReservationFulfilledPayload) error {
	return c.enqueue(ctx, shared.TypeReservationFulfilledNotification, payload, shared.QueueNotification)
}

// NextInLine enqueues the held-copy offer for the reader at the queue head.
func (c *EventClient) NextInLine(ctx context.Context, payload reservationModel.NextInLinePayload) error {
	return c.enqueue(ctx, shared.TypeReservationNextInLineNotification, payload, shared.QueueNotification)
}

func (c *EventClient) enqueue(ctx context.Context, taskType string, payload interface{}, queueName string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", taskType, err)
	}

	task := asynq.NewTask(taskType, data)
	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(queueName), asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	return nil
}

func (c *EventClient) Close() error {
	return c.client.Close()
}
