package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"circulation-backend/internal/domains/reservation/model"
)

// ServiceInterface owns the reservation lifecycle: a claim on a title that
// is either fulfilled into a loan, cancelled, or left to expire.
type ServiceInterface interface {
	RequestReservation(ctx context.Context, req model.RequestReservationRequest) (*model.ReservationResponse, error)
	Fulfill(ctx context.Context, reservationID uuid.UUID, req model.FulfillRequest) (*model.ReservationResponse, error)
	Cancel(ctx context.Context, reservationID uuid.UUID, req model.CancelRequest) (*model.ReservationResponse, error)

	GetReservation(ctx context.Context, reservationID uuid.UUID) (*model.ReservationResponse, error)
	ListReservations(ctx context.Context, req model.ListReservationsRequest) (*model.ListReservationsResponse, error)
	QueuePosition(ctx context.Context, reservationID uuid.UUID) (*model.QueuePositionResponse, error)

	// SweepExpired moves lapsed pending reservations to expired and frees
	// any copies held for them. Safe to repeat.
	SweepExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// NotificationEmitter is the outbound boundary for reservation events.
type NotificationEmitter interface {
	ReservationFulfilled(ctx context.Context, payload model.ReservationFulfilledPayload) error
	NextInLine(ctx context.Context, payload model.NextInLinePayload) error
}
