package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"circulation-backend/internal/domains/reservation/model"
	"circulation-backend/internal/domains/reservation/service"
	"circulation-backend/internal/shared/utils"
	"circulation-backend/pkg/logger"
)

type ExpireReservationsHandler struct {
	reservationService service.ServiceInterface
	defaultLimit       int
}

func NewExpireReservationsHandler(reservationService service.ServiceInterface, defaultLimit int) *ExpireReservationsHandler {
	return &ExpireReservationsHandler{
		reservationService: reservationService,
		defaultLimit:       defaultLimit,
	}
}

// ProcessTask moves lapsed pending reservations to expired. Bounded per run
// and safe to repeat: already-expired reservations no longer match the
// sweep predicate.
func (h *ExpireReservationsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.SweepExpiredPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}

	count, err := h.reservationService.SweepExpired(ctx, time.Now(), limit)
	if err != nil {
		logger.Error("Reservation expiry sweep failed", err, map[string]interface{}{
			"limit": limit,
		})
		return fmt.Errorf("sweep expired reservations: %w", err)
	}

	logger.Info("Reservation expiry sweep completed", map[string]interface{}{
		"expired": count,
		"limit":   limit,
	})
	return nil
}
