package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"circulation-backend/internal/domains/borrow/model"
	"circulation-backend/internal/domains/borrow/service"
	"circulation-backend/internal/shared/utils"
	"circulation-backend/pkg/logger"
)

type SweepOverdueHandler struct {
	borrowService service.ServiceInterface
	defaultLimit  int
}

func NewSweepOverdueHandler(borrowService service.ServiceInterface, defaultLimit int) *SweepOverdueHandler {
	return &SweepOverdueHandler{
		borrowService: borrowService,
		defaultLimit:  defaultLimit,
	}
}

// ProcessTask reclassifies loans past their due date as overdue. Each run is
// bounded by the payload limit and safe to repeat: already-overdue records no
// longer match the sweep predicate.
func (h *SweepOverdueHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.SweepOverduePayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}

	count, err := h.borrowService.SweepOverdue(ctx, time.Now(), limit)
	if err != nil {
		logger.Error("Overdue sweep failed", err, map[string]interface{}{
			"limit": limit,
		})
		return fmt.Errorf("sweep overdue: %w", err)
	}

	logger.Info("Overdue sweep completed", map[string]interface{}{
		"marked_overdue": count,
		"limit":          limit,
	})
	return nil
}
