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

type DueSoonReminderHandler struct {
	borrowService     service.ServiceInterface
	defaultWindowDays int
	defaultLimit      int
}

func NewDueSoonReminderHandler(borrowService service.ServiceInterface, defaultWindowDays, defaultLimit int) *DueSoonReminderHandler {
	return &DueSoonReminderHandler{
		borrowService:     borrowService,
		defaultWindowDays: defaultWindowDays,
		defaultLimit:      defaultLimit,
	}
}

// ProcessTask emits reminder events for active loans whose due date falls
// inside the reminder window.
func (h *DueSoonReminderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.DueSoonRemindersPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	windowDays := payload.WindowDays
	if windowDays <= 0 {
		windowDays = h.defaultWindowDays
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	count, err := h.borrowService.RemindDueSoon(ctx, time.Now(), window, limit)
	if err != nil {
		logger.Error("Due-soon reminder run failed", err, map[string]interface{}{
			"window_days": windowDays,
			"limit":       limit,
		})
		return fmt.Errorf("remind due soon: %w", err)
	}

	logger.Info("Due-soon reminder run completed", map[string]interface{}{
		"reminders_sent": count,
		"window_days":    windowDays,
	})
	return nil
}
