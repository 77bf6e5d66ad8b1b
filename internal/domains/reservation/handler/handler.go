package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"circulation-backend/internal/domains/allocation"
	copyModel "circulation-backend/internal/domains/copyreg/model"
	"circulation-backend/internal/domains/reservation/model"
	"circulation-backend/internal/domains/reservation/service"
	"circulation-backend/internal/shared/response"
	"circulation-backend/pkg/database"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new reservation handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{
		service: service,
	}
}

// RequestReservation handles POST /api/v1/reservations
func (h *Handler) RequestReservation(c *gin.Context) {
	var req model.RequestReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.RequestReservation(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to create reservation")
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// Fulfill handles POST /api/v1/reservations/:id/fulfill
func (h *Handler) Fulfill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation ID format")
		return
	}

	var req model.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.Fulfill(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err, "Failed to fulfill reservation")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Cancel handles POST /api/v1/reservations/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation ID format")
		return
	}

	var req model.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err, "Failed to cancel reservation")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetReservation handles GET /api/v1/reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation ID format")
		return
	}

	res, err := h.service.GetReservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Failed to get reservation")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ListReservations handles GET /api/v1/reservations
func (h *Handler) ListReservations(c *gin.Context) {
	var req model.ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	res, err := h.service.ListReservations(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to list reservations")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, res.Items, &response.Meta{
		Page:  res.Page,
		Limit: res.Limit,
		Total: res.TotalItems,
	})
}

// QueuePosition handles GET /api/v1/reservations/:id/position
func (h *Handler) QueuePosition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation ID format")
		return
	}

	res, err := h.service.QueuePosition(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Failed to get queue position")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// writeError maps the reservation error taxonomy onto HTTP codes.
func writeError(c *gin.Context, err error, fallback string) {
	var vErr validation.Errors
	switch {
	case errors.As(err, &vErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", vErr)
	case model.IsNotFoundError(err), copyModel.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case errors.Is(err, model.ErrNoDemand):
		response.UnprocessableEntity(c, "NO_DEMAND", err.Error())
	case errors.Is(err, model.ErrDuplicateReservation):
		response.Conflict(c, err.Error())
	case errors.Is(err, model.ErrReservationExpired):
		response.UnprocessableEntity(c, "RESERVATION_EXPIRED", err.Error())
	case errors.Is(err, model.ErrNotNextInLine):
		response.UnprocessableEntity(c, "NOT_NEXT_IN_LINE", err.Error())
	case allocation.IsAlreadyAllocated(err):
		response.ErrorResponse(c, http.StatusConflict, "ALREADY_ALLOCATED", err.Error())
	case errors.Is(err, copyModel.ErrCopyUnavailable), errors.Is(err, copyModel.ErrCopyArchived):
		response.UnprocessableEntity(c, "COPY_UNAVAILABLE", err.Error())
	case model.IsInvalidTransitionError(err):
		response.UnprocessableEntity(c, "INVALID_TRANSITION", err.Error())
	case database.IsStorageUnavailable(err):
		response.ServiceUnavailable(c, err.Error())
	default:
		response.InternalServerError(c, fallback)
	}
}
