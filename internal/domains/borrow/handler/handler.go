package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"circulation-backend/internal/domains/allocation"
	"circulation-backend/internal/domains/borrow/model"
	"circulation-backend/internal/domains/borrow/service"
	copyModel "circulation-backend/internal/domains/copyreg/model"
	"circulation-backend/internal/shared/response"
	"circulation-backend/pkg/database"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new circulation handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{
		service: service,
	}
}

// RequestBorrow handles POST /api/v1/borrows
func (h *Handler) RequestBorrow(c *gin.Context) {
	var req model.RequestBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.RequestBorrow(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to create borrow request")
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// Approve handles POST /api/v1/borrows/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid borrow record ID format")
		return
	}

	res, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Failed to approve borrow request")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Reject handles POST /api/v1/borrows/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid borrow record ID format")
		return
	}

	var req model.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.Reject(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err, "Failed to reject borrow request")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ReturnCopy handles POST /api/v1/borrows/:id/return
func (h *Handler) ReturnCopy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid borrow record ID format")
		return
	}

	var req model.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.ReturnCopy(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err, "Failed to return copy")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Renew handles POST /api/v1/borrows/:id/renew
func (h *Handler) Renew(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid borrow record ID format")
		return
	}

	var req model.RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.Renew(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err, "Failed to renew loan")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetBorrow handles GET /api/v1/borrows/:id
func (h *Handler) GetBorrow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid borrow record ID format")
		return
	}

	res, err := h.service.GetBorrow(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Failed to get borrow record")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ListBorrows handles GET /api/v1/borrows
func (h *Handler) ListBorrows(c *gin.Context) {
	var req model.ListBorrowsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	res, err := h.service.ListBorrows(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to list borrow records")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, res.Items, &response.Meta{
		Page:  res.Page,
		Limit: res.Limit,
		Total: res.TotalItems,
	})
}

// DeletePending handles DELETE /api/v1/borrows/:id
func (h *Handler) DeletePending(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid borrow record ID format")
		return
	}

	if err := h.service.DeletePending(c.Request.Context(), id); err != nil {
		writeError(c, err, "Failed to delete borrow request")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// writeError maps the circulation error taxonomy onto HTTP codes. Every
// rejected transition names its kind so the caller can render an actionable
// message.
func writeError(c *gin.Context, err error, fallback string) {
	var vErr validation.Errors
	switch {
	case errors.As(err, &vErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", vErr)
	case model.IsNotFoundError(err), copyModel.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case errors.Is(err, copyModel.ErrCopyUnavailable), errors.Is(err, copyModel.ErrCopyArchived):
		response.UnprocessableEntity(c, "COPY_UNAVAILABLE", err.Error())
	case allocation.IsAlreadyAllocated(err):
		response.ErrorResponse(c, http.StatusConflict, "ALREADY_ALLOCATED", err.Error())
	case errors.Is(err, model.ErrBorrowLimitExceeded):
		response.UnprocessableEntity(c, "BORROW_LIMIT_EXCEEDED", err.Error())
	case errors.Is(err, model.ErrRenewalLimitReached):
		response.UnprocessableEntity(c, "RENEWAL_LIMIT_REACHED", err.Error())
	case model.IsInvalidTransitionError(err):
		response.UnprocessableEntity(c, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, model.ErrRecordNotDeletable):
		response.Conflict(c, err.Error())
	case database.IsStorageUnavailable(err):
		response.ServiceUnavailable(c, err.Error())
	default:
		response.InternalServerError(c, fallback)
	}
}
