package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"circulation-backend/internal/domains/copyreg/model"
	"circulation-backend/internal/domains/copyreg/service"
	"circulation-backend/internal/shared/response"
	"circulation-backend/pkg/database"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new copy registry handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterCopy handles POST /api/v1/copies
func (h *Handler) RegisterCopy(c *gin.Context) {
	var req model.RegisterCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.RegisterCopy(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to register copy")
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// GetCopy handles GET /api/v1/copies/:id
func (h *Handler) GetCopy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid copy ID format")
		return
	}

	res, err := h.service.GetCopy(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Failed to get copy")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ListCopies handles GET /api/v1/copies
func (h *Handler) ListCopies(c *gin.Context) {
	var req model.ListCopiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	res, err := h.service.ListCopies(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to list copies")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, res.Items, &response.Meta{
		Page:  res.Page,
		Limit: res.Limit,
		Total: res.TotalItems,
	})
}

// UpdateCondition handles PATCH /api/v1/copies/:id/condition
func (h *Handler) UpdateCondition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid copy ID format")
		return
	}

	var req model.UpdateConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.service.UpdateCondition(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err, "Failed to update copy condition")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ArchiveCopy handles POST /api/v1/copies/:id/archive
func (h *Handler) ArchiveCopy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid copy ID format")
		return
	}

	if err := h.service.ArchiveCopy(c.Request.Context(), id); err != nil {
		writeError(c, err, "Failed to archive copy")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"archived": true})
}

// writeError maps copy registry errors onto the response envelope.
func writeError(c *gin.Context, err error, fallback string) {
	var vErr validation.Errors
	switch {
	case errors.As(err, &vErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", vErr)
	case model.IsNotFoundError(err), errors.Is(err, model.ErrBookNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, model.ErrInvalidStatusTransition):
		response.UnprocessableEntity(c, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, model.ErrCopyBorrowed), errors.Is(err, model.ErrCopyArchived), model.IsConflictError(err):
		response.Conflict(c, err.Error())
	case database.IsStorageUnavailable(err):
		response.ServiceUnavailable(c, err.Error())
	default:
		response.InternalServerError(c, fallback)
	}
}
