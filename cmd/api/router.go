package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"circulation-backend/internal/shared/middleware"
	"circulation-backend/internal/shared/response"
	"circulation-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupCopyRoutes(v1, c)
		setupBorrowRoutes(v1, c)
		setupReservationRoutes(v1, c)
	}

	return router
}

func setupCopyRoutes(v1 *gin.RouterGroup, c *container.Container) {
	copies := v1.Group("/copies")
	{
		copies.POST("", c.CopyHandler.RegisterCopy)
		copies.GET("", c.CopyHandler.ListCopies)
		copies.GET("/:id", c.CopyHandler.GetCopy)
		copies.PATCH("/:id/condition", c.CopyHandler.UpdateCondition)
		copies.POST("/:id/archive", c.CopyHandler.ArchiveCopy)
	}
}

func setupBorrowRoutes(v1 *gin.RouterGroup, c *container.Container) {
	borrows := v1.Group("/borrows")
	{
		borrows.POST("", c.BorrowHandler.RequestBorrow)
		borrows.GET("", c.BorrowHandler.ListBorrows)
		borrows.GET("/:id", c.BorrowHandler.GetBorrow)
		borrows.POST("/:id/approve", c.BorrowHandler.Approve)
		borrows.POST("/:id/reject", c.BorrowHandler.Reject)
		borrows.POST("/:id/return", c.BorrowHandler.ReturnCopy)
		borrows.POST("/:id/renew", c.BorrowHandler.Renew)
		borrows.DELETE("/:id", c.BorrowHandler.DeletePending)
	}
}

func setupReservationRoutes(v1 *gin.RouterGroup, c *container.Container) {
	reservations := v1.Group("/reservations")
	{
		reservations.POST("", c.ReservationHandler.RequestReservation)
		reservations.GET("", c.ReservationHandler.ListReservations)
		reservations.GET("/:id", c.ReservationHandler.GetReservation)
		reservations.GET("/:id/position", c.ReservationHandler.QueuePosition)
		reservations.POST("/:id/fulfill", c.ReservationHandler.Fulfill)
		reservations.POST("/:id/cancel", c.ReservationHandler.Cancel)
	}
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := c.HealthCheck(ctx.Request.Context()); err != nil {
			response.ServiceUnavailable(ctx, err.Error())
			return
		}

		response.Success(ctx, http.StatusOK, gin.H{
			"status":      "healthy",
			"version":     c.Config.App.Version,
			"environment": c.Config.App.Environment,
			"time":        time.Now().UTC().Format(time.RFC3339),
		})
	}
}
