package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware ...gin.HandlerFunc) {
	group := g.Group("/bookings")

	group.Use(authMiddleware...)
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/me", h.ListMine)
		group.GET("/me/history", h.ListHistory)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Edit)
		group.PATCH("/:id/status", h.UpdateStatus)
		group.POST("/:id/cancel", h.Cancel)
	}
}
