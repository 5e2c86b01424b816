package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware ...gin.HandlerFunc) {
	group := g.Group("/schedules")

	group.GET("", h.List)
	group.GET("/:id", h.Get)

	group.Use(authMiddleware...)
	{
		group.POST("/import", h.Preview)
		group.POST("/confirm", h.Confirm)
		group.PATCH("/:id/closed", h.SetClosed)
	}
}
