package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware ...gin.HandlerFunc) {
	group := g.Group("/rooms")

	group.GET("", h.List)
	group.GET("/repair", h.ListUnderRepair)
	group.GET("/:id", h.Get)
	group.GET("/:id/status", h.Status)

	group.Use(authMiddleware...)
	{
		group.POST("", h.Create)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}
