package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nisitlab/room-booking-backend/internal/auth"
	"github.com/nisitlab/room-booking-backend/internal/pkg/response"
	"github.com/nisitlab/room-booking-backend/internal/room"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

type Handler struct {
	service room.Service
}

func NewHandler(service room.Service) *Handler {
	return &Handler{service: service}
}

func actorRole(c *gin.Context) user.Role {
	r, _ := user.ParseRole(auth.GetUserRole(c))
	return r
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rm, err := h.service.Create(c.Request.Context(), actorRole(c), room.CreateRequest{
		ID:              body.ID,
		Type:            body.Type,
		Location:        body.Location,
		Capacity:        body.Capacity,
		Characteristics: body.Characteristics,
		Equipment:       body.Equipment.toModel(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewRoomResponse(rm, body.Equipment.toModel()))
}

func (h *Handler) Get(c *gin.Context) {
	rm, eq, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRoomResponse(rm, eq))
}

func (h *Handler) List(c *gin.Context) {
	rooms, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]RoomResponse, len(rooms))
	for i, rm := range rooms {
		items[i] = NewRoomResponse(rm, nil)
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) ListUnderRepair(c *gin.Context) {
	rooms, err := h.service.ListUnderRepair(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]RoomResponse, len(rooms))
	for i, rm := range rooms {
		items[i] = NewRoomResponse(rm, nil)
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c *gin.Context) {
	var body UpdateRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rm, err := h.service.Update(c.Request.Context(), actorRole(c), c.Param("id"), room.UpdateRequest{
		Type:            body.Type,
		Location:        body.Location,
		Capacity:        body.Capacity,
		Characteristics: body.Characteristics,
		Repair:          body.Repair,
		Equipment:       body.Equipment.toModel(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewRoomResponse(rm, body.Equipment.toModel()))
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorRole(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "room removed"})
}

func (h *Handler) Status(c *gin.Context) {
	snap, err := h.service.StatusNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewStatusResponse(snap))
}
