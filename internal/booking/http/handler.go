package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nisitlab/room-booking-backend/internal/auth"
	"github.com/nisitlab/room-booking-backend/internal/booking"
	"github.com/nisitlab/room-booking-backend/internal/pkg/response"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func actor(c *gin.Context) (string, user.Role) {
	role, _ := user.ParseRole(auth.GetUserRole(c))
	return auth.GetUserID(c), role
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	date, start, end, err := parseSlot(body.Date, body.Start, body.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, actorRole := actor(c)
	b, err := h.service.Create(c.Request.Context(), actorID, actorRole, booking.CreateRequest{
		RoomID:  body.RoomID,
		Purpose: body.Purpose,
		Date:    date,
		Start:   start,
		End:     end,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	b, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	actorID, actorRole := actor(c)
	b, err := h.service.UpdateStatus(c.Request.Context(), actorID, actorRole, c.Param("id"), booking.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	actorID, _ := actor(c)
	if err := h.service.Cancel(c.Request.Context(), actorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}

func (h *Handler) Edit(c *gin.Context) {
	var body EditBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	date, start, end, err := parseSlot(body.Date, body.Start, body.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, actorRole := actor(c)
	b, err := h.service.Edit(c.Request.Context(), actorID, actorRole, c.Param("id"), booking.EditRequest{
		Purpose: body.Purpose,
		Date:    date,
		Start:   start,
		End:     end,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	var q ListBookingsRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	_, actorRole := actor(c)
	bookings, total, err := h.service.ListByStatus(c.Request.Context(), actorRole, booking.Status(q.Status), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, q.Page, q.PageSize, total))
}

func (h *Handler) ListMine(c *gin.Context) {
	actorID, _ := actor(c)

	bookings, err := h.service.ListMine(c.Request.Context(), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) ListHistory(c *gin.Context) {
	actorID, _ := actor(c)

	entries, err := h.service.ListHistory(c.Request.Context(), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]HistoryEntryResponse, len(entries))
	for i := range entries {
		items[i] = NewHistoryEntryResponse(entries[i])
	}
	c.JSON(http.StatusOK, items)
}
