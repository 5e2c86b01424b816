package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nisitlab/room-booking-backend/internal/auth"
	"github.com/nisitlab/room-booking-backend/internal/pkg/response"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
	"github.com/nisitlab/room-booking-backend/internal/schedule"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

type Handler struct {
	service schedule.Service
}

func NewHandler(service schedule.Service) *Handler {
	return &Handler{service: service}
}

func actor(c *gin.Context) (string, user.Role) {
	role, _ := user.ParseRole(auth.GetUserRole(c))
	return auth.GetUserID(c), role
}

// Preview accepts the timetable workbook as multipart field "file" and returns
// the reconciliation report without writing any schedule rows.
func (h *Handler) Preview(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open uploaded file"})
		return
	}
	defer f.Close()

	_, actorRole := actor(c)
	report, err := h.service.Preview(c.Request.Context(), actorRole, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPreviewResponse(report))
}

func (h *Handler) Confirm(c *gin.Context) {
	var body ConfirmRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	occs := make([]schedule.Occurrence, len(body.Occurrences))
	for i, p := range body.Occurrences {
		occ, err := p.toModel()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		occs[i] = occ
	}

	_, actorRole := actor(c)
	inserted, err := h.service.Confirm(c.Request.Context(), actorRole, occs)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]OccurrencePayload, len(inserted))
	for i := range inserted {
		items[i] = NewOccurrencePayload(&inserted[i])
	}
	c.JSON(http.StatusCreated, gin.H{"inserted": len(items), "occurrences": items})
}

func (h *Handler) Get(c *gin.Context) {
	occ, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOccurrencePayload(occ))
}

func (h *Handler) List(c *gin.Context) {
	var q ListSchedulesRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	from, err := timeslot.ParseDate(q.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := timeslot.ParseDate(q.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var occs []*schedule.Occurrence
	switch {
	case q.RoomID != "":
		occs, err = h.service.ListForRoom(c.Request.Context(), q.RoomID, from, to)
	case q.TeacherID != "":
		occs, err = h.service.ListForTeacher(c.Request.Context(), q.TeacherID, from, to)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id or teacher_id is required"})
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]OccurrencePayload, len(occs))
	for i, o := range occs {
		items[i] = NewOccurrencePayload(o)
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) SetClosed(c *gin.Context) {
	var body SetClosedRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	actorID, actorRole := actor(c)
	occ, err := h.service.SetClosed(c.Request.Context(), actorID, actorRole, c.Param("id"), *body.Closed)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOccurrencePayload(occ))
}
