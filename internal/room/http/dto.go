package http

import (
	"time"

	"github.com/nisitlab/room-booking-backend/internal/room"
)

type EquipmentPayload struct {
	Projector      int    `json:"projector" binding:"min=0"`
	Microphone     int    `json:"microphone" binding:"min=0"`
	Computer       int    `json:"computer" binding:"min=0"`
	Whiteboard     int    `json:"whiteboard" binding:"min=0"`
	TypeOfComputer string `json:"type_of_computer"`
}

func (p *EquipmentPayload) toModel() *room.Equipment {
	if p == nil {
		return nil
	}
	return &room.Equipment{
		Projector:      p.Projector,
		Microphone:     p.Microphone,
		Computer:       p.Computer,
		Whiteboard:     p.Whiteboard,
		TypeOfComputer: p.TypeOfComputer,
	}
}

type CreateRoomRequest struct {
	ID              string            `json:"room_id" binding:"required"`
	Type            string            `json:"room_type" binding:"required"`
	Location        string            `json:"location" binding:"required"`
	Capacity        int               `json:"capacity" binding:"required,min=1"`
	Characteristics string            `json:"room_characteristics"`
	Equipment       *EquipmentPayload `json:"equipment"`
}

type UpdateRoomRequest struct {
	Type            string            `json:"room_type" binding:"required"`
	Location        string            `json:"location" binding:"required"`
	Capacity        int               `json:"capacity" binding:"required,min=1"`
	Characteristics string            `json:"room_characteristics"`
	Repair          bool              `json:"repair"`
	Equipment       *EquipmentPayload `json:"equipment"`
}

type RoomResponse struct {
	ID              string            `json:"room_id"`
	Type            string            `json:"room_type"`
	Location        string            `json:"location"`
	Capacity        int               `json:"capacity"`
	Characteristics string            `json:"room_characteristics,omitempty"`
	Repair          bool              `json:"repair"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	Equipment       *EquipmentPayload `json:"equipment,omitempty"`
}

func NewRoomResponse(r *room.Room, eq *room.Equipment) RoomResponse {
	resp := RoomResponse{
		ID:              r.ID,
		Type:            r.Type,
		Location:        r.Location,
		Capacity:        r.Capacity,
		Characteristics: r.Characteristics,
		Repair:          r.Repair,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt,
	}
	if eq != nil {
		resp.Equipment = &EquipmentPayload{
			Projector:      eq.Projector,
			Microphone:     eq.Microphone,
			Computer:       eq.Computer,
			Whiteboard:     eq.Whiteboard,
			TypeOfComputer: eq.TypeOfComputer,
		}
	}
	return resp
}

type SlotResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

type StatusResponse struct {
	RoomID          string         `json:"room_id"`
	Date            string         `json:"date"`
	Status          string         `json:"status"`
	CurrentActivity string         `json:"current_activity,omitempty"`
	Slots           []SlotResponse `json:"slots"`
}

func NewStatusResponse(s *room.Snapshot) StatusResponse {
	resp := StatusResponse{
		RoomID:          s.Room.ID,
		Date:            s.Date.Format("2006-01-02"),
		Status:          s.Status,
		CurrentActivity: s.CurrentActivity,
		Slots:           make([]SlotResponse, len(s.Slots)),
	}
	for i, slot := range s.Slots {
		resp.Slots[i] = SlotResponse{
			ID:    slot.ID,
			Title: slot.Title,
			Kind:  slot.Kind,
			Start: slot.Start.String(),
			End:   slot.End.String(),
		}
	}
	return resp
}
