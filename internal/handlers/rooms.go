package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LonelyIsle/resort-api/internal/respond"
	"github.com/LonelyIsle/resort-api/internal/rooms"
)

// RoomService is satisfied by *rooms.Service.
type RoomService interface {
	List(ctx context.Context) ([]rooms.Room, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*rooms.Room, error)
}

type Rooms struct {
	svc RoomService
}

func NewRooms(svc RoomService) *Rooms { return &Rooms{svc: svc} }

func (h *Rooms) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.OK(w, out, "")
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /rooms/{id}/status.
func (h *Rooms) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body statusReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		badRequest(w, "invalid body (need status)")
		return
	}
	room, err := h.svc.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.OK(w, room, "room status updated")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}
