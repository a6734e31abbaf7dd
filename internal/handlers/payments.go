package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/LonelyIsle/resort-api/internal/payments"
	"github.com/LonelyIsle/resort-api/internal/respond"
)

// PaymentService is satisfied by *payments.Service.
type PaymentService interface {
	UpdateStatus(ctx context.Context, id int64, status string) (*payments.Payment, error)
}

type Payments struct {
	svc PaymentService
}

func NewPayments(svc PaymentService) *Payments { return &Payments{svc: svc} }

// UpdateStatus handles POST /payments/{id}/status.
func (h *Payments) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body statusReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		badRequest(w, "invalid body (need status)")
		return
	}
	p, err := h.svc.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.OK(w, p, "payment status updated")
}
