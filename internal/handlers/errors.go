package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/LonelyIsle/resort-api/internal/logger"
	"github.com/LonelyIsle/resort-api/internal/payments"
	"github.com/LonelyIsle/resort-api/internal/report"
	"github.com/LonelyIsle/resort-api/internal/respond"
	"github.com/LonelyIsle/resort-api/internal/rooms"
)

// writeError maps domain errors to status codes. Anything unrecognised is
// logged in full and reported to the caller as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, report.ErrQueryRejected):
		respond.Error(w, http.StatusBadRequest, report.ErrQueryRejected.Error())
	case errors.Is(err, report.ErrInvalidRequest),
		errors.Is(err, report.ErrUnknownReportType),
		errors.Is(err, rooms.ErrInvalidStatus),
		errors.Is(err, payments.ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rooms.ErrNotFound), errors.Is(err, payments.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payments.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		logger.WithContext(r.Context()).WithError(err).
			WithField("path", r.URL.Path).Error("request failed")
		respond.Internal(w)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	respond.Error(w, http.StatusBadRequest, strings.TrimSpace(msg))
}
