package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lendledger/domain/entities"
	"lendledger/domain/interfaces"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

const maxHistoryLimit = 200

type handlers struct {
	positions interfaces.PositionService
	timeout   time.Duration
	now       func() time.Time
}

func (h *handlers) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, h.timeout)
}

// today reads the optional YYYYMMDD window end, defaulting to the current UTC day
func (h *handlers) today(r *http.Request) (entities.Day, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("today"))
	if raw == "" {
		return entities.DayFromTime(h.now()), nil
	}
	return entities.ParseDay(raw)
}

func (h *handlers) getPosition(w http.ResponseWriter, r *http.Request) {
	today, err := h.today(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	var symbols []string
	for _, s := range strings.Split(r.URL.Query().Get("tokens"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	ctx, cancel := h.context(r.Context())
	defer cancel()

	report, err := h.positions.GetPosition(ctx, chi.URLParam(r, "address"), symbols, today)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPosition(report))
}

func (h *handlers) getLedger(w http.ResponseWriter, r *http.Request) {
	today, err := h.today(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	side := entities.Side(strings.ToLower(chi.URLParam(r, "side")))
	if !side.Valid() {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("unknown side %q: expected debt or supply", side))
		return
	}

	ctx, cancel := h.context(r.Context())
	defer cancel()

	report, err := h.positions.GetTokenLedger(ctx, chi.URLParam(r, "address"), chi.URLParam(r, "token"), today)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	address := strings.ToLower(chi.URLParam(r, "address"))
	status := http.StatusOK
	if report.Failed() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, newLedger(address, today, report, side))
}

func (h *handlers) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			writeJSONError(w, http.StatusBadRequest, fmt.Errorf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	ctx, cancel := h.context(r.Context())
	defer cancel()

	runs, err := h.positions.GetHistory(ctx, chi.URLParam(r, "address"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRun(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrInvalidAddress):
		writeJSONError(w, http.StatusBadRequest, err)
	case errors.Is(err, entities.ErrUnknownToken):
		writeJSONError(w, http.StatusNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, err)
	default:
		log.WithError(err).Error("Request failed")
		writeJSONError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
