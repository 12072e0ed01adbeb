package index

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/pkg/handlers"
	"github.com/JaimeStill/horarium/pkg/routes"
)

// Handler serves published events.
type Handler struct {
	sys      System
	location *time.Location
	logger   *slog.Logger
}

func NewHandler(sys System, location *time.Location, logger *slog.Logger) *Handler {
	return &Handler{
		sys:      sys,
		location: location,
		logger:   logger.With("handler", "index"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/websites",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}/events", Handler: h.Events},
			{Method: "GET", Pattern: "/{id}/calendar.ics", Handler: h.Calendar},
		},
	}
}

// Events returns published events, optionally bounded by from and to
// (YYYY-MM-DD, to exclusive).
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrWebsiteNotFound)
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	events, err := h.sys.ListEvents(r.Context(), id, from, to)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, events)
}

// Calendar returns the published events of a website as text/calendar.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrWebsiteNotFound)
		return
	}

	name, err := h.sys.WebsiteName(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	events, err := h.sys.ListEvents(r.Context(), id, from, to)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	churches, err := h.sys.ChurchNames(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	body := Calendar(name, events, churches, h.location, time.Now().UTC())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+".ics"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func parseRange(r *http.Request) (*time.Time, *time.Time, error) {
	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("%w: from must be before to", ErrInvalidRange)
	}
	return from, to, nil
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return &t, nil
}
