package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bookslot/bookslot/internal/rest"
	"github.com/bookslot/bookslot/pkg/connector"
	"github.com/bookslot/bookslot/pkg/ownership"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type CalendarDTO struct {
	Id        int    `json:"id"`
	Provider  string `json:"provider"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Url       string `json:"url"`
	User      string `json:"user"`
	Password  string `json:"password,omitempty"`
	Connected bool   `json:"connected"`
}

type RemoteCalendarDTO struct {
	Url         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

type RemoteEventDTO struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`
	Description string    `json:"description,omitempty"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListCalendars godoc
// @Summary List the current subscriber's calendars
// @Tags Calendar
// @Produce json
// @Success 200 {array} CalendarDTO
// @Router /api/me/calendars [get]
// @Security Bearer
func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	log.Trace("Listing calendars")
	calendars, err := h.service.ListCalendars(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]CalendarDTO, 0, len(calendars))
	for _, cal := range calendars {
		dtos = append(dtos, toDTO(cal))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// CreateCalendar godoc
// @Summary Connect a new calendar
// @Tags Calendar
// @Accept json
// @Produce json
// @Param calendar body CalendarDTO true "Calendar"
// @Success 201 {object} CalendarDTO
// @Failure 403 {object} rest.ErrorResponse "Connection limit reached"
// @Router /api/cal [post]
// @Security Bearer
func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var dto CalendarDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	created, err := h.service.CreateCalendar(r.Context(), fromDTO(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(created))
}

// GetCalendar godoc
// @Summary Get an owned calendar
// @Tags Calendar
// @Produce json
// @Param id path int true "Calendar ID"
// @Success 200 {object} CalendarDTO
// @Failure 403 {object} rest.ErrorResponse "Not the owner"
// @Failure 404 {object} rest.ErrorResponse "Calendar not found"
// @Router /api/cal/{id} [get]
// @Security Bearer
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	cal, err := h.service.GetCalendar(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(cal))
}

// UpdateCalendar godoc
// @Summary Update an owned calendar
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path int true "Calendar ID"
// @Param calendar body CalendarDTO true "Calendar"
// @Success 200 {object} CalendarDTO
// @Failure 403 {object} rest.ErrorResponse "Not the owner"
// @Failure 404 {object} rest.ErrorResponse "Calendar not found"
// @Router /api/cal/{id} [put]
// @Security Bearer
func (h *Handler) UpdateCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	var dto CalendarDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	updated, err := h.service.UpdateCalendar(r.Context(), id, fromDTO(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(updated))
}

// DeleteCalendar godoc
// @Summary Disconnect an owned calendar
// @Tags Calendar
// @Param id path int true "Calendar ID"
// @Success 204 "No Content"
// @Failure 403 {object} rest.ErrorResponse "Not the owner"
// @Failure 404 {object} rest.ErrorResponse "Calendar not found"
// @Router /api/cal/{id} [delete]
// @Security Bearer
func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCalendar(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiscoverRemoteCalendars godoc
// @Summary List calendars available with the given connection details
// @Tags Calendar
// @Accept json
// @Produce json
// @Param calendar body CalendarDTO true "Connection"
// @Success 200 {array} RemoteCalendarDTO
// @Failure 502 {object} rest.ErrorResponse "Remote calendar unavailable"
// @Router /api/rmt/calendars [post]
// @Security Bearer
func (h *Handler) DiscoverRemoteCalendars(w http.ResponseWriter, r *http.Request) {
	var dto CalendarDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	remote, err := h.service.DiscoverRemoteCalendars(r.Context(), fromDTO(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]RemoteCalendarDTO, 0, len(remote))
	for _, c := range remote {
		dtos = append(dtos, RemoteCalendarDTO{Url: c.Url, Title: c.Title, Description: c.Description, Color: c.Color})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// ListRemoteEvents godoc
// @Summary List remote events of an owned calendar
// @Tags Calendar
// @Produce json
// @Param id path int true "Calendar ID"
// @Param start path string true "Start date (YYYY-MM-DD or RFC3339)"
// @Param end path string true "End date (YYYY-MM-DD or RFC3339)"
// @Success 200 {array} RemoteEventDTO
// @Router /api/rmt/cal/{id}/{start}/{end} [get]
// @Security Bearer
func (h *Handler) ListRemoteEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	from, err := parseDate(vars["start"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid start date", err.Error())
		return
	}
	to, err := parseDate(vars["end"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid end date", err.Error())
		return
	}
	events, err := h.service.ListRemoteEvents(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]RemoteEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, RemoteEventDTO{Title: e.Title, Start: e.Start, End: e.End, AllDay: e.AllDay, Description: e.Description})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ownership.ErrNotFound), errors.Is(err, ErrCalendarNotFound):
		rest.WriteError(w, http.StatusNotFound, "Calendar not found", "")
	case errors.Is(err, ownership.ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Calendar belongs to another subscriber", "")
	case errors.Is(err, ErrQuotaExceeded):
		rest.WriteError(w, http.StatusForbidden, "Calendar connection limit reached", "")
	case errors.Is(err, ErrInvalidCalendar):
		rest.WriteError(w, http.StatusBadRequest, "Invalid calendar", err.Error())
	case errors.Is(err, connector.ErrNotAuthorized):
		rest.WriteError(w, http.StatusBadRequest, "Calendar provider is not authorized", "")
	case errors.Is(err, connector.ErrUnsupportedProvider):
		rest.WriteError(w, http.StatusBadRequest, "Unsupported calendar provider", "")
	case errors.Is(err, ErrRemoteUnavailable):
		log.Warnf("remote calendar request failed: %v", err)
		rest.WriteError(w, http.StatusBadGateway, "Remote calendar unavailable", "")
	default:
		log.Errorf("calendar request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Calendar request failed", "")
	}
}

func pathId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid calendar id", "")
		return 0, false
	}
	return id, true
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func toDTO(cal Calendar) CalendarDTO {
	return CalendarDTO{
		Id:        cal.Id,
		Provider:  string(cal.Provider),
		Title:     cal.Title,
		Color:     cal.Color,
		Url:       cal.Url,
		User:      cal.User,
		Connected: cal.Connected,
	}
}

func fromDTO(dto CalendarDTO) Calendar {
	provider := connector.ProviderType(dto.Provider)
	if provider == "" {
		provider = connector.CalDAV
	}
	return Calendar{
		Id:        dto.Id,
		Provider:  provider,
		Title:     dto.Title,
		Color:     dto.Color,
		Url:       dto.Url,
		User:      dto.User,
		Password:  dto.Password,
		Connected: dto.Connected,
	}
}
