package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookslot/bookslot/internal/rest"
	"github.com/bookslot/bookslot/pkg/calendar"
	"github.com/bookslot/bookslot/pkg/ownership"
	log "github.com/sirupsen/logrus"
)

type ScheduleDTO struct {
	Id         int    `json:"id"`
	CalendarId int    `json:"calendarId"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Active     bool   `json:"active"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListSchedules godoc
// @Summary List the current subscriber's schedules
// @Tags Schedule
// @Produce json
// @Success 200 {array} ScheduleDTO
// @Router /api/me/schedules [get]
// @Security Bearer
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.ListSchedules(r.Context())
	if err != nil {
		log.Errorf("failed to list schedules: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to list schedules", "")
		return
	}
	dtos := make([]ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		dtos = append(dtos, toDTO(s))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// CreateSchedule godoc
// @Summary Publish a calendar under a schedule slug
// @Tags Schedule
// @Accept json
// @Produce json
// @Param schedule body ScheduleDTO true "Schedule"
// @Success 201 {object} ScheduleDTO
// @Failure 403 {object} rest.ErrorResponse "Calendar not owned"
// @Failure 409 {object} rest.ErrorResponse "Slug taken"
// @Router /api/schedule [post]
// @Security Bearer
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var dto ScheduleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	created, err := h.service.CreateSchedule(r.Context(), Schedule{
		CalendarId: dto.CalendarId,
		Name:       dto.Name,
		Slug:       dto.Slug,
		Active:     true,
	})
	switch {
	case err == nil:
		rest.WriteJSON(w, http.StatusCreated, toDTO(created))
	case errors.Is(err, ownership.ErrNotFound), errors.Is(err, calendar.ErrCalendarNotFound):
		rest.WriteError(w, http.StatusNotFound, "Calendar not found", "")
	case errors.Is(err, ownership.ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Calendar belongs to another subscriber", "")
	case errors.Is(err, ErrInvalidSchedule):
		rest.WriteError(w, http.StatusBadRequest, "Invalid schedule", err.Error())
	case errors.Is(err, ErrSlugTaken):
		rest.WriteError(w, http.StatusConflict, "Schedule slug already in use", "")
	default:
		log.Errorf("failed to create schedule: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to create schedule", "")
	}
}

func toDTO(s Schedule) ScheduleDTO {
	return ScheduleDTO{Id: s.Id, CalendarId: s.CalendarId, Name: s.Name, Slug: s.Slug, Active: s.Active}
}
