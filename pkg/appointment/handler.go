package appointment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bookslot/bookslot/internal/rest"
	"github.com/bookslot/bookslot/pkg/calendar"
	"github.com/bookslot/bookslot/pkg/ics"
	"github.com/bookslot/bookslot/pkg/ownership"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type AttendeeDTO struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SlotDTO struct {
	Id            int          `json:"id"`
	Start         time.Time    `json:"start"`
	Duration      int          `json:"duration"`
	Attendee      *AttendeeDTO `json:"attendee,omitempty"`
	BookingStatus string       `json:"bookingStatus"`
}

type AppointmentDTO struct {
	Id          int       `json:"id"`
	CalendarId  int       `json:"calendarId"`
	Title       string    `json:"title"`
	Details     string    `json:"details"`
	Slug        string    `json:"slug"`
	Duration    int       `json:"duration"`
	LocationUrl string    `json:"locationUrl"`
	Slots       []SlotDTO `json:"slots"`
}

type PublicSlotDTO struct {
	Id        int       `json:"id"`
	Start     time.Time `json:"start"`
	Duration  int       `json:"duration"`
	Available bool      `json:"available"`
}

type PublicAppointmentDTO struct {
	Id          int             `json:"id"`
	Title       string          `json:"title"`
	Details     string          `json:"details"`
	Slug        string          `json:"slug"`
	LocationUrl string          `json:"locationUrl"`
	OwnerName   string          `json:"ownerName"`
	Slots       []PublicSlotDTO `json:"slots"`
}

type SlotAttendeeDTO struct {
	SlotId   int         `json:"slotId"`
	Attendee AttendeeDTO `json:"attendee"`
}

type FileDownloadDTO struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

type Handler struct {
	service *Service
	booking *BookingService
}

func NewHandler(service *Service, booking *BookingService) *Handler {
	return &Handler{service: service, booking: booking}
}

// ListAppointments godoc
// @Summary List the current subscriber's appointments
// @Tags Appointment
// @Produce json
// @Success 200 {array} AppointmentDTO
// @Router /api/me/appointments [get]
// @Security Bearer
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.service.ListAppointments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]AppointmentDTO, 0, len(appointments))
	for _, a := range appointments {
		dtos = append(dtos, toDTO(a))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// CreateAppointment godoc
// @Summary Create an appointment with slots on an owned calendar
// @Tags Appointment
// @Accept json
// @Produce json
// @Param appointment body AppointmentDTO true "Appointment"
// @Success 201 {object} AppointmentDTO
// @Failure 403 {object} rest.ErrorResponse "Calendar not owned"
// @Failure 404 {object} rest.ErrorResponse "Calendar not found"
// @Router /api/apmt [post]
// @Security Bearer
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var dto AppointmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	created, err := h.service.CreateAppointment(r.Context(), fromDTO(dto))
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(created))
}

// GetAppointment godoc
// @Summary Get an owned appointment, or its bookings as CSV when Accept is text/csv
// @Tags Appointment
// @Produce json
// @Produce text/csv
// @Param id path int true "Appointment ID"
// @Success 200 {object} AppointmentDTO
// @Failure 403 {object} rest.ErrorResponse "Not the owner"
// @Failure 404 {object} rest.ErrorResponse "Appointment not found"
// @Router /api/apmt/{id} [get]
// @Security Bearer
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	a, err := h.service.GetAppointment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.Header.Get("Accept") == csvContentType {
		out, err := RenderBookingsCSV(a)
		if err != nil {
			rest.WriteError(w, http.StatusInternalServerError, "Failed to render bookings", "")
			return
		}
		w.Header().Set("Content-Type", csvContentType+"; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(out)); err != nil {
			log.Errorf("failed to write bookings csv: %v", err)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(a))
}

// UpdateAppointment godoc
// @Summary Update an owned appointment and replace its open slots
// @Tags Appointment
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Param appointment body AppointmentDTO true "Appointment"
// @Success 200 {object} AppointmentDTO
// @Failure 403 {object} rest.ErrorResponse "Not the owner"
// @Failure 404 {object} rest.ErrorResponse "Appointment not found"
// @Router /api/apmt/{id} [put]
// @Security Bearer
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var dto AppointmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	updated, err := h.service.UpdateAppointment(r.Context(), id, fromDTO(dto))
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(updated))
}

// DeleteAppointment godoc
// @Summary Delete an owned appointment
// @Tags Appointment
// @Param id path int true "Appointment ID"
// @Success 204 "No Content"
// @Failure 403 {object} rest.ErrorResponse "Not the owner"
// @Failure 404 {object} rest.ErrorResponse "Appointment not found"
// @Router /api/apmt/{id} [delete]
// @Security Bearer
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteAppointment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPublicAppointment godoc
// @Summary Get an appointment by its public slug
// @Tags Public
// @Produce json
// @Param slug path string true "Appointment slug"
// @Success 200 {object} PublicAppointmentDTO
// @Failure 404 {object} rest.ErrorResponse "Appointment not found"
// @Router /api/apmt/public/{slug} [get]
func (h *Handler) GetPublicAppointment(w http.ResponseWriter, r *http.Request) {
	a, err := h.booking.GetPublicAppointment(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, err)
		return
	}
	slots := make([]PublicSlotDTO, 0, len(a.Slots))
	for _, s := range a.Slots {
		slots = append(slots, PublicSlotDTO{Id: s.Id, Start: s.Start, Duration: s.Duration, Available: s.Available})
	}
	rest.WriteJSON(w, http.StatusOK, PublicAppointmentDTO{
		Id:          a.Id,
		Title:       a.Title,
		Details:     a.Details,
		Slug:        a.Slug,
		LocationUrl: a.LocationUrl,
		OwnerName:   a.OwnerName,
		Slots:       slots,
	})
}

// ClaimSlot godoc
// @Summary Claim a slot of a public appointment
// @Tags Public
// @Accept json
// @Produce json
// @Param slug path string true "Appointment slug"
// @Param claim body SlotAttendeeDTO true "Slot and attendee"
// @Success 200 {object} SlotAttendeeDTO
// @Failure 404 {object} rest.ErrorResponse "Appointment or slot not found"
// @Failure 409 {object} rest.ErrorResponse "Slot no longer available"
// @Failure 502 {object} rest.ErrorResponse "Remote calendar failed"
// @Router /api/apmt/public/{slug} [put]
func (h *Handler) ClaimSlot(w http.ResponseWriter, r *http.Request) {
	var dto SlotAttendeeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	claimed, err := h.booking.ClaimSlot(r.Context(), mux.Vars(r)["slug"], dto.SlotId, Attendee{
		Email: dto.Attendee.Email,
		Name:  dto.Attendee.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SlotAttendeeDTO{
		SlotId:   claimed.SlotId,
		Attendee: AttendeeDTO{Email: claimed.Attendee.Email, Name: claimed.Attendee.Name},
	})
}

// ServeICS godoc
// @Summary Download the calendar file of a slot
// @Tags Public
// @Produce json
// @Param slug path string true "Appointment slug"
// @Param slotId path int true "Slot ID"
// @Success 200 {object} FileDownloadDTO
// @Failure 404 {object} rest.ErrorResponse "Appointment or slot not found"
// @Router /api/serve/ics/{slug}/{slotId} [get]
func (h *Handler) ServeICS(w http.ResponseWriter, r *http.Request) {
	slotId, ok := pathInt(w, r, "slotId")
	if !ok {
		return
	}
	slug := mux.Vars(r)["slug"]
	data, err := h.booking.SlotFile(r.Context(), slug, slotId)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, FileDownloadDTO{
		Name:        fmt.Sprintf("%s-%d.ics", slug, slotId),
		ContentType: ics.ContentType,
		Data:        string(data),
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ownership.ErrNotFound):
		rest.WriteError(w, http.StatusNotFound, "Appointment not found", "")
	case errors.Is(err, ErrCalendarNotFound), errors.Is(err, calendar.ErrCalendarNotFound):
		rest.WriteError(w, http.StatusNotFound, "Calendar not found", "")
	case errors.Is(err, ErrSlotNotFound):
		rest.WriteError(w, http.StatusNotFound, "Time slot not found for appointment", "")
	case errors.Is(err, ownership.ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Resource belongs to another subscriber", "")
	case errors.Is(err, ErrInvalidAppointment), errors.Is(err, ErrInvalidAttendee):
		rest.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, ErrSlotUnavailable):
		rest.WriteError(w, http.StatusConflict, "Time slot not available anymore", "")
	case errors.Is(err, ErrUpstreamFailure):
		log.Warnf("booking failed upstream: %v", err)
		rest.WriteError(w, http.StatusBadGateway, "Remote calendar could not create the event", "")
	default:
		log.Errorf("appointment request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Appointment request failed", "")
	}
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid "+name, "")
		return 0, false
	}
	return value, true
}

func toDTO(a Appointment) AppointmentDTO {
	slots := make([]SlotDTO, 0, len(a.Slots))
	for _, s := range a.Slots {
		dto := SlotDTO{Id: s.Id, Start: s.Start, Duration: s.Duration, BookingStatus: string(s.Status)}
		if s.Attendee != nil {
			dto.Attendee = &AttendeeDTO{Email: s.Attendee.Email, Name: s.Attendee.Name}
		}
		slots = append(slots, dto)
	}
	return AppointmentDTO{
		Id:          a.Id,
		CalendarId:  a.CalendarId,
		Title:       a.Title,
		Details:     a.Details,
		Slug:        a.Slug,
		Duration:    a.Duration,
		LocationUrl: a.LocationUrl,
		Slots:       slots,
	}
}

func fromDTO(dto AppointmentDTO) Appointment {
	slots := make([]Slot, 0, len(dto.Slots))
	for _, s := range dto.Slots {
		slots = append(slots, Slot{Start: s.Start, Duration: s.Duration})
	}
	return Appointment{
		CalendarId:  dto.CalendarId,
		Title:       dto.Title,
		Details:     dto.Details,
		Duration:    dto.Duration,
		LocationUrl: dto.LocationUrl,
		Slots:       slots,
	}
}
