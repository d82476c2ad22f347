package appointment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publicRouter(f bookingFixture) *mux.Router {
	handler := NewHandler(nil, f.booking)
	router := mux.NewRouter()
	router.HandleFunc("/api/apmt/public/{slug}", handler.GetPublicAppointment).Methods("GET")
	router.HandleFunc("/api/apmt/public/{slug}", handler.ClaimSlot).Methods("PUT")
	router.HandleFunc("/api/serve/ics/{slug}/{slotId}", handler.ServeICS).Methods("GET")
	return router
}

func claim(router http.Handler, slug string, slotId int, email string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"slotId":%d,"attendee":{"email":%q,"name":"Guest"}}`, slotId, email)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/apmt/public/"+slug, strings.NewReader(body)))
	return rec
}

func TestHandler_ClaimSlot(t *testing.T) {
	t.Run("should answer 200 then 409 for the same slot", func(t *testing.T) {
		f := setupBooking(t)
		router := publicRouter(f)
		slotId := f.appointment.Slots[0].Id

		first := claim(router, "intro-slug", slotId, "bob@example.org")
		second := claim(router, "intro-slug", slotId, "carol@example.org")

		require.Equal(t, http.StatusOK, first.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"slotId":%d,"attendee":{"email":"bob@example.org","name":"Guest"}}`, slotId), first.Body.String())
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("should answer 502 when the remote calendar fails", func(t *testing.T) {
		f := setupBooking(t)
		f.remote.FailCreate = true

		rec := claim(publicRouter(f), "intro-slug", f.appointment.Slots[0].Id, "bob@example.org")

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("should answer 404 for unknown slug and foreign slot", func(t *testing.T) {
		f := setupBooking(t)
		router := publicRouter(f)

		assert.Equal(t, http.StatusNotFound, claim(router, "nope", f.appointment.Slots[0].Id, "bob@example.org").Code)
		assert.Equal(t, http.StatusNotFound, claim(router, "intro-slug", 999, "bob@example.org").Code)
	})

	t.Run("should answer 400 for an invalid attendee", func(t *testing.T) {
		f := setupBooking(t)

		rec := claim(publicRouter(f), "intro-slug", f.appointment.Slots[0].Id, "bob")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_GetPublicAppointment(t *testing.T) {
	f := setupBooking(t)
	router := publicRouter(f)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/apmt/public/intro-slug", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var dto PublicAppointmentDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, "Alice", dto.OwnerName)
	assert.Len(t, dto.Slots, 2)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "dav.example.org")
}

func TestHandler_ServeICS(t *testing.T) {
	f := setupBooking(t)
	router := publicRouter(f)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest("GET", fmt.Sprintf("/api/serve/ics/intro-slug/%d", f.appointment.Slots[0].Id), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var dto FileDownloadDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, "text/calendar", dto.ContentType)
	assert.Contains(t, dto.Data, "BEGIN:VCALENDAR")
}

func TestHandler_GetAppointment(t *testing.T) {
	t.Run("should export bookings as csv when asked for text/csv", func(t *testing.T) {
		// given
		service, _, cal := setupService(t)
		created, err := service.CreateAppointment(ctxOf(alice), Appointment{
			CalendarId: cal.Id,
			Title:      "Intro",
			Slots:      []Slot{{Start: slotStart}},
		})
		require.NoError(t, err)
		router := mux.NewRouter()
		router.HandleFunc("/api/apmt/{id}", NewHandler(service, nil).GetAppointment).Methods("GET")
		req := httptest.NewRequest("GET", fmt.Sprintf("/api/apmt/%d", created.Id), nil).WithContext(ctxOf(alice))
		req.Header.Set("Accept", "text/csv")
		rec := httptest.NewRecorder()

		// when
		router.ServeHTTP(rec, req)

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "Slot,Start,End,Duration,Status,Attendee,Email\n"))
		assert.Contains(t, rec.Body.String(), ",open,,")
	})

	t.Run("should answer 403 to other subscribers", func(t *testing.T) {
		service, _, cal := setupService(t)
		created, err := service.CreateAppointment(ctxOf(alice), Appointment{CalendarId: cal.Id, Title: "Intro"})
		require.NoError(t, err)
		router := mux.NewRouter()
		router.HandleFunc("/api/apmt/{id}", NewHandler(service, nil).GetAppointment).Methods("GET")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, httptest.NewRequest("GET", fmt.Sprintf("/api/apmt/%d", created.Id), nil).WithContext(ctxOf(mallory)))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
