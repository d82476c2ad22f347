package calendar

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(limits config.Limits) (*mux.Router, *Service) {
	service, _, _ := setupService(limits)
	handler := NewHandler(service)
	router := mux.NewRouter()
	router.HandleFunc("/api/cal", handler.CreateCalendar).Methods("POST")
	router.HandleFunc("/api/cal/{id}", handler.GetCalendar).Methods("GET")
	router.HandleFunc("/api/cal/{id}", handler.DeleteCalendar).Methods("DELETE")
	router.HandleFunc("/api/me/calendars", handler.ListCalendars).Methods("GET")
	return router, service
}

func request(router http.Handler, sub subscriber.Subscriber, method string, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req = req.WithContext(subscriber.WithSubscriber(req.Context(), sub))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateCalendar(t *testing.T) {
	t.Run("should create calendar and hide the password", func(t *testing.T) {
		// given
		router, _ := setupRouter(config.Limits{})
		body := CalendarDTO{Title: "Work", Url: "https://dav.example.org/work/", User: "alice", Password: "pw"}

		// when
		rec := request(router, alice, "POST", "/api/cal", body)

		// then
		require.Equal(t, http.StatusCreated, rec.Code)
		var got CalendarDTO
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "caldav", got.Provider)
		assert.Equal(t, "Work", got.Title)
		assert.Empty(t, got.Password)
	})

	t.Run("should answer 403 once the limit is reached", func(t *testing.T) {
		router, _ := setupRouter(config.Limits{CalendarConnections: 1})
		body := CalendarDTO{Title: "Work", Url: "https://dav.example.org/work/"}
		require.Equal(t, http.StatusCreated, request(router, alice, "POST", "/api/cal", body).Code)

		rec := request(router, alice, "POST", "/api/cal", body)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "limit")
	})

	t.Run("should answer 400 on invalid body", func(t *testing.T) {
		router, _ := setupRouter(config.Limits{})
		req := httptest.NewRequest("POST", "/api/cal", bytes.NewBufferString("{"))
		req = req.WithContext(subscriber.WithSubscriber(req.Context(), alice))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_GetCalendar(t *testing.T) {
	router, service := setupRouter(config.Limits{})
	_, err := service.CreateCalendar(as(alice), davCalendar("work"))
	require.NoError(t, err)

	t.Run("should return 200 for the owner", func(t *testing.T) {
		rec := request(router, alice, "GET", "/api/cal/1", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":1`)
	})

	t.Run("should return 403 for another subscriber", func(t *testing.T) {
		rec := request(router, bob, "GET", "/api/cal/1", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("should return 404 for unknown id", func(t *testing.T) {
		rec := request(router, alice, "GET", "/api/cal/77", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should return 400 for non numeric id", func(t *testing.T) {
		rec := request(router, alice, "GET", "/api/cal/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should delete with 204 and then list nothing", func(t *testing.T) {
		rec := request(router, alice, "DELETE", "/api/cal/1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = request(router, alice, "GET", "/api/me/calendars", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}
