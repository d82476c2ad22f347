package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postSchedule(h *Handler, sub subscriber.Subscriber, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/schedule", strings.NewReader(body))
	req = req.WithContext(subscriber.WithSubscriber(context.Background(), sub))
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, req)
	return rec
}

func TestHandler_CreateSchedule(t *testing.T) {
	t.Run("should answer 201 then 409 for the same name", func(t *testing.T) {
		// given
		service, _, cal := setup(t)
		h := NewHandler(service)
		body := fmt.Sprintf(`{"calendarId":%d,"name":"Office Hours"}`, cal.Id)

		// when
		first := postSchedule(h, alice, body)
		second := postSchedule(h, alice, body)

		// then
		require.Equal(t, http.StatusCreated, first.Code)
		var dto ScheduleDTO
		require.NoError(t, json.NewDecoder(first.Body).Decode(&dto))
		assert.Equal(t, "office-hours", dto.Slug)
		assert.True(t, dto.Active)
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("should answer 403 for a calendar of someone else", func(t *testing.T) {
		service, _, cal := setup(t)

		rec := postSchedule(NewHandler(service), bob, fmt.Sprintf(`{"calendarId":%d,"name":"Mine"}`, cal.Id))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("should answer 400 for a broken body", func(t *testing.T) {
		service, _, _ := setup(t)

		rec := postSchedule(NewHandler(service), alice, "{")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ListSchedules(t *testing.T) {
	service, _, cal := setup(t)
	h := NewHandler(service)
	require.Equal(t, http.StatusCreated, postSchedule(h, alice, fmt.Sprintf(`{"calendarId":%d,"name":"Office Hours"}`, cal.Id)).Code)
	req := httptest.NewRequest("GET", "/api/me/schedules", nil).WithContext(subscriber.WithSubscriber(context.Background(), alice))
	rec := httptest.NewRecorder()

	h.ListSchedules(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var dtos []ScheduleDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "office-hours", dtos[0].Slug)
}
