package ics

import (
	"bytes"
	"testing"
	"time"

	"github.com/bookslot/bookslot/pkg/connector"
	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	// given
	start := time.Date(2026, 4, 1, 14, 30, 0, 0, time.UTC)
	appointment := Appointment{Slug: "abc123", Title: "Intro call", Details: "Bring questions", LocationUrl: "https://meet.example.org/x"}
	slot := Slot{Id: 7, Start: start, Duration: 45 * time.Minute, Attendee: &connector.Attendee{Email: "bob@example.org", Name: "Bob"}}
	organizer := Organizer{Name: "Alice", Email: "alice@example.org"}

	// when
	data, err := FormatAt(appointment, slot, organizer, start.Add(-24*time.Hour))

	// then
	require.NoError(t, err)
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	ev := events[0]

	uid, _ := ev.Props.Text(ical.PropUID)
	assert.Equal(t, "abc123-7@bookslot", uid)
	summary, _ := ev.Props.Text(ical.PropSummary)
	assert.Equal(t, "Intro call", summary)
	gotStart, err := ev.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(gotStart))
	gotEnd, err := ev.DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Add(45*time.Minute).Equal(gotEnd))

	require.NotNil(t, ev.Props.Get(ical.PropOrganizer))
	assert.Equal(t, "mailto:alice@example.org", ev.Props.Get(ical.PropOrganizer).Value)
	require.NotNil(t, ev.Props.Get(ical.PropAttendee))
	assert.Equal(t, "Bob", ev.Props.Get(ical.PropAttendee).Params.Get(ical.ParamCommonName))
}

func TestFormat_WithoutAttendee(t *testing.T) {
	data, err := Format(Appointment{Slug: "s", Title: "Open"}, Slot{Id: 1, Start: time.Now(), Duration: time.Hour}, Organizer{})

	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VEVENT")
	assert.NotContains(t, string(data), "ATTENDEE")
	assert.NotContains(t, string(data), "ORGANIZER")
}
