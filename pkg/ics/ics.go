package ics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bookslot/bookslot/pkg/connector"
	"github.com/emersion/go-ical"
)

const ContentType = "text/calendar"

type Appointment struct {
	Slug        string
	Title       string
	Details     string
	LocationUrl string
}

type Slot struct {
	Id       int
	Start    time.Time
	Duration time.Duration
	Attendee *connector.Attendee
}

type Organizer struct {
	Name  string
	Email string
}

// Format renders a single-event calendar file for the slot.
func Format(appointment Appointment, slot Slot, organizer Organizer) ([]byte, error) {
	return FormatAt(appointment, slot, organizer, time.Now())
}

func FormatAt(appointment Appointment, slot Slot, organizer Organizer, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//bookslot//Appointment Scheduling//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")

	ev := connector.ToICalEvent(connector.Event{
		UID:         fmt.Sprintf("%s-%d@bookslot", appointment.Slug, slot.Id),
		Title:       appointment.Title,
		Description: appointment.Details,
		Location:    appointment.LocationUrl,
		Start:       slot.Start,
		End:         slot.Start.Add(slot.Duration),
	}, now)

	if organizer.Email != "" {
		prop := ical.NewProp(ical.PropOrganizer)
		prop.Value = "mailto:" + organizer.Email
		if organizer.Name != "" {
			prop.Params.Set(ical.ParamCommonName, organizer.Name)
		}
		ev.Props.Set(prop)
	}
	if slot.Attendee != nil {
		connector.AddAttendee(ev, *slot.Attendee)
	}
	cal.Children = append(cal.Children, ev.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar file: %w", err)
	}
	return buf.Bytes(), nil
}
