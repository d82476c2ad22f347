package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const productId = "-//bookslot//Appointment Scheduling//EN"

type CalDAVConnector struct {
	client *caldav.Client
	// calendarPath is the path part of the calendar collection url.
	calendarPath string
}

func NewCalDAVConnector(httpClient *http.Client, credentials Credentials) (*CalDAVConnector, error) {
	var c webdav.HTTPClient = httpClient
	if credentials.User != "" {
		c = webdav.HTTPClientWithBasicAuth(httpClient, credentials.User, credentials.Password)
	}
	client, err := caldav.NewClient(c, credentials.Url)
	if err != nil {
		return nil, fmt.Errorf("unable to create CalDAV client: %w", err)
	}
	u, err := url.Parse(credentials.Url)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV url: %w", err)
	}
	return &CalDAVConnector{client: client, calendarPath: path.Clean("/" + u.Path)}, nil
}

func (c *CalDAVConnector) ListCalendars(ctx context.Context) ([]RemoteCalendar, error) {
	principal, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to find CalDAV principal: %w", err)
	}
	homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("unable to find CalDAV calendar home set: %w", err)
	}
	calendars, err := c.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("unable to list CalDAV calendars: %w", err)
	}

	remote := make([]RemoteCalendar, 0, len(calendars))
	for _, cal := range calendars {
		if len(cal.SupportedComponentSet) > 0 && !contains(cal.SupportedComponentSet, ical.CompEvent) {
			continue
		}
		remote = append(remote, RemoteCalendar{
			Url:         cal.Path,
			Title:       cal.Name,
			Description: cal.Description,
		})
	}
	log.Debugf("Found %d CalDAV calendars", len(remote))
	return remote, nil
}

func (c *CalDAVConnector) ListEvents(ctx context.Context, from time.Time, to time.Time) ([]Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}
	objects, err := c.client.QueryCalendar(ctx, strings.TrimSuffix(c.calendarPath, "/")+"/", query)
	if err != nil {
		return nil, fmt.Errorf("unable to query CalDAV calendar: %w", err)
	}

	events := make([]Event, 0, len(objects))
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			event, err := fromICalEvent(ev)
			if err != nil {
				log.Warnf("skipping unreadable event in %s: %v", obj.Path, err)
				continue
			}
			events = append(events, event)
		}
	}
	return events, nil
}

func (c *CalDAVConnector) CreateEvent(ctx context.Context, event Event, attendee *Attendee) (Event, error) {
	if event.UID == "" {
		event.UID = uuid.NewString()
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productId)
	cal.Props.SetText(ical.PropVersion, "2.0")
	ev := ToICalEvent(event, time.Now())
	if attendee != nil {
		AddAttendee(ev, *attendee)
	}
	cal.Children = append(cal.Children, ev.Component)

	objectPath := c.objectPath(event.UID)
	if _, err := c.client.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return Event{}, fmt.Errorf("unable to store event in CalDAV calendar: %w", err)
	}
	log.Debugf("Created CalDAV event %s", objectPath)
	return event, nil
}

func (c *CalDAVConnector) DeleteEvent(ctx context.Context, uid string) error {
	objectPath := c.objectPath(uid)
	if err := c.client.RemoveAll(ctx, objectPath); err != nil {
		return fmt.Errorf("unable to delete event from CalDAV calendar: %w", err)
	}
	log.Debugf("Deleted CalDAV event %s", objectPath)
	return nil
}

func (c *CalDAVConnector) objectPath(uid string) string {
	return path.Join(c.calendarPath, uid+".ics")
}

// ToICalEvent renders event as a VEVENT stamped with now.
func ToICalEvent(event Event, now time.Time) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, event.UID)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetText(ical.PropSummary, event.Title)
	if event.AllDay {
		ev.Props.SetDate(ical.PropDateTimeStart, event.Start)
		ev.Props.SetDate(ical.PropDateTimeEnd, event.End)
	} else {
		ev.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
	}
	if event.Description != "" {
		ev.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ev.Props.SetText(ical.PropLocation, event.Location)
	}
	return ev
}

// AddAttendee adds an ATTENDEE property carrying the attendee's name as CN.
func AddAttendee(ev *ical.Event, attendee Attendee) {
	prop := ical.NewProp(ical.PropAttendee)
	prop.Value = "mailto:" + attendee.Email
	if attendee.Name != "" {
		prop.Params.Set(ical.ParamCommonName, attendee.Name)
	}
	prop.Params.Set(ical.ParamParticipationStatus, "ACCEPTED")
	ev.Props.Add(prop)
}

func fromICalEvent(ev ical.Event) (Event, error) {
	start, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		return Event{}, err
	}
	end, err := ev.DateTimeEnd(time.UTC)
	if err != nil {
		return Event{}, err
	}
	event := Event{Start: start, End: end}
	event.UID, _ = ev.Props.Text(ical.PropUID)
	event.Title, _ = ev.Props.Text(ical.PropSummary)
	event.Description, _ = ev.Props.Text(ical.PropDescription)
	event.Location, _ = ev.Props.Text(ical.PropLocation)
	if prop := ev.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
		event.AllDay = true
	}
	return event, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
