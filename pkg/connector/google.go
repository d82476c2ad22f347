package connector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleClientSource returns an OAuth authorized client for the subscriber,
// or nil when the subscriber has not connected a Google account.
type GoogleClientSource interface {
	Client(ctx context.Context, subscriberId int) (*http.Client, error)
}

type GoogleConnector struct {
	service    *gcal.Service
	calendarId string
}

func NewGoogleConnector(ctx context.Context, clients GoogleClientSource, credentials Credentials) (*GoogleConnector, error) {
	client, err := clients.Client(ctx, credentials.SubscriberId)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google auth client: %w", err)
	}
	if client == nil {
		log.Debugf("subscriber %d has no Google authorization", credentials.SubscriberId)
		return nil, ErrNotAuthorized
	}
	service, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Calendar client: %w", err)
	}
	calendarId := credentials.Url
	if calendarId == "" {
		calendarId = "primary"
	}
	return &GoogleConnector{service: service, calendarId: calendarId}, nil
}

func (g *GoogleConnector) ListCalendars(ctx context.Context) ([]RemoteCalendar, error) {
	list, err := g.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendars from Google Calendar: %w", err)
	}
	calendars := make([]RemoteCalendar, 0, len(list.Items))
	for _, item := range list.Items {
		if item.AccessRole != "owner" && item.AccessRole != "writer" {
			continue
		}
		calendars = append(calendars, RemoteCalendar{
			Url:         item.Id,
			Title:       item.Summary,
			Description: item.Description,
			Color:       item.BackgroundColor,
		})
	}
	return calendars, nil
}

func (g *GoogleConnector) ListEvents(ctx context.Context, from time.Time, to time.Time) ([]Event, error) {
	googleEvents, err := g.service.Events.List(g.calendarId).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from Google Calendar: %w", err)
	}

	events := make([]Event, 0, len(googleEvents.Items))
	for _, item := range googleEvents.Items {
		event := Event{
			UID:         item.Id,
			Title:       item.Summary,
			Description: item.Description,
			Location:    item.Location,
		}
		if item.Start == nil || item.End == nil {
			continue
		}
		if item.Start.Date != "" {
			event.AllDay = true
			event.Start, _ = time.Parse(time.DateOnly, item.Start.Date)
			event.End, _ = time.Parse(time.DateOnly, item.End.Date)
		} else {
			event.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
			event.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
		}
		events = append(events, event)
	}
	return events, nil
}

func (g *GoogleConnector) CreateEvent(ctx context.Context, event Event, attendee *Attendee) (Event, error) {
	log.Debugf("Adding event %q to Google calendar %s", event.Title, g.calendarId)
	var attendees []*gcal.EventAttendee
	if attendee != nil {
		attendees = append(attendees, &gcal.EventAttendee{Email: attendee.Email, DisplayName: attendee.Name})
	}
	result, err := g.service.Events.Insert(g.calendarId, &gcal.Event{
		Attendees:   attendees,
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
		},
	}).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("unable to insert event in Google Calendar: %w", err)
	}
	event.UID = result.Id
	return event, nil
}

func (g *GoogleConnector) DeleteEvent(ctx context.Context, uid string) error {
	if err := g.service.Events.Delete(g.calendarId, uid).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete event from Google Calendar: %w", err)
	}
	return nil
}
