package connector

import (
	"context"
	"errors"
	"time"
)

type ProviderType string

const (
	CalDAV ProviderType = "caldav"
	Google ProviderType = "google"
)

var ErrUnsupportedProvider = errors.New("unsupported calendar provider")
var ErrNotAuthorized = errors.New("calendar provider is not authorized")

type RemoteCalendar struct {
	Url         string
	Title       string
	Description string
	Color       string
}

type Attendee struct {
	Email string
	Name  string
}

type Event struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Credentials identify a remote calendar. For Google, Url holds the calendar id
// and the OAuth token is looked up by SubscriberId.
type Credentials struct {
	Provider     ProviderType
	SubscriberId int
	Url          string
	User         string
	Password     string
}

// Connector talks to one remote calendar account.
type Connector interface {
	ListCalendars(ctx context.Context) ([]RemoteCalendar, error)
	ListEvents(ctx context.Context, from time.Time, to time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, event Event, attendee *Attendee) (Event, error)
	// DeleteEvent removes an event created by CreateEvent, identified by its UID.
	DeleteEvent(ctx context.Context, uid string) error
}

// Factory builds a Connector for stored credentials.
type Factory interface {
	For(ctx context.Context, credentials Credentials) (Connector, error)
}
