package connector

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_For(t *testing.T) {
	ctx := context.Background()

	t.Run("should build a CalDAV connector", func(t *testing.T) {
		provider := NewProvider(nil)

		conn, err := provider.For(ctx, Credentials{Provider: CalDAV, Url: "https://dav.example.org/cal/"})

		require.NoError(t, err)
		assert.IsType(t, &CalDAVConnector{}, conn)
	})

	t.Run("should require a url for CalDAV", func(t *testing.T) {
		_, err := NewProvider(nil).For(ctx, Credentials{Provider: CalDAV})

		assert.Error(t, err)
	})

	t.Run("should refuse Google without authorization source", func(t *testing.T) {
		_, err := NewProvider(nil).For(ctx, Credentials{Provider: Google})

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("should refuse Google when subscriber did not connect", func(t *testing.T) {
		_, err := NewProvider(noGoogleClient{}).For(ctx, Credentials{Provider: Google, SubscriberId: 3})

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		_, err := NewProvider(nil).For(ctx, Credentials{Provider: "exchange"})

		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})
}

type noGoogleClient struct{}

func (noGoogleClient) Client(ctx context.Context, subscriberId int) (*http.Client, error) {
	return nil, nil
}

func TestToICalEvent(t *testing.T) {
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	event := Event{UID: "abc", Title: "Intro call", Description: "Bring notes", Start: start, End: start.Add(30 * time.Minute)}

	ev := ToICalEvent(event, start)
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productId)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, ev.Component)
	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))

	decoded, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := decoded.Events()
	require.Len(t, events, 1)
	roundTrip, err := fromICalEvent(events[0])
	require.NoError(t, err)
	assert.Equal(t, event, roundTrip)
}

func TestAddAttendee(t *testing.T) {
	ev := ical.NewEvent()

	AddAttendee(ev, Attendee{Email: "bob@example.org", Name: "Bob"})

	prop := ev.Props.Get(ical.PropAttendee)
	require.NotNil(t, prop)
	assert.Equal(t, "mailto:bob@example.org", prop.Value)
	assert.Equal(t, "Bob", prop.Params.Get(ical.ParamCommonName))
}

func TestStubConnector(t *testing.T) {
	ctx := context.Background()
	stub := NewStubConnector()
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	created, err := stub.CreateEvent(ctx, Event{Title: "a", Start: start, End: start.Add(time.Hour)}, &Attendee{Email: "x@y.z"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)

	assert.Equal(t, []Attendee{{Email: "x@y.z"}}, stub.Attendees())

	events, err := stub.ListEvents(ctx, start.Add(-time.Hour), start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.NoError(t, stub.DeleteEvent(ctx, created.UID))
	assert.Empty(t, stub.Events())
	assert.Error(t, stub.DeleteEvent(ctx, created.UID))

	stub.FailCreate = true
	_, err = stub.CreateEvent(ctx, Event{}, nil)
	assert.ErrorIs(t, err, ErrStubFailure)
}

func TestCalDAVConnector_CreateAndDeleteEvent(t *testing.T) {
	// given
	var mu sync.Mutex
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()
	conn, err := NewCalDAVConnector(server.Client(), Credentials{Provider: CalDAV, Url: server.URL + "/dav/alice/work/"})
	require.NoError(t, err)
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	// when
	created, err := conn.CreateEvent(ctx, Event{UID: "abc", Title: "Intro call", Start: start, End: start.Add(30 * time.Minute)}, nil)
	require.NoError(t, err)
	err = conn.DeleteEvent(ctx, created.UID)

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"PUT /dav/alice/work/abc.ics", "DELETE /dav/alice/work/abc.ics"}, requests)
}
