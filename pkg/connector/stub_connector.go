package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var ErrStubFailure = errors.New("remote calendar unavailable")

// StubConnector is an in-memory calendar account.
type StubConnector struct {
	mu        sync.Mutex
	calendars []RemoteCalendar
	events    []Event
	attendees []Attendee
	nextId    int
	// FailCreate makes CreateEvent fail with ErrStubFailure.
	FailCreate bool
	// CreateDelay is slept before each CreateEvent call.
	CreateDelay time.Duration
	// OnCreate runs outside the lock before an event is stored, with the
	// 1-based number of the CreateEvent call. A non-nil error fails the call.
	OnCreate func(call int) error
	calls    int
	// FailDelete makes DeleteEvent fail with ErrStubFailure.
	FailDelete bool
}

func NewStubConnector(calendars ...RemoteCalendar) *StubConnector {
	return &StubConnector{calendars: calendars}
}

func (s *StubConnector) ListCalendars(ctx context.Context) ([]RemoteCalendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RemoteCalendar, len(s.calendars))
	copy(out, s.calendars)
	return out, nil
}

func (s *StubConnector) ListEvents(ctx context.Context, from time.Time, to time.Time) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Start.Before(to) && e.End.After(from) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *StubConnector) CreateEvent(ctx context.Context, event Event, attendee *Attendee) (Event, error) {
	if s.CreateDelay > 0 {
		time.Sleep(s.CreateDelay)
	}
	s.mu.Lock()
	s.calls++
	call, hook := s.calls, s.OnCreate
	s.mu.Unlock()
	if hook != nil {
		if err := hook(call); err != nil {
			return Event{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate {
		return Event{}, ErrStubFailure
	}
	s.nextId++
	event.UID = fmt.Sprintf("stub-%d", s.nextId)
	s.events = append(s.events, event)
	if attendee != nil {
		s.attendees = append(s.attendees, *attendee)
	}
	return event, nil
}

func (s *StubConnector) DeleteEvent(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete {
		return ErrStubFailure
	}
	for i, e := range s.events {
		if e.UID == uid {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %s not found", uid)
}

func (s *StubConnector) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *StubConnector) Attendees() []Attendee {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Attendee, len(s.attendees))
	copy(out, s.attendees)
	return out
}

// StubFactory hands out the same connector for every credential set and
// remembers the credentials it was asked for.
type StubFactory struct {
	mu        sync.Mutex
	Connector *StubConnector
	Err       error
	Requested []Credentials
}

func NewStubFactory(connector *StubConnector) *StubFactory {
	return &StubFactory{Connector: connector}
}

func (f *StubFactory) For(ctx context.Context, credentials Credentials) (Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requested = append(f.Requested, credentials)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Connector, nil
}
