package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookslot/bookslot/pkg/calendar"
	"github.com/bookslot/bookslot/pkg/ownership"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidAppointment = errors.New("invalid appointment data")

// CalendarReader returns a calendar only when the current subscriber owns it.
type CalendarReader interface {
	GetCalendar(ctx context.Context, id int) (calendar.Calendar, error)
}

// Service manages the current subscriber's appointments.
type Service struct {
	repo      Repository
	calendars CalendarReader
}

func NewService(repo Repository, calendars CalendarReader) *Service {
	return &Service{repo: repo, calendars: calendars}
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	subscriberId, err := subscriber.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	return s.repo.ListAppointments(ctx, subscriberId)
}

func (s *Service) GetAppointment(ctx context.Context, id int) (Appointment, error) {
	subscriberId, err := subscriber.CurrentId(ctx)
	if err != nil {
		return Appointment{}, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	a, err := s.repo.GetAppointment(ctx, id)
	found := true
	if errors.Is(err, ErrAppointmentNotFound) {
		found = false
	} else if err != nil {
		return Appointment{}, err
	}
	if err := ownership.Check(a, found, subscriberId); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

// CreateAppointment stores an appointment on one of the current subscriber's
// calendars under a new random slug.
func (s *Service) CreateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	if err := normalize(&a); err != nil {
		return Appointment{}, err
	}
	if err := s.checkCalendar(ctx, a.CalendarId); err != nil {
		return Appointment{}, err
	}
	a.Slug = newSlug()
	created, err := s.repo.CreateAppointment(ctx, a)
	if err != nil {
		return Appointment{}, fmt.Errorf("failed to store appointment: %w", err)
	}
	log.Infof("Created appointment %d with %d slots on calendar %d", created.Id, len(created.Slots), created.CalendarId)
	return created, nil
}

// UpdateAppointment changes an owned appointment. Its slug never changes and
// slots already taken by an attendee are kept.
func (s *Service) UpdateAppointment(ctx context.Context, id int, a Appointment) (Appointment, error) {
	existing, err := s.GetAppointment(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if a.CalendarId == 0 {
		a.CalendarId = existing.CalendarId
	}
	if err := normalize(&a); err != nil {
		return Appointment{}, err
	}
	if a.CalendarId != existing.CalendarId {
		if err := s.checkCalendar(ctx, a.CalendarId); err != nil {
			return Appointment{}, err
		}
	}
	a.Id = existing.Id
	a.Slug = existing.Slug
	return s.repo.UpdateAppointment(ctx, a)
}

func (s *Service) DeleteAppointment(ctx context.Context, id int) error {
	if _, err := s.GetAppointment(ctx, id); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ownership.ErrNotFound
	}
	return nil
}

func (s *Service) checkCalendar(ctx context.Context, calendarId int) error {
	_, err := s.calendars.GetCalendar(ctx, calendarId)
	if errors.Is(err, ownership.ErrNotFound) {
		return calendar.ErrCalendarNotFound
	}
	return err
}

func normalize(a *Appointment) error {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidAppointment)
	}
	if a.CalendarId <= 0 {
		return fmt.Errorf("%w: calendar is required", ErrInvalidAppointment)
	}
	if a.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidAppointment)
	}
	if a.Duration == 0 {
		a.Duration = DefaultDuration
	}
	for i := range a.Slots {
		if a.Slots[i].Start.IsZero() {
			return fmt.Errorf("%w: slot %d has no start", ErrInvalidAppointment, i)
		}
		if a.Slots[i].Duration < 0 {
			return fmt.Errorf("%w: slot %d has a negative duration", ErrInvalidAppointment, i)
		}
		if a.Slots[i].Duration == 0 {
			a.Slots[i].Duration = a.Duration
		}
	}
	return nil
}

func newSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
